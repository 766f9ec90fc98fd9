package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredential_Header(t *testing.T) {
	tests := []struct {
		name   string
		cred   Credential
		want   string
		wantOK bool
	}{
		{name: "none", cred: NoAuth(), wantOK: false},
		{name: "bearer", cred: BearerToken("abc123"), want: "Bearer abc123", wantOK: true},
		{name: "empty bearer", cred: BearerToken(""), wantOK: false},
		{name: "basic", cred: BasicAuth("admin", "secret"), want: "Basic YWRtaW46c2VjcmV0", wantOK: true},
		{name: "basic user only", cred: BasicAuth("admin", ""), want: "Basic YWRtaW46", wantOK: true},
		{name: "basic password only", cred: BasicAuth("", "secret"), want: "Basic OnNlY3JldA==", wantOK: true},
		{name: "empty basic", cred: BasicAuth("", ""), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.cred.Header()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredential_SwitchDiscardsPreviousValues(t *testing.T) {
	c := BasicAuth("admin", "secret")

	c = c.Switch(Bearer)
	assert.Equal(t, Bearer, c.Kind())
	_, ok := c.Header()
	assert.False(t, ok, "switching must not carry basic credentials over")

	c = BearerToken("tok").Switch(Basic)
	user, pass := c.User()
	assert.Empty(t, user)
	assert.Empty(t, pass)
	assert.Empty(t, c.Token())

	c = BearerToken("tok").Switch(Bearer)
	assert.Empty(t, c.Token())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"", None},
		{"none", None},
		{"Bearer", Bearer},
		{" basic ", Basic},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKind("digest")
	assert.Error(t, err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "No Auth", None.String())
	assert.Equal(t, "Bearer Token", Bearer.String())
	assert.Equal(t, "Basic Auth", Basic.String())
}
