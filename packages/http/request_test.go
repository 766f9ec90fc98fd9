package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/env"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

func TestCompose_EndToEndShape(t *testing.T) {
	d := NewDraft()
	d.URL = "https://api.test/items"
	d.Params.SetKey(0, "q")
	d.Params.SetValue(0, "a b")
	d.Headers.Append("Accept", "application/json")

	req := Compose(d, nil)

	assert.Equal(t, MethodGet, req.Method)
	assert.Equal(t, "https://api.test/items?q=a%20b", req.URL)
	assert.Equal(t, []Header{{Name: "Accept", Value: "application/json"}}, req.Headers)
	assert.Nil(t, req.Body)
}

func TestCompose_QueryAppend(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		params []kv.Pair
		want   string
	}{
		{name: "no params", url: "https://x.test/a", want: "https://x.test/a"},
		{name: "only empty keys", url: "https://x.test/a", params: []kv.Pair{{Key: "", Value: "v"}}, want: "https://x.test/a"},
		{name: "fresh query", url: "https://x.test/a", params: []kv.Pair{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, want: "https://x.test/a?a=1&b=2"},
		{name: "existing query", url: "https://x.test/a?x=0", params: []kv.Pair{{Key: "a", Value: "1"}}, want: "https://x.test/a?x=0&a=1"},
		{name: "reserved characters", url: "u", params: []kv.Pair{{Key: "k&=", Value: "v+#?"}}, want: "u?k%26%3D=v%2B%23%3F"},
		{name: "empty url passes through", url: "", params: []kv.Pair{{Key: "a", Value: "1"}}, want: "?a=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft()
			d.URL = tt.url
			d.Params = kv.FromPairs(tt.params)
			assert.Equal(t, tt.want, Compose(d, nil).URL)
		})
	}
}

func TestEncodeQuery_RoundTrip(t *testing.T) {
	pairs := []kv.Pair{
		{Key: "q", Value: "a b"},
		{Key: "sym", Value: "&=+#?/%"},
		{Key: "unicode", Value: "héllo wörld"},
		{Key: "empty", Value: ""},
		{Key: "dup", Value: "1"},
		{Key: "dup", Value: "2"},
	}

	encoded := EncodeQuery(pairs)
	assert.NotContains(t, encoded, "+")

	values, err := url.ParseQuery(encoded)
	require.NoError(t, err)
	for _, p := range pairs {
		assert.Contains(t, values[p.Key], p.Value)
	}
	assert.Equal(t, []string{"1", "2"}, values["dup"])
}

func TestCompose_HeadersOrderAndFiltering(t *testing.T) {
	d := NewDraft()
	d.Headers.Append("X-B", "2")
	d.Headers.Append("", "ignored")
	d.Headers.Append("X-A", "1")

	req := Compose(d, nil)
	assert.Equal(t, []Header{{Name: "X-B", Value: "2"}, {Name: "X-A", Value: "1"}}, req.Headers)
}

func TestCompose_Auth(t *testing.T) {
	d := NewDraft()
	d.Headers.Append("Accept", "*/*")
	d.Auth = auth.BasicAuth("admin", "secret")

	req := Compose(d, nil)
	require.Len(t, req.Headers, 2)
	assert.Equal(t, Header{Name: "Authorization", Value: "Basic YWRtaW46c2VjcmV0"}, req.Headers[1])

	d.Auth = d.Auth.Switch(auth.Bearer)
	req = Compose(d, nil)
	_, ok := req.Header("Authorization")
	assert.False(t, ok, "empty bearer token emits no header")
}

func TestCompose_BodyAndContentType(t *testing.T) {
	tests := []struct {
		ct   ContentType
		want string
	}{
		{ContentJSON, "application/json"},
		{ContentText, "text/plain"},
		{ContentHTML, "text/html"},
		{ContentXML, "application/xml"},
	}

	for _, tt := range tests {
		t.Run(tt.ct.String(), func(t *testing.T) {
			d := NewDraft()
			d.Body = "payload"
			d.ContentType = tt.ct
			d.Auth = auth.BearerToken("t")

			req := Compose(d, nil)
			require.NotNil(t, req.Body)
			assert.Equal(t, "payload", *req.Body)
			require.Len(t, req.Headers, 2)
			assert.Equal(t, "Authorization", req.Headers[0].Name)
			assert.Equal(t, Header{Name: "Content-Type", Value: tt.want}, req.Headers[1])
		})
	}
}

func TestCompose_Substitution(t *testing.T) {
	b := &env.Binding{
		Name: "dev",
		Variables: []kv.Pair{
			{Key: "base", Value: "https://api.test"},
			{Key: "token", Value: "s3cret"},
			{Key: "X", Value: "1"},
			{Key: "nested", Value: "{{X}}"},
		},
	}

	d := NewDraft()
	d.URL = "{{base}}/items/{{X}}{{X}}"
	d.Headers.Append("X-Trace", "{{nested}}")
	d.Headers.Append("{{X}}", "name untouched")
	d.Auth = auth.BearerToken("{{token}}")
	d.Body = `{"id": "{{X}}", "other": "{{unknown}}"}`

	req := Compose(d, b)

	assert.Equal(t, "https://api.test/items/11", req.URL)
	v, _ := req.Header("X-Trace")
	assert.Equal(t, "{{X}}", v, "substituted values are not scanned again")
	v, ok := req.Header("{{X}}")
	assert.True(t, ok)
	assert.Equal(t, "name untouched", v)
	v, _ = req.Header("Authorization")
	assert.Equal(t, "Bearer s3cret", v)
	require.NotNil(t, req.Body)
	assert.Equal(t, `{"id": "1", "other": "{{unknown}}"}`, *req.Body)
}

func TestCompose_ParamSubstitution(t *testing.T) {
	b := &env.Binding{
		Name: "dev",
		Variables: []kv.Pair{
			{Key: "baseUrl", Value: "https://api.test"},
			{Key: "api_key", Value: "secret"},
			{Key: "field", Value: "sort by"},
			{Key: "raw", Value: "{{api_key}}"},
		},
	}

	d := NewDraft()
	d.URL = "{{baseUrl}}/items"
	d.Params.Append("api_key", "{{api_key}}")
	d.Params.Append("{{field}}", "a&b")
	d.Params.Append("echo", "{{raw}}")
	d.Params.Append("missing", "{{unknown}}")

	req := Compose(d, b)
	assert.Equal(t,
		"https://api.test/items?api_key=secret&sort%20by=a%26b&echo=%7B%7Bapi_key%7D%7D&missing=%7B%7Bunknown%7D%7D",
		req.URL)

	assert.Equal(t, "{{api_key}}", d.Params.Pairs()[0].Value)
}

func TestCompose_DoesNotMutateDraft(t *testing.T) {
	d := NewDraft()
	d.URL = "{{base}}"
	d.Body = "{{base}}"
	b := &env.Binding{Variables: []kv.Pair{{Key: "base", Value: "x"}}}

	_ = Compose(d, b)
	assert.Equal(t, "{{base}}", d.URL)
	assert.Equal(t, "{{base}}", d.Body)
}

func TestMethod(t *testing.T) {
	m, err := ParseMethod(" patch ")
	require.NoError(t, err)
	assert.Equal(t, MethodPatch, m)

	_, err = ParseMethod("TRACE")
	assert.Error(t, err)

	assert.Equal(t, MethodPost, MethodGet.Next())
	assert.Equal(t, MethodGet, MethodOptions.Next())
}

func TestContentTypeForMIME(t *testing.T) {
	tests := []struct {
		value string
		want  ContentType
		ok    bool
	}{
		{"application/json", ContentJSON, true},
		{"Application/XML; charset=utf-8", ContentXML, true},
		{" text/plain ", ContentText, true},
		{"text/html;charset=UTF-8", ContentHTML, true},
		{"application/x-www-form-urlencoded", ContentJSON, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ContentTypeForMIME(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
