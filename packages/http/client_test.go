package http

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
)

func get(t *testing.T, c *Client, url string) (*Response, error) {
	t.Helper()
	return c.Execute(context.Background(), &Request{Method: MethodGet, URL: url})
}

func TestClient_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := get(t, client, server.URL+"/test")

	require.NoError(t, err)
	assert.Equal(t, uint16(200), resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Equal(t, `{"message": "hello"}`, resp.Body)
	assert.Equal(t, int64(len(resp.Body)), resp.Size)
	assert.Equal(t, server.URL+"/test", resp.URL)
	assert.Equal(t, "GET", resp.Method)
	assert.NotEmpty(t, resp.ID)
	assert.GreaterOrEqual(t, resp.Duration, resp.RoundTrip)
}

func TestClient_ExecutePost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name": "test"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	d := NewDraft()
	d.Method = MethodPost
	d.URL = server.URL
	d.Body = `{"name": "test"}`

	resp, err := NewClient().Execute(context.Background(), Compose(d, nil))

	require.NoError(t, err)
	assert.Equal(t, uint16(201), resp.StatusCode)
	assert.Contains(t, resp.Body, "123")
}

func TestClient_CredentialWinsOverUserAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"Bearer from-credential"}, r.Header.Values("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDraft()
	d.URL = server.URL
	d.Headers.Append("Authorization", "Bearer from-user")
	d.Auth = auth.BearerToken("from-credential")

	req := Compose(d, nil)
	require.Len(t, req.Headers, 2, "both headers stay in the composed request")

	resp, err := NewClient().Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, uint16(204), resp.StatusCode)
}

func TestClient_LastHeaderWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"two"}, r.Header.Values("X-Dup"))
		assert.Equal(t, "override.internal", r.Host)
	}))
	defer server.Close()

	req := &Request{
		Method: MethodGet,
		URL:    server.URL,
		Headers: []Header{
			{Name: "X-Dup", Value: "one"},
			{Name: "x-dup", Value: "two"},
			{Name: "Host", Value: "override.internal"},
		},
	}
	_, err := NewClient().Execute(context.Background(), req)
	require.NoError(t, err)
}

func TestClient_QueryRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "a b", q.Get("q"))
		assert.Equal(t, "x&y=z+1#frag?", q.Get("weird key"))
	}))
	defer server.Close()

	d := NewDraft()
	d.URL = server.URL
	d.Params.Append("q", "a b")
	d.Params.Append("weird key", "x&y=z+1#frag?")

	_, err := NewClient().Execute(context.Background(), Compose(d, nil))
	require.NoError(t, err)
}

func TestClient_InvalidMethod(t *testing.T) {
	_, err := NewClient().Execute(context.Background(), &Request{Method: Method("BAD METHOD"), URL: "http://localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid method")
}

func TestClient_InvalidURL(t *testing.T) {
	_, err := get(t, NewClient(), "http://[::1")
	assert.Error(t, err)
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := get(t, NewClient(), url)
	assert.Error(t, err)
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := get(t, client, server.URL)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestClient_ContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient().Execute(ctx, &Request{Method: MethodGet, URL: server.URL})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_WithDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "request-token", r.Header.Get("Authorization"))
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeaders(map[string]string{
		"Authorization": "default-token",
		"User-Agent":    "custom-agent",
	}))
	req := &Request{
		Method:  MethodGet,
		URL:     server.URL,
		Headers: []Header{{Name: "Authorization", Value: "request-token"}},
	}
	resp, err := client.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, uint16(200), resp.StatusCode)
}

func TestClient_FollowRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`final`))
			return
		}
		redirectCount++
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(true))
	resp, err := get(t, client, server.URL+"/redirect")

	require.NoError(t, err)
	assert.Equal(t, uint16(200), resp.StatusCode)
	assert.Equal(t, "final", resp.Body)
	assert.Equal(t, 1, redirectCount)
	assert.Equal(t, server.URL+"/redirect", resp.URL, "URL echoes the sent request")
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(false))
	resp, err := get(t, client, server.URL+"/redirect")

	require.NoError(t, err)
	assert.Equal(t, uint16(302), resp.StatusCode)
}

func TestClient_MaxRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectCount++
		// Infinite redirect loop
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithMaxRedirects(3))
	resp, err := get(t, client, server.URL+"/redirect")

	require.NoError(t, err)
	assert.Equal(t, uint16(302), resp.StatusCode)
	assert.LessOrEqual(t, redirectCount, 4)
}

func TestClient_WithLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	var buf bytes.Buffer
	client := NewClient(WithLogger(log.New(&buf, "", 0)))
	resp, err := get(t, client, server.URL)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), resp.ID)
	assert.Contains(t, buf.String(), "sending GET")
}

func TestCollectHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("X-Multi", "b")
	h.Add("X-Multi", "a")
	h.Set("Content-Type", "text/plain")
	h.Set("X-Binary", "caf\xc3\xa9")
	h.Set("X-Tab", "a\tb")

	got := collectHeaders(h)

	assert.Equal(t, []Header{
		{Name: "Content-Type", Value: "text/plain"},
		{Name: "X-Binary", Value: ""},
		{Name: "X-Multi", Value: "b"},
		{Name: "X-Multi", Value: "a"},
		{Name: "X-Tab", Value: "a\tb"},
	}, got)
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		statusCode uint16
		expected   bool
	}{
		{200, true},
		{201, true},
		{204, true},
		{299, true},
		{300, false},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.statusCode}
		assert.Equal(t, tt.expected, resp.IsSuccess(), "StatusCode: %d", tt.statusCode)
	}
}

func TestResponse_IsJSON(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"text/html", false},
		{"text/plain", false},
		{"", false},
	}

	for _, tt := range tests {
		resp := &Response{Headers: []Header{{Name: "content-type", Value: tt.contentType}}}
		assert.Equal(t, tt.expected, resp.IsJSON(), "Content-Type: %s", tt.contentType)
	}
}
