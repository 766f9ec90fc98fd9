package http

import (
	"context"
	"crypto/tls"
	"io"
	"log"
	"net/http"
	neturl "net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client executes composed requests. Build it once with NewClient and share
// it; the underlying connection pool is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
	logger         *log.Logger
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
		logger:         log.New(io.Discard, "", 0),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	// Configure TLS verification
	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	// Configure proxy if specified
	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			c.logger.Printf("ignoring invalid proxy %q: %v", c.proxyURL, err)
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithDefaultHeader sets a header sent with every request. Headers of the
// request itself take precedence.
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithLogger routes dispatch logs to logger. Nil keeps logging disabled.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Execute sends req once and reads the whole response.
//
// Headers are applied in declaration order and a later header replaces an
// earlier one with the same name, so when the user declared Authorization
// and a credential is set, the credential is what goes out. A Host header
// overrides the request host. Any failure, from URL parsing to reading the
// body, is returned as a single error.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	id := uuid.NewString()

	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(*req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, body)
	if err != nil {
		c.logger.Printf("[%s] %s %s: %v", id, req.Method, req.URL, err)
		return nil, err
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}

	for _, h := range req.Headers {
		if strings.EqualFold(h.Name, "Host") {
			httpReq.Host = h.Value
			continue
		}
		httpReq.Header.Set(h.Name, h.Value)
	}

	c.logger.Printf("[%s] sending %s %s", id, req.Method, req.URL)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	roundTrip := time.Since(start)

	if err != nil {
		c.logger.Printf("[%s] request failed after %s: %v", id, roundTrip, err)
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		c.logger.Printf("[%s] reading body failed after %s: %v", id, duration, err)
		return nil, err
	}

	c.logger.Printf("[%s] %d in %s (headers after %s, %d bytes)", id, httpResp.StatusCode, duration, roundTrip, len(respBody))

	return &Response{
		ID:         id,
		URL:        req.URL,
		Method:     string(req.Method),
		StatusCode: uint16(httpResp.StatusCode),
		Headers:    collectHeaders(httpResp.Header),
		Body:       string(respBody),
		Duration:   duration,
		RoundTrip:  roundTrip,
		Size:       int64(len(respBody)),
	}, nil
}

// collectHeaders flattens h into one pair per value, ordered by name.
// Values that are not printable ASCII become empty strings.
func collectHeaders(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var headers []Header
	for _, name := range names {
		for _, v := range h[name] {
			if !isVisibleASCII(v) {
				v = ""
			}
			headers = append(headers, Header{Name: name, Value: v})
		}
	}
	return headers
}

func isVisibleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b != '\t' && (b < 0x20 || b > 0x7e) {
			return false
		}
	}
	return true
}
