package http

import (
	"strings"
	"time"
)

// Response is the outcome of one dispatch. URL and Method echo what was sent.
// Duration covers the whole exchange including the body read; RoundTrip stops
// when the status line and headers arrived.
type Response struct {
	ID         string
	URL        string
	Method     string
	StatusCode uint16
	Headers    []Header
	Body       string
	Duration   time.Duration
	RoundTrip  time.Duration
	Size       int64
}

// Header returns the first value for key, compared case-insensitively.
func (r *Response) Header(key string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, key) {
			return h.Value
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
