package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// JSONOutput is the machine-readable form of one exchange.
type JSONOutput struct {
	ID       string        `json:"id"`
	Request  JSONRequest   `json:"request"`
	Response *JSONResponse `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
	Time     string        `json:"time"`
}

type JSONRequest struct {
	Method  string       `json:"method"`
	URL     string       `json:"url"`
	Headers []JSONHeader `json:"headers,omitempty"`
	Body    *string      `json:"body,omitempty"`
}

type JSONResponse struct {
	StatusCode  uint16       `json:"statusCode"`
	ContentType string       `json:"contentType"`
	Headers     []JSONHeader `json:"headers,omitempty"`
	Body        any          `json:"body"`
	Duration    float64      `json:"duration"`
	RoundTrip   float64      `json:"roundTrip"`
	Size        int64        `json:"size"`
}

type JSONHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// JSONFormatter writes exchanges as indented JSON documents.
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func toJSONHeaders(headers []http.Header) []JSONHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]JSONHeader, len(headers))
	for i, h := range headers {
		out[i] = JSONHeader{Name: h.Name, Value: h.Value}
	}
	return out
}

// Format writes one exchange. rec is nil when err is set. A JSON body is
// embedded as a value, anything else as a string.
func (f *JSONFormatter) Format(req *http.Request, rec *http.Response, err error) error {
	out := JSONOutput{
		Request: JSONRequest{
			Method:  string(req.Method),
			URL:     req.URL,
			Headers: toJSONHeaders(req.Headers),
			Body:    req.Body,
		},
		Time: time.Now().Format(time.RFC3339),
	}

	if err != nil {
		out.Error = err.Error()
	}

	if rec != nil {
		out.ID = rec.ID
		var body any = rec.Body
		if json.Valid([]byte(rec.Body)) && rec.Body != "" {
			body = json.RawMessage(rec.Body)
		}
		out.Response = &JSONResponse{
			StatusCode:  rec.StatusCode,
			ContentType: ContentType(rec),
			Headers:     toJSONHeaders(rec.Headers),
			Body:        body,
			Duration:    float64(rec.Duration.Microseconds()) / 1000,
			RoundTrip:   float64(rec.RoundTrip.Microseconds()) / 1000,
			Size:        rec.Size,
		}
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
