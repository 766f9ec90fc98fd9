package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/env"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

// Method is one of the request methods the composer offers.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Methods lists the supported methods in picker order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions}

// ParseMethod matches s case-insensitively against the supported methods.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported method: %q", s)
}

// Next returns the method after m in picker order, wrapping around.
func (m Method) Next() Method {
	for i, known := range Methods {
		if m == known {
			return Methods[(i+1)%len(Methods)]
		}
	}
	return MethodGet
}

// ContentType is the body format selector. It only decides the Content-Type
// header; the body text is sent as typed.
type ContentType int

const (
	ContentJSON ContentType = iota
	ContentText
	ContentHTML
	ContentXML
)

var ContentTypes = []ContentType{ContentJSON, ContentText, ContentHTML, ContentXML}

// MIME returns the header value for the selector.
func (c ContentType) MIME() string {
	switch c {
	case ContentText:
		return "text/plain"
	case ContentHTML:
		return "text/html"
	case ContentXML:
		return "application/xml"
	default:
		return "application/json"
	}
}

// String returns the short name used in request files.
func (c ContentType) String() string {
	switch c {
	case ContentText:
		return "text"
	case ContentHTML:
		return "html"
	case ContentXML:
		return "xml"
	default:
		return "json"
	}
}

// ContentTypeForMIME finds the selector for a Content-Type header value.
// Parameters such as charset are ignored.
func ContentTypeForMIME(value string) (ContentType, bool) {
	mime, _, _ := strings.Cut(value, ";")
	mime = strings.TrimSpace(mime)
	for _, ct := range ContentTypes {
		if strings.EqualFold(mime, ct.MIME()) {
			return ct, true
		}
	}
	return ContentJSON, false
}

// ParseContentType maps a short body format name to its ContentType.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return ContentJSON, nil
	case "text":
		return ContentText, nil
	case "html":
		return ContentHTML, nil
	case "xml":
		return ContentXML, nil
	default:
		return ContentJSON, fmt.Errorf("unknown content type: %q", s)
	}
}

// Header is one name/value pair in declaration order.
type Header struct {
	Name  string
	Value string
}

// Request is a fully composed outbound request. The executor never mutates it.
type Request struct {
	Method  Method
	URL     string
	Headers []Header
	Body    *string
}

// Header returns the value of the last header declared with name, compared
// case-insensitively. That is the value that reaches the wire.
func (r *Request) Header(name string) (string, bool) {
	value, found := "", false
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			value, found = h.Value, true
		}
	}
	return value, found
}

// Draft is the editable state of one request before composition.
type Draft struct {
	Method      Method
	URL         string
	Params      *kv.Set
	Headers     *kv.Set
	Body        string
	ContentType ContentType
	Auth        auth.Credential
}

// NewDraft returns an empty GET draft with one blank row in each editor.
func NewDraft() *Draft {
	return &Draft{
		Method:  MethodGet,
		Params:  kv.New(),
		Headers: kv.New(),
		Auth:    auth.NoAuth(),
	}
}

// Clone returns a copy of d whose editors can be changed independently.
func (d *Draft) Clone() *Draft {
	clone := *d
	clone.Params = d.Params.Clone()
	clone.Headers = d.Headers.Clone()
	return &clone
}

// Compose turns a draft into a Request. It is a pure function of its inputs.
//
// Parameters with an empty key are dropped; the rest are percent-encoded and
// appended to the URL. Headers with an empty key are dropped. The
// Authorization header derived from the credential follows the user headers,
// and a Content-Type derived from the selector follows that when the body is
// not empty. With a binding, {{key}} tokens in parameter keys and values, the
// URL, header values and body are replaced in a single pass. Parameters are
// substituted before encoding so the encoded query is never scanned again.
func Compose(d *Draft, b *env.Binding) *Request {
	var r *env.Resolver
	if b != nil {
		r = b.Resolver()
	}

	params := d.Params.Pairs()
	if r != nil {
		for i := range params {
			params[i].Key = r.Resolve(params[i].Key)
			params[i].Value = r.Resolve(params[i].Value)
		}
	}

	req := &Request{
		Method: d.Method,
		URL:    AppendQuery(d.URL, EncodeQuery(params)),
	}

	for _, p := range d.Headers.Pairs() {
		req.Headers = append(req.Headers, Header{Name: p.Key, Value: p.Value})
	}

	if value, ok := d.Auth.Header(); ok {
		req.Headers = append(req.Headers, Header{Name: "Authorization", Value: value})
	}

	if d.Body != "" {
		body := d.Body
		req.Body = &body
		req.Headers = append(req.Headers, Header{Name: "Content-Type", Value: d.ContentType.MIME()})
	}

	if r != nil {
		req.URL = r.Resolve(req.URL)
		for i := range req.Headers {
			req.Headers[i].Value = r.Resolve(req.Headers[i].Value)
		}
		if req.Body != nil {
			body := r.Resolve(*req.Body)
			req.Body = &body
		}
	}

	return req
}

// EncodeQuery joins pairs as k=v with &. Keys and values are escaped
// independently; a space becomes %20 and reserved characters such as & = + #
// are percent-encoded so every pair decodes back to itself.
func EncodeQuery(pairs []kv.Pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.Key == "" {
			continue
		}
		parts = append(parts, escapeComponent(p.Key)+"="+escapeComponent(p.Value))
	}
	return strings.Join(parts, "&")
}

func escapeComponent(s string) string {
	// QueryEscape leaves a literal + as %2B, so every remaining + is a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// AppendQuery adds an encoded query to rawURL, using ? or & depending on
// whether the URL already has a query.
func AppendQuery(rawURL, query string) string {
	if query == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
