package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// UnknownContentType is reported when a response carries no Content-Type.
const UnknownContentType = "unknown"

const trailerRule = "--------------------"

// ContentType returns the response Content-Type, or "unknown".
func ContentType(rec *http.Response) string {
	for _, h := range rec.Headers {
		if strings.EqualFold(h.Name, "content-type") {
			return h.Value
		}
	}
	return UnknownContentType
}

// Body returns the response body, re-indented when the response is JSON.
// A body that does not parse is returned unchanged.
func Body(rec *http.Response) string {
	if !strings.Contains(ContentType(rec), "application/json") {
		return rec.Body
	}
	pretty, ok := indentJSON(rec.Body)
	if !ok {
		return rec.Body
	}
	return pretty
}

func indentJSON(body string) (string, bool) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(body)), "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}

// Render produces the text shown for a completed response:
//
//	Headers:
//	  Name: value
//
//	Body:
//	<body>
//
//	--------------------
//	URL: <url>
//	Method: <method>
func Render(rec *http.Response) string {
	var b strings.Builder

	b.WriteString("Headers:\n")
	for _, h := range rec.Headers {
		fmt.Fprintf(&b, "  %s: %s\n", h.Name, h.Value)
	}

	b.WriteString("\nBody:\n")
	b.WriteString(Body(rec))
	b.WriteString("\n\n")

	b.WriteString(trailerRule + "\n")
	fmt.Fprintf(&b, "URL: %s\n", rec.URL)
	fmt.Fprintf(&b, "Method: %s", rec.Method)

	return b.String()
}
