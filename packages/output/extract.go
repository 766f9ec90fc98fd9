package output

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// Capture names a value to pull out of a response.
type Capture struct {
	Name string
	Expr string
}

// ParseCapture parses NAME=EXPR.
func ParseCapture(s string) (Capture, error) {
	name, expr, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	expr = strings.TrimSpace(expr)
	if !found || name == "" || expr == "" {
		return Capture{}, fmt.Errorf("invalid capture %q, expected NAME=EXPR", s)
	}
	return Capture{Name: name, Expr: expr}, nil
}

// Extract evaluates expr against rec. Supported forms:
//
//	status            the status code
//	duration          elapsed milliseconds
//	header.<Name>     a response header, case-insensitive
//	body              the raw body
//	body.<path>       a gjson path into a JSON body; [N] is accepted for indexes
//
// Objects and arrays are returned as raw JSON.
func Extract(rec *http.Response, expr string) (string, bool) {
	switch {
	case expr == "status":
		return strconv.Itoa(int(rec.StatusCode)), true
	case expr == "duration":
		return strconv.FormatInt(rec.DurationMs(), 10), true
	case expr == "body":
		return rec.Body, true
	case strings.HasPrefix(expr, "header."):
		value := rec.Header(strings.TrimPrefix(expr, "header."))
		if value == "" {
			return "", false
		}
		return value, true
	case strings.HasPrefix(expr, "body."):
		return Query(rec, strings.TrimPrefix(expr, "body."))
	default:
		return "", false
	}
}

// Query looks path up in a JSON body.
func Query(rec *http.Response, path string) (string, bool) {
	if !gjson.Valid(rec.Body) {
		return "", false
	}
	result := gjson.Get(rec.Body, convertBracketNotation(path))
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

// ExtractAll evaluates captures in order and returns the ones that matched.
func ExtractAll(rec *http.Response, captures []Capture) []kv.Pair {
	var pairs []kv.Pair
	for _, c := range captures {
		if value, ok := Extract(rec, c.Expr); ok {
			pairs = append(pairs, kv.Pair{Key: c.Name, Value: value})
		}
	}
	return pairs
}

// ValidateSchema checks the response body against the JSON schema stored at
// schemaPath.
func ValidateSchema(rec *http.Response, schemaPath string) error {
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaData)
	documentLoader := gojsonschema.NewStringLoader(rec.Body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(errors, "; "))
}
