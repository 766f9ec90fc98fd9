// Package openapi turns the operations of an OpenAPI 3 document into request
// drafts.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// BaseURLVariable is the variable every generated URL starts with.
const BaseURLVariable = "baseUrl"

// maxDepth bounds example generation for recursive schemas.
const maxDepth = 5

var nonWordPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Request is one generated request.
type Request struct {
	Name  string
	Tags  []string
	Draft *http.Draft
}

// Collection is the result of converting a document.
type Collection struct {
	Title    string
	Version  string
	BaseURL  string
	Requests []Request
	// Invalid holds the validation error of a document that was still
	// converted.
	Invalid error
}

// Converter converts OpenAPI documents.
type Converter struct {
	baseURL     string
	includeTags []string
	excludeTags []string
	includeOnly []string
}

// Option is a functional option for Converter
type Option func(*Converter)

// WithBaseURL overrides the first server URL of the document
func WithBaseURL(url string) Option {
	return func(c *Converter) {
		c.baseURL = url
	}
}

// WithTags keeps only operations carrying one of the tags
func WithTags(tags []string) Option {
	return func(c *Converter) {
		c.includeTags = tags
	}
}

// WithExcludeTags drops operations carrying one of the tags
func WithExcludeTags(tags []string) Option {
	return func(c *Converter) {
		c.excludeTags = tags
	}
}

// WithOperations keeps only the listed operation IDs
func WithOperations(ops []string) Option {
	return func(c *Converter) {
		c.includeOnly = ops
	}
}

func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads a document from a file path or an http(s) URL.
func Load(ctx context.Context, location string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	var (
		doc *openapi3.T
		err error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		u, perr := url.Parse(location)
		if perr != nil {
			return nil, fmt.Errorf("invalid document URL: %w", perr)
		}
		doc, err = loader.LoadFromURI(u)
	} else {
		doc, err = loader.LoadFromFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	return doc, nil
}

// Parse reads a document from memory.
func Parse(ctx context.Context, data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return doc, nil
}

// Convert generates one request per operation, ordered by path and then by
// method. Validation problems are reported in Collection.Invalid and do not
// stop the conversion.
func (c *Converter) Convert(ctx context.Context, doc *openapi3.T) *Collection {
	col := &Collection{BaseURL: c.baseURL}
	if doc.Info != nil {
		col.Title = doc.Info.Title
		col.Version = doc.Info.Version
	}
	if col.BaseURL == "" && len(doc.Servers) > 0 && doc.Servers[0] != nil {
		col.BaseURL = doc.Servers[0].URL
	}
	if err := doc.Validate(ctx); err != nil {
		col.Invalid = err
	}
	if doc.Paths == nil {
		return col
	}

	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for path := range items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		for _, method := range http.Methods {
			op := item.GetOperation(string(method))
			if op == nil || !c.shouldInclude(op) {
				continue
			}
			col.Requests = append(col.Requests, Request{
				Name:  operationName(method, path, op),
				Tags:  op.Tags,
				Draft: c.draft(doc, method, path, op, item.Parameters),
			})
		}
	}
	return col
}

func (c *Converter) shouldInclude(op *openapi3.Operation) bool {
	if len(c.includeOnly) > 0 && !contains(c.includeOnly, op.OperationID) {
		return false
	}
	if len(c.includeTags) > 0 && !anyOf(op.Tags, c.includeTags) {
		return false
	}
	return !anyOf(op.Tags, c.excludeTags)
}

func (c *Converter) draft(doc *openapi3.T, method http.Method, path string, op *openapi3.Operation, shared openapi3.Parameters) *http.Draft {
	d := http.NewDraft()
	d.Method = method

	params := make(openapi3.Parameters, 0, len(shared)+len(op.Parameters))
	params = append(params, shared...)
	params = append(params, op.Parameters...)

	for _, ref := range params {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		switch p.In {
		case openapi3.ParameterInPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", "{{"+p.Name+"}}")
		case openapi3.ParameterInQuery:
			d.Params.Append(p.Name, parameterExample(p))
		case openapi3.ParameterInHeader:
			d.Headers.Append(p.Name, parameterExample(p))
		}
	}
	d.URL = "{{" + BaseURLVariable + "}}" + path

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		setBody(d, op.RequestBody.Value.Content)
	}
	applySecurity(d, doc, op)
	return d
}

// setBody picks the first media type the composer can send, preferring JSON.
func setBody(d *http.Draft, content openapi3.Content) {
	mimes := make([]string, 0, len(content))
	for mime := range content {
		mimes = append(mimes, mime)
	}
	sort.Slice(mimes, func(i, j int) bool {
		ji, jj := strings.Contains(mimes[i], "json"), strings.Contains(mimes[j], "json")
		if ji != jj {
			return ji
		}
		return mimes[i] < mimes[j]
	})

	for _, mime := range mimes {
		ct, ok := http.ContentTypeForMIME(mime)
		if !ok && strings.Contains(mime, "json") {
			ct, ok = http.ContentJSON, true
		}
		if !ok {
			continue
		}
		media := content[mime]
		d.ContentType = ct
		if ct != http.ContentJSON {
			return
		}
		var value any
		switch {
		case media == nil:
			value = map[string]any{}
		case media.Example != nil:
			value = media.Example
		case media.Schema != nil:
			value = exampleValue(media.Schema.Value, 0)
		}
		if data, err := json.MarshalIndent(value, "", "  "); err == nil {
			d.Body = string(data)
		}
		return
	}
}

// applySecurity maps the first usable security scheme onto the draft. Secrets
// become variables so they stay in the environment.
func applySecurity(d *http.Draft, doc *openapi3.T, op *openapi3.Operation) {
	reqs := doc.Security
	if op.Security != nil {
		reqs = *op.Security
	}
	if doc.Components == nil {
		return
	}
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref := doc.Components.SecuritySchemes[name]
			if ref == nil || ref.Value == nil {
				continue
			}
			s := ref.Value
			switch {
			case s.Type == "http" && strings.EqualFold(s.Scheme, "bearer"):
				d.Auth = auth.BearerToken("{{token}}")
				return
			case s.Type == "http" && strings.EqualFold(s.Scheme, "basic"):
				d.Auth = auth.BasicAuth("{{username}}", "{{password}}")
				return
			case s.Type == "oauth2" || s.Type == "openIdConnect":
				d.Auth = auth.BearerToken("{{token}}")
				return
			case s.Type == "apiKey" && s.In == "header":
				d.Headers.Append(s.Name, "{{"+variableName(name)+"}}")
				return
			case s.Type == "apiKey" && s.In == "query":
				d.Params.Append(s.Name, "{{"+variableName(name)+"}}")
				return
			}
		}
	}
}

func parameterExample(p *openapi3.Parameter) string {
	if p.Example != nil {
		return fmt.Sprint(p.Example)
	}
	if p.Schema != nil && p.Schema.Value != nil {
		s := p.Schema.Value
		switch {
		case s.Example != nil:
			return fmt.Sprint(s.Example)
		case s.Default != nil:
			return fmt.Sprint(s.Default)
		case len(s.Enum) > 0:
			return fmt.Sprint(s.Enum[0])
		}
	}
	return "{{" + p.Name + "}}"
}

// exampleValue builds a value that satisfies the shape of schema.
func exampleValue(s *openapi3.Schema, depth int) any {
	if s == nil || depth > maxDepth {
		return nil
	}
	switch {
	case s.Example != nil:
		return s.Example
	case s.Default != nil:
		return s.Default
	case len(s.Enum) > 0:
		return s.Enum[0]
	}

	switch schemaType(s) {
	case "object":
		obj := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			if prop == nil {
				continue
			}
			obj[name] = exampleValue(prop.Value, depth+1)
		}
		return obj
	case "array":
		if s.Items == nil || s.Items.Value == nil {
			return []any{}
		}
		return []any{exampleValue(s.Items.Value, depth+1)}
	case "string":
		switch s.Format {
		case "date":
			return "2024-01-01"
		case "date-time":
			return "2024-01-01T00:00:00Z"
		case "email":
			return "user@example.com"
		case "uuid":
			return "00000000-0000-0000-0000-000000000000"
		}
		return "example"
	case "integer":
		if s.Min != nil {
			return int64(*s.Min)
		}
		return 1
	case "number":
		if s.Min != nil {
			return *s.Min
		}
		return 1.5
	case "boolean":
		return true
	default:
		return nil
	}
}

func schemaType(s *openapi3.Schema) string {
	if s.Type == nil {
		if len(s.Properties) > 0 {
			return "object"
		}
		return ""
	}
	types := s.Type.Slice()
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

// operationName is the operation ID, or method and path, as a file name.
func operationName(method http.Method, path string, op *openapi3.Operation) string {
	name := op.OperationID
	if name == "" {
		name = string(method) + "_" + strings.NewReplacer("{", "", "}", "").Replace(path)
	}
	return variableName(name)
}

func variableName(s string) string {
	return strings.Trim(nonWordPattern.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func anyOf(have, want []string) bool {
	for _, h := range have {
		if contains(want, h) {
			return true
		}
	}
	return false
}
