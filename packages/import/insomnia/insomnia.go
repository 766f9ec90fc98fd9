// Package insomnia reads Insomnia v4 exports into request drafts and
// environments.
package insomnia

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

var (
	// Insomnia writes {{ _.name }} or {{ name }}
	variablePattern = regexp.MustCompile(`\{\{\s*(?:_\.)?([\w.-]+)\s*\}\}`)
	nonWordPattern  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Export represents an Insomnia export file.
type Export struct {
	Type         string     `json:"_type"`
	ExportFormat int        `json:"__export_format"`
	Resources    []Resource `json:"resources"`
}

// Resource represents an Insomnia resource (request, folder, environment, etc).
type Resource struct {
	ID             string         `json:"_id"`
	Type           string         `json:"_type"`
	ParentID       string         `json:"parentId"`
	Name           string         `json:"name"`
	Method         string         `json:"method,omitempty"`
	URL            string         `json:"url,omitempty"`
	Headers        []Header       `json:"headers,omitempty"`
	Body           *Body          `json:"body,omitempty"`
	Parameters     []Parameter    `json:"parameters,omitempty"`
	Authentication *Auth          `json:"authentication,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

type Header struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

type Body struct {
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

type Parameter struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

type Auth struct {
	Type     string `json:"type"`
	Disabled bool   `json:"disabled,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// Request is one converted request. Folder is the slash-separated path of
// the request groups it sits in.
type Request struct {
	Name   string
	Folder string
	Draft  *http.Draft
}

// FileName suggests a relative file path for the request.
func (r Request) FileName() string {
	parts := make([]string, 0, 2)
	for _, f := range strings.Split(r.Folder, "/") {
		if f = slug(f); f != "" {
			parts = append(parts, f)
		}
	}
	name := slug(r.Name)
	if name == "" {
		name = "request"
	}
	return strings.Join(append(parts, name), "/")
}

// Environment is one sub environment merged over the base environment.
type Environment struct {
	Name      string
	Variables []kv.Pair
}

type Collection struct {
	Requests     []Request
	Environments []Environment
}

func ParseFile(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse converts export JSON. Requests keep their export order.
func Parse(data []byte) (*Collection, error) {
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse Insomnia export: %w", err)
	}
	if export.Type != "export" {
		return nil, fmt.Errorf("not an Insomnia export (_type %q)", export.Type)
	}

	folders := make(map[string]Resource)
	envs := make(map[string]Resource)
	for _, res := range export.Resources {
		switch res.Type {
		case "request_group":
			folders[res.ID] = res
		case "environment":
			envs[res.ID] = res
		}
	}

	col := &Collection{}
	for _, res := range export.Resources {
		switch res.Type {
		case "request":
			d, err := draft(res)
			if err != nil {
				return nil, fmt.Errorf("request %q: %w", res.Name, err)
			}
			col.Requests = append(col.Requests, Request{
				Name:   res.Name,
				Folder: folderPath(res.ParentID, folders),
				Draft:  d,
			})
		case "environment":
			base, ok := envs[res.ParentID]
			if !ok {
				// The base environment hangs off the workspace and is only
				// merged into its children.
				continue
			}
			col.Environments = append(col.Environments, Environment{
				Name:      res.Name,
				Variables: mergeVariables(base.Data, res.Data),
			})
		}
	}

	// A workspace without sub environments still has its base variables
	if len(col.Environments) == 0 {
		for _, res := range export.Resources {
			if res.Type == "environment" && len(res.Data) > 0 {
				col.Environments = append(col.Environments, Environment{
					Name:      res.Name,
					Variables: mergeVariables(nil, res.Data),
				})
				break
			}
		}
	}
	return col, nil
}

func draft(res Resource) (*http.Draft, error) {
	d := http.NewDraft()
	if res.Method != "" {
		m, err := http.ParseMethod(res.Method)
		if err != nil {
			return nil, err
		}
		d.Method = m
	}
	d.URL = convertVariables(res.URL)

	for _, p := range res.Parameters {
		if p.Disabled || p.Name == "" {
			continue
		}
		d.Params.Append(p.Name, convertVariables(p.Value))
	}

	for _, h := range res.Headers {
		if h.Disabled || h.Name == "" {
			continue
		}
		if strings.EqualFold(h.Name, "Content-Type") {
			if ct, ok := http.ContentTypeForMIME(h.Value); ok {
				d.ContentType = ct
				continue
			}
		}
		d.Headers.Append(h.Name, convertVariables(h.Value))
	}

	if res.Body != nil && res.Body.Text != "" {
		d.Body = convertVariables(res.Body.Text)
		if ct, ok := http.ContentTypeForMIME(res.Body.MimeType); ok {
			d.ContentType = ct
		}
	}

	if a := res.Authentication; a != nil && !a.Disabled {
		switch a.Type {
		case "basic":
			d.Auth = auth.BasicAuth(convertVariables(a.Username), convertVariables(a.Password))
		case "bearer":
			if a.Prefix == "" || strings.EqualFold(a.Prefix, "Bearer") {
				d.Auth = auth.BearerToken(convertVariables(a.Token))
			} else {
				d.Headers.Append("Authorization", a.Prefix+" "+convertVariables(a.Token))
			}
		}
	}
	return d, nil
}

func folderPath(parentID string, folders map[string]Resource) string {
	var path []string
	seen := make(map[string]bool)
	for id := parentID; !seen[id]; {
		folder, ok := folders[id]
		if !ok {
			break
		}
		seen[id] = true
		path = append([]string{folder.Name}, path...)
		id = folder.ParentID
	}
	return strings.Join(path, "/")
}

// mergeVariables flattens base and then env into sorted pairs; keys in env
// win. Nested objects become dotted keys and other values are rendered as
// JSON.
func mergeVariables(base, env map[string]any) []kv.Pair {
	flat := make(map[string]string)
	flatten("", base, flat)
	flatten("", env, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]kv.Pair, len(keys))
	for i, k := range keys {
		pairs[i] = kv.Pair{Key: k, Value: flat[k]}
	}
	return pairs
}

func flatten(prefix string, data map[string]any, out map[string]string) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = convertVariables(val)
		case nil:
			out[key] = ""
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[key] = string(b)
		}
	}
}

func convertVariables(s string) string {
	return variablePattern.ReplaceAllString(s, "{{$1}}")
}

func slug(s string) string {
	return strings.Trim(nonWordPattern.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
