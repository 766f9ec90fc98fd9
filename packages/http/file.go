package http

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

// RequestFile is the on-disk YAML form of a Draft.
type RequestFile struct {
	Method      string    `yaml:"method"`
	URL         string    `yaml:"url"`
	Params      []kv.Pair `yaml:"params,omitempty"`
	Headers     []kv.Pair `yaml:"headers,omitempty"`
	Body        string    `yaml:"body,omitempty"`
	ContentType string    `yaml:"content_type,omitempty"`
	Auth        *AuthFile `yaml:"auth,omitempty"`
}

type AuthFile struct {
	Type  string `yaml:"type"`
	Token string `yaml:"token,omitempty"`
	User  string `yaml:"user,omitempty"`
	Pass  string `yaml:"pass,omitempty"`
}

// ParseDraft decodes a YAML request file.
func ParseDraft(data []byte) (*Draft, error) {
	var f RequestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return f.Draft()
}

// LoadDraft reads a request file from disk.
func LoadDraft(path string) (*Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseDraft(data)
}

// SaveDraft writes d as YAML, creating parent directories and adding a
// .yaml extension when path has none.
func SaveDraft(d *Draft, path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		path = path + ".yaml"
	}

	data, err := yaml.Marshal(FileFromDraft(d))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// Draft converts the file form into an editable draft.
func (f *RequestFile) Draft() (*Draft, error) {
	method := MethodGet
	if f.Method != "" {
		m, err := ParseMethod(f.Method)
		if err != nil {
			return nil, err
		}
		method = m
	}

	ct, err := ParseContentType(f.ContentType)
	if err != nil {
		return nil, err
	}

	cred := auth.NoAuth()
	if f.Auth != nil {
		kind, err := auth.ParseKind(f.Auth.Type)
		if err != nil {
			return nil, err
		}
		switch kind {
		case auth.Bearer:
			cred = auth.BearerToken(f.Auth.Token)
		case auth.Basic:
			cred = auth.BasicAuth(f.Auth.User, f.Auth.Pass)
		case auth.None:
		}
	}

	return &Draft{
		Method:      method,
		URL:         f.URL,
		Params:      kv.FromPairs(f.Params),
		Headers:     kv.FromPairs(f.Headers),
		Body:        f.Body,
		ContentType: ct,
		Auth:        cred,
	}, nil
}

// FileFromDraft is the inverse of RequestFile.Draft. Rows with an empty key
// are not written.
func FileFromDraft(d *Draft) *RequestFile {
	f := &RequestFile{
		Method:  string(d.Method),
		URL:     d.URL,
		Params:  d.Params.Pairs(),
		Headers: d.Headers.Pairs(),
		Body:    d.Body,
	}
	if d.Body != "" {
		f.ContentType = d.ContentType.String()
	}

	switch d.Auth.Kind() {
	case auth.Bearer:
		f.Auth = &AuthFile{Type: "bearer", Token: d.Auth.Token()}
	case auth.Basic:
		user, pass := d.Auth.User()
		f.Auth = &AuthFile{Type: "basic", User: user, Pass: pass}
	case auth.None:
	}
	return f
}
