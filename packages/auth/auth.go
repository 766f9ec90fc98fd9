// Package auth models request authorization as a closed set of credential
// kinds and projects the active one onto an Authorization header.
package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind selects the active credential variant.
type Kind int

const (
	None Kind = iota
	Bearer
	Basic
)

// Kinds lists every variant in display order.
var Kinds = []Kind{None, Bearer, Basic}

func (k Kind) String() string {
	switch k {
	case None:
		return "No Auth"
	case Bearer:
		return "Bearer Token"
	case Basic:
		return "Basic Auth"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps the short names used in request files ("none", "bearer",
// "basic") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "bearer":
		return Bearer, nil
	case "basic":
		return Basic, nil
	default:
		return None, fmt.Errorf("unknown auth type: %q", s)
	}
}

// Credential is a tagged variant. Only the fields belonging to Kind are
// meaningful; the constructors and Switch keep the others empty.
type Credential struct {
	kind     Kind
	token    string
	username string
	password string
}

// NoAuth returns the empty credential.
func NoAuth() Credential {
	return Credential{}
}

// BearerToken returns a bearer credential.
func BearerToken(token string) Credential {
	return Credential{kind: Bearer, token: token}
}

// BasicAuth returns a basic credential.
func BasicAuth(username, password string) Credential {
	return Credential{kind: Basic, username: username, password: password}
}

// Kind reports the active variant.
func (c Credential) Kind() Kind {
	return c.kind
}

// Token returns the bearer token, or "" for other variants.
func (c Credential) Token() string {
	return c.token
}

// User returns the basic auth username and password, or empty strings for
// other variants.
func (c Credential) User() (username, password string) {
	return c.username, c.password
}

// Switch returns an empty credential of the given kind. Values of the
// previous variant are discarded even when the kind does not change.
func (c Credential) Switch(k Kind) Credential {
	return Credential{kind: k}
}

// Header returns the Authorization header value for the credential.
// ok is false when no header should be sent: for None, for an empty bearer
// token, and for basic auth with both username and password empty.
func (c Credential) Header() (value string, ok bool) {
	switch c.kind {
	case Bearer:
		if c.token == "" {
			return "", false
		}
		return "Bearer " + c.token, true
	case Basic:
		if c.username == "" && c.password == "" {
			return "", false
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
		return "Basic " + encoded, true
	default:
		return "", false
	}
}
