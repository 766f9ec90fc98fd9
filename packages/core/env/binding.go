package env

import (
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

// Binding is a named set of substitution variables. ID is assigned by the
// environment store; zero means the binding has not been persisted.
type Binding struct {
	ID             int64
	Name           string
	Variables      []kv.Pair
	DefaultBaseURL *string
}

func (b *Binding) String() string {
	if b == nil {
		return ""
	}
	return b.Name
}

// Lookup returns the value of the first variable declared with key.
func (b *Binding) Lookup(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	for _, v := range b.Variables {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Keys returns variable names in declaration order.
func (b *Binding) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.Variables))
	for _, v := range b.Variables {
		keys = append(keys, v.Key)
	}
	return keys
}

// Set updates the first variable declared with key, or appends one.
func (b *Binding) Set(key, value string) {
	for i := range b.Variables {
		if b.Variables[i].Key == key {
			b.Variables[i].Value = value
			return
		}
	}
	b.Variables = append(b.Variables, kv.Pair{Key: key, Value: value})
}

// Unset removes every variable declared with key and reports whether any was
// found.
func (b *Binding) Unset(key string) bool {
	kept := b.Variables[:0]
	for _, v := range b.Variables {
		if v.Key != key {
			kept = append(kept, v)
		}
	}
	removed := len(kept) != len(b.Variables)
	b.Variables = kept
	return removed
}

// BaseURL returns the default base URL when one is set and non-empty.
func (b *Binding) BaseURL() (string, bool) {
	if b == nil || b.DefaultBaseURL == nil || *b.DefaultBaseURL == "" {
		return "", false
	}
	return *b.DefaultBaseURL, true
}

// SetBaseURL sets the default base URL; an empty string clears it.
func (b *Binding) SetBaseURL(u string) {
	if u == "" {
		b.DefaultBaseURL = nil
		return
	}
	b.DefaultBaseURL = &u
}

// Clone returns a deep copy so callers can edit without touching the
// original, e.g. the active binding of a session.
func (b *Binding) Clone() *Binding {
	if b == nil {
		return nil
	}
	clone := &Binding{ID: b.ID, Name: b.Name}
	if b.Variables != nil {
		clone.Variables = make([]kv.Pair, len(b.Variables))
		copy(clone.Variables, b.Variables)
	}
	if b.DefaultBaseURL != nil {
		u := *b.DefaultBaseURL
		clone.DefaultBaseURL = &u
	}
	return clone
}

// Resolver returns a substitution resolver over the binding's variables.
func (b *Binding) Resolver() *Resolver {
	if b == nil {
		return NewResolver(nil)
	}
	return NewResolver(b.Variables)
}
