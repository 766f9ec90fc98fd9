package env

import (
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

var variablePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver replaces {{key}} tokens with variable values.
//
// Replacement is a single left-to-right pass over the input: a substituted
// value is emitted as-is and never scanned again, so a value that itself
// contains {{key}} stays literal. When a key is declared more than once the
// first declaration wins. Tokens without a matching variable are kept.
// A Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	replacer *strings.Replacer
	known    map[string]struct{}
	warnFunc WarnFunc
}

// NewResolver builds a resolver over vars. Variables with an empty key are
// ignored.
func NewResolver(vars []kv.Pair) *Resolver {
	r := &Resolver{known: make(map[string]struct{}, len(vars))}
	oldnew := make([]string, 0, len(vars)*2)
	for _, v := range vars {
		if v.Key == "" {
			continue
		}
		if _, dup := r.known[v.Key]; dup {
			continue
		}
		r.known[v.Key] = struct{}{}
		oldnew = append(oldnew, "{{"+v.Key+"}}", v.Value)
	}
	if len(oldnew) > 0 {
		r.replacer = strings.NewReplacer(oldnew...)
	}
	return r
}

// WithWarnFunc returns a copy of the resolver that reports unresolved tokens
// to fn.
func (r *Resolver) WithWarnFunc(fn WarnFunc) *Resolver {
	clone := *r
	clone.warnFunc = fn
	return &clone
}

func (r *Resolver) warn(format string, args ...any) {
	if r.warnFunc != nil {
		r.warnFunc(format, args...)
	}
}

// Resolve substitutes every known token in input.
func (r *Resolver) Resolve(input string) string {
	if r.warnFunc != nil {
		for _, name := range r.GetUnresolvedVariables(input) {
			r.warn("unresolved variable: %s", name)
		}
	}
	if r.replacer == nil {
		return input
	}
	return r.replacer.Replace(input)
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.known[name]
	return ok
}

// HasUnresolvedVariables reports whether input contains tokens without a
// matching variable.
func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return len(r.GetUnresolvedVariables(input)) > 0
}

// GetUnresolvedVariables returns the names of tokens in input that have no
// matching variable, in order of appearance.
func (r *Resolver) GetUnresolvedVariables(input string) []string {
	var names []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		if !r.HasVariable(m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}
