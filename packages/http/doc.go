// Package http composes editable request drafts into outbound requests and
// executes them.
//
// It wraps the standard library's http package with:
//   - Query encoding and header ordering for drafts (Compose)
//   - Environment variable substitution through env.Binding
//   - A shared, configurable client (timeouts, redirects, proxy, TLS)
//   - Response capture with timing and size
//   - YAML request files (LoadDraft, SaveDraft)
package http
