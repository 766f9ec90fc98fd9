package tui

import (
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

// parsePairs reads one pair per line, split on the first sep. Blank lines
// are skipped; a line without sep becomes a key with an empty value.
func parsePairs(text, sep string) []kv.Pair {
	var pairs []kv.Pair
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, sep)
		pairs = append(pairs, kv.Pair{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return pairs
}

func formatPairs(pairs []kv.Pair, sep string) string {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, p.Key+sep+p.Value)
	}
	return strings.Join(lines, "\n")
}

// authText is what the auth input shows for a credential: the token for
// bearer and user:pass for basic.
func authText(c auth.Credential) string {
	switch c.Kind() {
	case auth.Bearer:
		return c.Token()
	case auth.Basic:
		user, pass := c.User()
		if user == "" && pass == "" {
			return ""
		}
		return user + ":" + pass
	case auth.None:
		return ""
	}
	return ""
}

func parseAuth(kind auth.Kind, text string) auth.Credential {
	switch kind {
	case auth.Bearer:
		return auth.BearerToken(strings.TrimSpace(text))
	case auth.Basic:
		user, pass, _ := strings.Cut(text, ":")
		return auth.BasicAuth(user, pass)
	case auth.None:
		return auth.NoAuth()
	}
	return auth.NoAuth()
}

// saveDraft writes the editors into the active slot's draft.
func (m *Model) saveDraft() {
	s := m.slot()
	if s == nil {
		return
	}
	d := s.Draft
	d.URL = strings.TrimSpace(m.url.Value())
	d.Params.Replace(parsePairs(m.params.Value(), "="))
	d.Headers.Replace(parsePairs(m.headers.Value(), ":"))
	d.Body = m.body.Value()
	d.Auth = parseAuth(d.Auth.Kind(), m.auth.Value())
}

// loadDraft fills the editors from the active slot's draft.
func (m *Model) loadDraft() {
	s := m.slot()
	if s == nil {
		return
	}
	d := s.Draft
	m.url.SetValue(d.URL)
	m.url.CursorEnd()
	m.params.SetValue(formatPairs(d.Params.Pairs(), "="))
	m.headers.SetValue(formatPairs(d.Headers.Pairs(), ": "))
	m.body.SetValue(d.Body)
	m.auth.SetValue(authText(d.Auth))
	m.refreshResponse()
}
