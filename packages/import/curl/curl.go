// Package curl turns curl command lines into request drafts and back.
package curl

import (
	"bufio"
	"fmt"
	"io"
	neturl "net/url"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

var (
	pathPattern    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^/?#]+(/[^?#]*)?`)
	nonWordPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// Command is one parsed curl invocation.
type Command struct {
	Draft *http.Draft
	// Insecure and FollowRedirects record -k and -L. They are client
	// settings, not part of the draft.
	Insecure        bool
	FollowRedirects bool
}

// Name suggests a file name for the request, e.g. "post_users_id".
func (c *Command) Name() string {
	path := "root"
	if m := pathPattern.FindStringSubmatch(c.Draft.URL); len(m) > 1 && strings.Trim(m[1], "/") != "" {
		path = m[1]
	}
	name := strings.ToLower(string(c.Draft.Method)) + "_" + strings.ToLower(path)
	return strings.Trim(nonWordPattern.ReplaceAllString(name, "_"), "_")
}

// Parse reads a single curl command. The leading "curl" is optional.
func Parse(cmdline string) (*Command, error) {
	tokens := tokenize(strings.TrimSpace(cmdline))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	d := http.NewDraft()
	cmd := &Command{Draft: d}
	var (
		method  string
		rawURL  string
		body    []string
		getData bool
	)

	next := func(i int, flag string) (string, error) {
		if i+1 >= len(tokens) {
			return "", fmt.Errorf("missing value for %s", flag)
		}
		return tokens[i+1], nil
	}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		switch token {
		case "-X", "--request":
			v, err := next(i, token)
			if err != nil {
				return nil, err
			}
			method = v
			i++

		case "-H", "--header":
			v, err := next(i, token)
			if err != nil {
				return nil, err
			}
			addHeader(d, v)
			i++

		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii", "--data-urlencode":
			v, err := next(i, token)
			if err != nil {
				return nil, err
			}
			body = append(body, v)
			i++

		case "--json":
			v, err := next(i, token)
			if err != nil {
				return nil, err
			}
			body = append(body, v)
			d.ContentType = http.ContentJSON
			i++

		case "-u", "--user":
			v, err := next(i, token)
			if err != nil {
				return nil, err
			}
			user, pass, _ := strings.Cut(v, ":")
			d.Auth = auth.BasicAuth(user, pass)
			i++

		case "-A", "--user-agent", "-e", "--referer", "-b", "--cookie":
			v, err := next(i, token)
			if err != nil {
				return nil, err
			}
			d.Headers.Append(headerForFlag(token), v)
			i++

		case "-G", "--get":
			getData = true

		case "-I", "--head":
			method = string(http.MethodHead)

		case "-k", "--insecure":
			cmd.Insecure = true

		case "-L", "--location":
			cmd.FollowRedirects = true

		case "--url":
			v, err := next(i, token)
			if err != nil {
				return nil, err
			}
			rawURL = v
			i++

		default:
			if strings.HasPrefix(token, "-") {
				// Unknown flag: skip its value when it clearly has one
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i++
				}
				continue
			}
			if rawURL == "" {
				rawURL = token
			}
		}
	}

	if rawURL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}

	base, params := splitQuery(rawURL)
	d.URL = base
	for _, p := range params {
		d.Params.Append(p.Key, p.Value)
	}

	data := strings.Join(body, "&")
	switch {
	case getData && data != "":
		_, extra := splitQuery("?" + data)
		for _, p := range extra {
			d.Params.Append(p.Key, p.Value)
		}
	case data != "":
		d.Body = data
	}

	switch {
	case method != "":
		m, err := http.ParseMethod(method)
		if err != nil {
			return nil, err
		}
		d.Method = m
	case d.Body != "":
		d.Method = http.MethodPost
	}

	return cmd, nil
}

// ParseAll reads commands separated by newlines. Backslash continuations are
// joined; blank lines and # comments are skipped.
func ParseAll(r io.Reader) ([]*Command, error) {
	var (
		commands []*Command
		current  strings.Builder
		line     int
	)
	flush := func() error {
		if current.Len() == 0 {
			return nil
		}
		cmd, err := Parse(current.String())
		current.Reset()
		if err != nil {
			return fmt.Errorf("command ending on line %d: %w", line, err)
		}
		commands = append(commands, cmd)
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if current.Len() == 0 && (text == "" || strings.HasPrefix(text, "#")) {
			continue
		}
		if cont, ok := strings.CutSuffix(text, "\\"); ok {
			current.WriteString(cont)
			current.WriteString(" ")
			continue
		}
		current.WriteString(text)
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return commands, nil
}

// Format renders a composed request as a curl command line.
func Format(req *http.Request) string {
	parts := []string{"curl"}
	if req.Method != http.MethodGet {
		parts = append(parts, "-X", string(req.Method))
	}
	parts = append(parts, quote(req.URL))
	for _, h := range req.Headers {
		parts = append(parts, "-H", quote(h.Name+": "+h.Value))
	}
	if req.Body != nil {
		parts = append(parts, "--data-raw", quote(*req.Body))
	}
	return strings.Join(parts, " ")
}

// addHeader moves Authorization and Content-Type into the draft's
// credential and body format when they map onto them; anything else is kept
// as a header.
func addHeader(d *http.Draft, raw string) {
	name, value, ok := strings.Cut(raw, ":")
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	switch strings.ToLower(name) {
	case "authorization":
		if token, ok := strings.CutPrefix(value, "Bearer "); ok {
			d.Auth = auth.BearerToken(strings.TrimSpace(token))
			return
		}
	case "content-type":
		if ct, ok := http.ContentTypeForMIME(value); ok {
			d.ContentType = ct
			return
		}
	}
	d.Headers.Append(name, value)
}

func headerForFlag(flag string) string {
	switch flag {
	case "-A", "--user-agent":
		return "User-Agent"
	case "-e", "--referer":
		return "Referer"
	default:
		return "Cookie"
	}
}

// splitQuery separates the query string from rawURL and decodes it into
// ordered pairs. Pairs that fail to decode are kept verbatim.
func splitQuery(rawURL string) (string, []kv.Pair) {
	base, query, found := strings.Cut(rawURL, "?")
	if !found || query == "" {
		return base, nil
	}
	query, _, _ = strings.Cut(query, "#")

	var pairs []kv.Pair
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		if k, err := neturl.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := neturl.QueryUnescape(value); err == nil {
			value = v
		}
		pairs = append(pairs, kv.Pair{Key: key, Value: value})
	}
	return base, pairs
}

// tokenize splits a command line into words, honouring single quotes, double
// quotes and backslash escapes.
func tokenize(cmd string) []string {
	var (
		tokens  []string
		current strings.Builder
		started bool
		single  bool
		double  bool
		escaped bool
	)

	for _, r := range cmd {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && !single:
			escaped = true
			started = true
		case r == '\'' && !double:
			single = !single
			started = true
		case r == '"' && !single:
			double = !double
			started = true
		case (r == ' ' || r == '\t' || r == '\n') && !single && !double:
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "{{")
}

// quote wraps s in single quotes for a POSIX shell.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`!*?&;|<>(){}[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
