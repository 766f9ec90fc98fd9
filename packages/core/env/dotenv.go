package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

// LoadDotEnv parses a KEY=VALUE file and returns its variables in file order.
// See ParseDotEnv for the accepted syntax.
func LoadDotEnv(path string) ([]kv.Pair, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	return ParseDotEnv(file)
}

// ParseDotEnv reads KEY=VALUE lines.
// Blank lines and lines starting with # are skipped, the line is split on the
// first =, and key and value are trimmed of surrounding whitespace. Quotes are
// kept as part of the value. Lines without = or with an empty key are skipped.
func ParseDotEnv(r io.Reader) ([]kv.Pair, error) {
	var result []kv.Pair
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		result = append(result, kv.Pair{Key: key, Value: value})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return result, nil
}
