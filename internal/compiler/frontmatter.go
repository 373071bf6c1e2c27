package compiler

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter is returned when a document opens a front
// matter block but never closes it.
var ErrMissingClosingDelimiter = errors.New("front matter: missing closing ---")

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// body. Documents without one return a nil map and the full content.
func SplitFrontMatter(content []byte) (map[string]interface{}, []byte, error) {
	nl := "\n"
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = "\r\n"
	}
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}

	rest := content[len(open):]
	var raw, body []byte
	switch {
	case bytes.HasPrefix(rest, open):
		body = rest[len(open):]
	default:
		closing := []byte(nl + "---" + nl)
		idx := bytes.Index(rest, closing)
		if idx < 0 {
			if !bytes.HasSuffix(rest, []byte(nl+"---")) {
				return nil, nil, ErrMissingClosingDelimiter
			}
			idx = len(rest) - len(nl+"---")
			raw, body = rest[:idx], nil
			break
		}
		raw, body = rest[:idx], rest[idx+len(closing):]
	}

	vars := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &vars); err != nil {
			return nil, nil, fmt.Errorf("front matter: %w", err)
		}
	}
	return vars, body, nil
}
