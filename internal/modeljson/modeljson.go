// Package modeljson recovers structured data from LLM responses that do not
// perfectly honor a JSON-output request. Parsing is three-tiered: a strict
// parse of the whole response, then a scan for the first balanced top-level
// JSON object or array embedded in prose, and finally a signal to the caller
// that only raw text is available.
package modeljson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON value could be recovered from the text;
// callers fall back to treating the response as unstructured full text.
var ErrNoJSON = errors.New("no json value found in model output")

// Extract returns the first JSON object or array found in raw. If raw itself
// is valid JSON it is returned unchanged.
func Extract(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrNoJSON
	}

	if json.Valid([]byte(trimmed)) && (trimmed[0] == '{' || trimmed[0] == '[') {
		return json.RawMessage(trimmed), nil
	}

	if candidate, ok := scanBalanced(trimmed); ok {
		return json.RawMessage(candidate), nil
	}
	return nil, ErrNoJSON
}

// Decode extracts the first JSON value from raw and unmarshals it into v.
func Decode(raw string, v any) error {
	msg, err := Extract(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(msg, v)
}

// scanBalanced finds the first balanced {...} or [...] region, tracking
// string literals and escapes so braces inside strings don't count.
func scanBalanced(s string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if s[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
