package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a JSON object from a model response. Models wrap JSON
// in code fences or surround it with prose, so parsing runs as an ordered
// pipeline:
//
//  1. strict parse of the raw text,
//  2. strip ```json / ``` fences and parse again,
//  3. scan for the first balanced {...} span and parse that,
//  4. give up with a malformed error.
func ExtractJSON(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, Errorf(ErrorTypeEmpty, "empty response")
	}

	if obj, ok := tryParse(trimmed); ok {
		return obj, nil
	}
	if obj, ok := tryParse(stripFences(trimmed)); ok {
		return obj, nil
	}
	if span := firstBalancedObject(trimmed); span != "" {
		if obj, ok := tryParse(span); ok {
			return obj, nil
		}
	}
	return nil, Errorf(ErrorTypeMalformed, "no JSON object in response: %s", snippet(trimmed))
}

func tryParse(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stripFences removes a leading ```json or ``` fence and its closing fence.
func stripFences(s string) string {
	for _, prefix := range []string{"```json", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			s = strings.TrimSuffix(strings.TrimSpace(s), "```")
			return strings.TrimSpace(s)
		}
	}
	return s
}

// firstBalancedObject returns the first {...} span with balanced braces,
// ignoring braces inside JSON strings.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func snippet(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
