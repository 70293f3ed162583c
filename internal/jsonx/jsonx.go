// Package jsonx extracts JSON payloads from sloppy LLM output: fenced code
// blocks, leading prose, trailing commentary.
package jsonx

import "strings"

// ExtractObject returns the first balanced top-level JSON object in s.
func ExtractObject(s string) (string, bool) {
	return extract(s, '{', '}')
}

// ExtractArray returns the first balanced top-level JSON array in s.
func ExtractArray(s string) (string, bool) {
	return extract(s, '[', ']')
}

func extract(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
