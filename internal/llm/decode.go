package llm

import (
	"encoding/json"
	"strings"
)

// DecodeJSON decodes a structured value out of free model text. It strips
// markdown fences, tries a direct parse, then parses the first balanced
// {...} span. It reports false instead of failing.
func DecodeJSON(raw string, v any) bool {
	text := StripCodeFences(raw)
	if text == "" {
		return false
	}
	if json.Unmarshal([]byte(text), v) == nil {
		return true
	}
	span := FirstJSONObject(text)
	if span == "" {
		return false
	}
	return json.Unmarshal([]byte(span), v) == nil
}

// StripCodeFences removes a ```lang ... ``` wrapper if present
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	firstNewline := strings.Index(trimmed, "\n")
	if firstNewline == -1 {
		return trimmed
	}
	lastFence := strings.LastIndex(trimmed, "```")
	if lastFence <= firstNewline {
		return strings.TrimSpace(trimmed[firstNewline+1:])
	}
	return strings.TrimSpace(trimmed[firstNewline+1 : lastFence])
}

// FirstJSONObject returns the first balanced {...} span, skipping braces
// inside string literals
func FirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	for start != -1 {
		depth := 0
		inString := false
		escaped := false
	scan:
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
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate
					}
					break scan
				}
			}
		}
		next := strings.Index(s[start+1:], "{")
		if next == -1 {
			return ""
		}
		start += next + 1
	}
	return ""
}
