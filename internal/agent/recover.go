package agent

import (
	"encoding/json"
	"strings"
)

// RawResponseKey holds the reply text when no JSON could be recovered.
const RawResponseKey = "raw_response"

// Decode parses an agent reply. Replies that are not valid JSON go through RecoverJSON.
func Decode(raw []byte) map[string]any {
	return RecoverJSON(string(raw))
}

// RecoverJSON extracts a JSON value from text that may be wrapped in prose.
//
// It parses the whole text first. Failing that it slices from the first '{' or
// '[' (whichever comes first) to the last matching closer, then tries the other
// opener. Arrays are returned as {"data": [...]}. When nothing parses the text
// is returned under RawResponseKey.
func RecoverJSON(text string) map[string]any {
	text = strings.TrimSpace(text)
	if v, ok := parse(text); ok {
		return v
	}

	brace := strings.IndexByte(text, '{')
	bracket := strings.IndexByte(text, '[')
	order := []byte{'{', '['}
	if bracket >= 0 && (brace < 0 || bracket < brace) {
		order = []byte{'[', '{'}
	}

	for _, open := range order {
		closer := byte('}')
		if open == '[' {
			closer = ']'
		}
		start := strings.IndexByte(text, open)
		end := strings.LastIndexByte(text, closer)
		if start < 0 || end <= start {
			continue
		}
		if v, ok := parse(text[start : end+1]); ok {
			return v
		}
	}
	return map[string]any{RawResponseKey: text}
}

// IsRaw reports whether Decode fell back to the raw text.
func IsRaw(m map[string]any) bool {
	_, ok := m[RawResponseKey]
	return ok && len(m) == 1
}

func parse(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		return map[string]any{"data": t}, true
	default:
		return nil, false
	}
}
