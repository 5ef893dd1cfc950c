package flow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError is the typed failure result of decoding a generator response
// against a node's schema. Node control flow branches on its presence
// rather than intercepting panics or generic errors.
type DecodeError struct {
	Node string
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode generator output: %v", e.Node, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeJSON parses generator output into the node's expected record. It
// tolerates markdown code fences and prose around the JSON object. The
// returned *DecodeError is nil exactly when the record is valid.
func decodeJSON[T any](node, raw string) (T, *DecodeError) {
	var out T
	candidate := extractJSON(raw)
	if candidate == "" {
		return out, &DecodeError{Node: node, Raw: raw, Err: fmt.Errorf("no JSON object found")}
	}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return out, &DecodeError{Node: node, Raw: raw, Err: err}
	}
	return out, nil
}

// extractJSON isolates the outermost JSON object from generator text.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
