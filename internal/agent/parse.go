package agent

import (
	"encoding/json"
	"strings"
)

// parsedResponse is the tagged union of the two shapes the model may
// produce. Anything unparseable degrades to a final answer carrying the
// raw text, so a protocol-ignoring model still yields usable output.
type parsedResponse struct {
	isToolCall bool
	content    string
	tool       string
	input      string
}

// parseResponse interprets raw model output. It never fails: parse
// errors and unrecognized shapes fall through to a final answer.
func parseResponse(raw string) parsedResponse {
	cleaned := stripCodeFence(strings.TrimSpace(raw))

	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") {
		return parsedResponse{content: raw}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return parsedResponse{content: raw}
	}

	typ := stringField(fields, "type")
	tool := coercedField(fields, "tool")

	if typ == "tool_call" || (typ == "" && tool != "") {
		if tool != "" {
			return parsedResponse{
				isToolCall: true,
				tool:       tool,
				input:      inputField(fields),
			}
		}
	}

	if typ == "final" {
		return parsedResponse{content: stringField(fields, "content")}
	}

	return parsedResponse{content: raw}
}

// inputField reads the tool input, falling back through the aliases
// models actually produce, coercing non-string values to a JSON string.
func inputField(fields map[string]json.RawMessage) string {
	for _, key := range []string{"input", "tool_input", "arguments"} {
		if raw, ok := fields[key]; ok {
			return coerceString(raw)
		}
	}
	return ""
}

// coercedField reads a field with the same loose string coercion as
// inputField, so a numeric or object value still dispatches instead of
// silently degrading the reply.
func coercedField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	return coerceString(raw)
}

func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stripCodeFence removes a single wrapping fenced code block: an opening
// line of three backticks with an optional language tag through the
// matching closing fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := s[3:]
	// Drop an optional language tag such as "json".
	rest = strings.TrimLeft(rest, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	rest = strings.TrimPrefix(rest, "\n")
	rest = strings.TrimSuffix(strings.TrimSpace(rest), "```")
	return strings.TrimSpace(rest)
}
