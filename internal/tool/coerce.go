package tool

import "fmt"

// coerceMessage extracts a human-readable message from a tool's
// structured data, preferring in order: data.message, data.response,
// data.output, result.output (the top-level Output field), else a
// string rendering of the data map, else a generic placeholder. This is
// deterministic given a fixed ToolResult, per spec 8's round-trip law.
func coerceMessage(output string, data map[string]any) string {
	if v, ok := stringField(data, "message"); ok {
		return v
	}
	if v, ok := stringField(data, "response"); ok {
		return v
	}
	if v, ok := stringField(data, "output"); ok {
		return v
	}
	if output != "" {
		return output
	}
	if len(data) > 0 {
		return fmt.Sprintf("%v", data)
	}
	return "completed"
}

func stringField(data map[string]any, key string) (string, bool) {
	if data == nil {
		return "", false
	}
	v, ok := data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
