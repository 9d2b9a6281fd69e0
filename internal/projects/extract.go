package projects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// extractItems reads a response body defensively: a top-level JSON array
// is used as-is, otherwise each dot-path probe is tried in order and the
// first non-empty collection wins. Returns nil when nothing matches.
func extractItems(body []byte, probes []string) []map[string]interface{} {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		var raw []interface{}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil
		}
		return toMaps(raw)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil
	}

	for _, probe := range probes {
		if items := toMaps(walkPath(payload, probe)); len(items) > 0 {
			return items
		}
	}
	return nil
}

// walkPath follows a dot-separated path through nested objects and
// returns the list found at the end, or nil.
func walkPath(payload map[string]interface{}, path string) []interface{} {
	current := payload
	parts := strings.Split(path, ".")
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil
		}
		if i == len(parts)-1 {
			list, _ := value.([]interface{})
			return list
		}
		current, ok = value.(map[string]interface{})
		if !ok {
			return nil
		}
	}
	return nil
}

func toMaps(raw []interface{}) []map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	return items
}

// stringField reads a field as a string, converting numeric IDs the
// upstream sometimes returns.
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}
