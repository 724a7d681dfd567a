package retry

import (
	"encoding/json"
	"sort"
	"strings"
)

// bodyMessage finds the first "message", "faultstring" or "title" string in a
// JSON error body. Nested objects are searched in key order.
func bodyMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	return findMessage(v)
}

func findMessage(v interface{}) string {
	switch t := v.(type) {
	case map[string]interface{}:
		for _, k := range []string{"message", "faultstring", "title"} {
			if s, ok := t[k].(string); ok && s != "" {
				return s
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := findMessage(t[k]); s != "" {
				return s
			}
		}
	case []interface{}:
		for _, e := range t {
			if s := findMessage(e); s != "" {
				return s
			}
		}
	}
	return ""
}
