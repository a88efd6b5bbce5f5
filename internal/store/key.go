package store

import "fmt"

// toKey renders a grouping value as a stable map key. Numbers coming out of
// firestore are int64/float64; everything else falls back to fmt.
func toKey(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case int64:
		return fmt.Sprintf("%d", value)
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	case bool:
		return fmt.Sprintf("%t", value)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}
