package compliance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func stringValue(v any, fallback string) string {
	switch val := v.(type) {
	case string:
		if val != "" {
			return val
		}
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		if s := val.String(); s != "" {
			return s
		}
	}
	return fallback
}

func float64Value(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func stringSliceValue(v any) []string {
	switch val := v.(type) {
	case []string:
		return append([]string{}, val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringValue(item, ""); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func float64SliceValue(v any) []float64 {
	switch val := v.(type) {
	case []float64:
		return append([]float64{}, val...)
	case []int:
		out := make([]float64, len(val))
		for i, n := range val {
			out[i] = float64(n)
		}
		return out
	case []any:
		out := make([]float64, 0, len(val))
		for _, item := range val {
			f, _ := float64Value(item)
			out = append(out, f)
		}
		return out
	default:
		return nil
	}
}

func mapValue(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// isBlank matches the values a metric card treats as missing.
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// displayValue renders a scalar for a card or profile row.
func displayValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []any, []string:
		return strings.Join(stringSliceValue(val), ", ")
	}
	if f, ok := float64Value(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
