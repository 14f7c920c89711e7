// Package values converts loosely typed configuration values.
// TOML decodes integers as int64 and JSON as float64, so every
// numeric accessor accepts all three.
package values

import (
	"strconv"
	"time"
)

// String returns v as a string, or "" if it is not one.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int returns v as an int, or 0 if it is not numeric.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Float returns v as a float64, or 0 if it is not numeric.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Bool returns v as a bool, or false if it is not one.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// StringSlice returns v as a []string, dropping non-string elements.
func StringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Duration parses "90s"-style strings or whole seconds.
func Duration(v any) time.Duration {
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0
		}
		return parsed
	case int, int64, float64:
		return time.Duration(Int(d)) * time.Second
	default:
		return 0
	}
}
