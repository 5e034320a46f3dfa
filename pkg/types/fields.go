// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValidationError reports a field that is absent, has the wrong shape, or
// holds a value outside its closed set.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// reqString extracts a required string field.
func reqString(m map[string]any, key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", &ValidationError{Field: key, Reason: "required field missing"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ValidationError{Field: key, Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	return s, nil
}

// optString extracts an optional string field, returning "" when absent.
func optString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// optStringList extracts an optional list-of-strings field. Both []string
// and []any (as produced by JSON and YAML decoding) are accepted;
// non-string elements are skipped.
func optStringList(m map[string]any, key string) []string {
	switch raw := m[key].(type) {
	case []string:
		return raw
	case []any:
		var out []string
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// reqBool extracts a required boolean field.
func reqBool(m map[string]any, key string) (bool, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return false, &ValidationError{Field: key, Reason: "required field missing"}
	}
	b, ok := raw.(bool)
	if !ok {
		return false, &ValidationError{Field: key, Reason: fmt.Sprintf("expected bool, got %T", raw)}
	}
	return b, nil
}

// reqFloat extracts a required numeric field. Any numeric-looking value is
// accepted (float, int, json.Number, or a numeric string) and stored as
// float64; range checks are a downstream concern.
func reqFloat(m map[string]any, key string) (float64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, &ValidationError{Field: key, Reason: "required field missing"}
	}
	f, ok := asFloat(raw)
	if !ok {
		return 0, &ValidationError{Field: key, Reason: fmt.Sprintf("expected number, got %T", raw)}
	}
	return f, nil
}

// asFloat converts a numeric-looking value to float64.
func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asMap converts a decoded mapping to map[string]any. YAML decoding can
// produce map[any]any keys, which are re-keyed here.
func asMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// asList converts a decoded sequence to []map[string]any, skipping
// non-mapping elements.
func asList(raw any) ([]map[string]any, bool) {
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}
