package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Args are the decoded arguments of a tool call with the Azure context keys
// already removed.
type Args map[string]interface{}

// String returns the named argument as a string. Missing, nil and empty
// values yield def; non-string scalars are formatted.
func (a Args) String(key, def string) string {
	switch v := a[key].(type) {
	case nil:
		return def
	case string:
		if v == "" {
			return def
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the named argument as an int. JSON numbers arrive as float64;
// numeric strings are accepted as well.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the named argument as a bool. "true"/"false" strings count.
func (a Args) Bool(key string, def bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// OptionalBool is Bool without a default: nil when the argument is absent.
func (a Args) OptionalBool(key string) *bool {
	if _, ok := a[key]; !ok {
		return nil
	}
	b := a.Bool(key, false)
	return &b
}

// Value returns the raw argument, nil when absent.
func (a Args) Value(key string) interface{} {
	return a[key]
}

// Object returns the named argument when it is a JSON object.
func (a Args) Object(key string) map[string]interface{} {
	m, _ := a[key].(map[string]interface{})
	return m
}

// Strings returns the named argument as a list of strings. A single string
// becomes a one element list; non-string items are formatted.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// StringMap returns a JSON object argument with every value formatted as a
// string, as needed for key=value command line settings.
func (a Args) StringMap(key string) map[string]string {
	obj := a.Object(key)
	if obj == nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
