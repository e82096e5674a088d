package tools

import "strings"

// Args are decoded tool arguments. Numbers are float64 and arrays are []any.
type Args map[string]any

func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a Args) StringOr(key, fallback string) string {
	if s, ok := a[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Float reports whether key holds a number.
func (a Args) Float(key string) (float64, bool) {
	f, ok := a[key].(float64)
	return f, ok
}

func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Strings returns the string members of an array argument, or fallback when
// key is absent.
func (a Args) Strings(key string, fallback ...string) []string {
	raw, ok := a[key].([]any)
	if !ok {
		return fallback
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// containsFold reports whether substr occurs in s ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
