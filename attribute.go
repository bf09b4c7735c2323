/*
Package compositor – attribute sets and scalar handling.

Callers supply loosely-typed attribute maps; key rendering accepts only a
closed set of scalar kinds (string, integer, float, boolean). Containers and
nil are rejected explicitly rather than coerced.
*/
package compositor

import (
	"sort"
	"strconv"
	"strings"
)

// AttributeSet is the caller-supplied mapping from attribute name to value
// for one logical item or query. It is used transiently per operation and is
// never retained by the schema layer.
type AttributeSet map[string]any

// Names returns the attribute names present in the set, sorted for
// deterministic output.
func (a AttributeSet) Names() []string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy, so operations never mutate the caller's map.
func (a AttributeSet) Clone() AttributeSet {
	out := make(AttributeSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// scalarSegment converts a value to its key-segment string representation.
// Returns false for nil and for any non-scalar value.
func scalarSegment(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// cleanAttributes trims string values and, when nilIfEmpty is set, replaces
// empty strings, maps and slices with nil so they read as absent. Nested maps
// are cleaned recursively. The input map is not modified.
func cleanAttributes(values AttributeSet, nilIfEmpty bool) AttributeSet {
	out := make(AttributeSet, len(values))
	for k, v := range values {
		switch x := v.(type) {
		case string:
			v = strings.TrimSpace(x)
		case map[string]any:
			v = map[string]any(cleanAttributes(x, nilIfEmpty))
		}
		if nilIfEmpty && isEmptyValue(v) {
			v = nil
		}
		out[k] = v
	}
	return out
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

// presentNames returns the names of attributes whose values are non-nil,
// sorted. Nil values are declared-but-absent and do not satisfy placeholders.
func presentNames(values AttributeSet) []string {
	names := make([]string, 0, len(values))
	for k, v := range values {
		if v != nil {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
