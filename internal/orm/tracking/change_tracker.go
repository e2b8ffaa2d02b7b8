// Package tracking records which attribute values of a record differ from
// the values last read from or written to the remote side.
package tracking

import (
	"maps"
	"reflect"
	"slices"
)

// Change is one modified value
type Change struct {
	Name string
	From any
	To   any
}

// Tracker holds the last synchronized values of a record. The zero value
// treats every present value as a change.
type Tracker struct {
	original map[string]any
}

// Reset marks values as synchronized
func (t *Tracker) Reset(values map[string]any) {
	t.original = make(map[string]any, len(values))
	for k, v := range values {
		t.original[k] = copyValue(v)
	}
}

// Changes diffs current against the synchronized values. A name missing
// from current is not a change: extras drop out of a record without being
// cleared remotely.
func (t *Tracker) Changes(current map[string]any) map[string]Change {
	changes := make(map[string]Change)
	for name, to := range current {
		from, ok := t.original[name]
		if ok && equal(from, to) {
			continue
		}
		changes[name] = Change{Name: name, From: from, To: to}
	}
	return changes
}

// Changed reports whether name differs from its synchronized value
func (t *Tracker) Changed(name string, current map[string]any) bool {
	to, ok := current[name]
	if !ok {
		return false
	}
	from, had := t.original[name]
	return !had || !equal(from, to)
}

// Names returns the changed names in lexical order
func Names(changes map[string]Change) []string {
	return slices.Sorted(maps.Keys(changes))
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// copyValue copies slices and maps so later in-place edits show up as changes
func copyValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	}
	return v
}
