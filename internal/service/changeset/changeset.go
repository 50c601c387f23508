// Package changeset diffs two versions of a record into the field changes
// recorded by the audit log.
package changeset

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Change is the old and new value of one field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeSet maps field names to their change.
type ChangeSet map[string]Change

// Diff returns the fields of after whose value differs from the same field of
// before. A key missing from before counts as changed even when its new value
// is nil. Keys only present in before are ignored. Nested values are compared
// as a whole and reported in full.
func Diff(before, after map[string]any) ChangeSet {
	changes := ChangeSet{}
	for key, newValue := range after {
		oldValue, ok := before[key]
		if ok && cmp.Equal(oldValue, newValue) {
			continue
		}
		changes[key] = Change{Old: oldValue, New: newValue}
	}

	return changes
}

// Snapshot flattens v into a field map keyed by its JSON field names.
func Snapshot(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return fields, nil
}

// DiffValues snapshots before and after and diffs them.
func DiffValues(before, after any) (ChangeSet, error) {
	b, err := Snapshot(before)
	if err != nil {
		return nil, err
	}
	a, err := Snapshot(after)
	if err != nil {
		return nil, err
	}

	return Diff(b, a), nil
}
