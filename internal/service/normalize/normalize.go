// Package normalize rewrites decimal commas in decoded JSON payloads.
//
// Numeric text fields (costs, quantities) may arrive with a comma as the decimal
// separator. Normalize replaces every comma in every string of a decoded
// payload with a period so the values parse downstream. Free-text fields are
// rewritten as well unless their keys are listed as skipped on a Normalizer.
package normalize

import "strings"

// Normalize returns v with every comma in every string replaced by a period.
// Maps and slices are rebuilt with the same keys and length; other scalars
// are returned unchanged.
func Normalize(v any) any {
	return (&Normalizer{}).Normalize(v)
}

// Normalizer is a Normalize with a set of map keys whose values are left untouched.
type Normalizer struct {
	skip map[string]struct{}
}

// NewNormalizer creates a Normalizer that does not descend into values stored under skip keys.
func NewNormalizer(skip ...string) *Normalizer {
	n := &Normalizer{skip: make(map[string]struct{}, len(skip))}
	for _, key := range skip {
		n.skip[key] = struct{}{}
	}

	return n
}

// Normalize rewrites v. See the package-level Normalize.
func (n *Normalizer) Normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			if _, ok := n.skip[key]; ok {
				out[key] = item

				continue
			}
			out[key] = n.Normalize(item)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = n.Normalize(item)
		}

		return out
	case string:
		return strings.ReplaceAll(val, ",", ".")
	default:
		return v
	}
}
