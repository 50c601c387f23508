// Package reconcile computes how to replace the child rows of a record with a
// new full set.
package reconcile

// Row is a child row with a stable string identity.
type Row[T any] interface {
	RowID() string
	WithRowID(id string) T
}

// Plan is the set of writes that turns the persisted rows into the incoming rows.
type Plan[T any] struct {
	// Upsert holds every incoming row, each carrying an id.
	Upsert []T
	// Delete holds the ids of persisted rows missing from the incoming set.
	Delete []string
	// Kept holds the ids of persisted rows that are updated in place.
	Kept []string
}

// Reconcile diffs incoming against existing by id. Incoming rows without an id
// are given newID(). When the incoming set repeats an id, the last occurrence wins.
func Reconcile[T Row[T]](existing, incoming []T, newID func() string) Plan[T] {
	ids := make([]string, 0, len(incoming))
	byID := make(map[string]T, len(incoming))
	for _, row := range incoming {
		id := row.RowID()
		if id == "" {
			id = newID()
			row = row.WithRowID(id)
		}
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = row
	}

	plan := Plan[T]{
		Upsert: make([]T, 0, len(ids)),
		Delete: []string{},
		Kept:   []string{},
	}
	for _, id := range ids {
		plan.Upsert = append(plan.Upsert, byID[id])
	}

	for _, row := range existing {
		id := row.RowID()
		if _, ok := byID[id]; ok {
			plan.Kept = append(plan.Kept, id)
		} else {
			plan.Delete = append(plan.Delete, id)
		}
	}

	return plan
}
