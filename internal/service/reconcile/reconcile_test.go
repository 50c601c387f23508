package reconcile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id  string
	qty int
}

func (r row) RowID() string { return r.id }

func (r row) WithRowID(id string) row {
	r.id = id

	return r
}

func counterIDs() func() string {
	n := 0

	return func() string {
		n++

		return fmt.Sprintf("new-%d", n)
	}
}

// apply plays a plan against a persisted set the way the repositories do.
func apply(existing []row, plan Plan[row]) map[string]row {
	persisted := map[string]row{}
	for _, r := range existing {
		persisted[r.id] = r
	}
	for _, id := range plan.Delete {
		delete(persisted, id)
	}
	for _, r := range plan.Upsert {
		persisted[r.id] = r
	}

	return persisted
}

func TestReconcileRemovesMissingRow(t *testing.T) {
	existing := []row{{id: "a", qty: 1}, {id: "b", qty: 2}}
	incoming := []row{{id: "a", qty: 5}}

	plan := Reconcile(existing, incoming, counterIDs())

	assert.Equal(t, []row{{id: "a", qty: 5}}, plan.Upsert)
	assert.Equal(t, []string{"b"}, plan.Delete)
	assert.Equal(t, []string{"a"}, plan.Kept)
	assert.Equal(t, map[string]row{"a": {id: "a", qty: 5}}, apply(existing, plan))
}

func TestReconcileAllocatesIDs(t *testing.T) {
	existing := []row{{id: "new-1"}}
	incoming := []row{{qty: 1}, {id: "x", qty: 2}, {qty: 3}}

	used := map[string]bool{"new-1": true, "x": true}
	ids := counterIDs()
	fresh := func() string {
		for {
			id := ids()
			if !used[id] {
				used[id] = true

				return id
			}
		}
	}

	plan := Reconcile(existing, incoming, fresh)

	require.Len(t, plan.Upsert, 3)
	assert.Equal(t, "new-2", plan.Upsert[0].id)
	assert.Equal(t, "x", plan.Upsert[1].id)
	assert.Equal(t, "new-3", plan.Upsert[2].id)
	assert.Equal(t, []string{"new-1"}, plan.Delete)
}

func TestReconcileDuplicateIDsCollapse(t *testing.T) {
	plan := Reconcile(nil, []row{{id: "a", qty: 1}, {id: "b"}, {id: "a", qty: 9}}, counterIDs())

	assert.Equal(t, []row{{id: "a", qty: 9}, {id: "b"}}, plan.Upsert)
	assert.Empty(t, plan.Delete)
}

func TestReconcileEmptyIncomingDeletesEverything(t *testing.T) {
	existing := []row{{id: "a"}, {id: "b"}}

	plan := Reconcile(existing, nil, counterIDs())

	assert.Empty(t, plan.Upsert)
	assert.Equal(t, []string{"a", "b"}, plan.Delete)
	assert.Empty(t, apply(existing, plan))
}

func TestReconcileSetEquality(t *testing.T) {
	cases := []struct {
		existing []row
		incoming []row
	}{
		{nil, nil},
		{nil, []row{{}, {}}},
		{[]row{{id: "a"}}, []row{{id: "a"}}},
		{[]row{{id: "a"}, {id: "b"}, {id: "c"}}, []row{{id: "c"}, {}, {id: "d"}}},
		{[]row{{id: "a"}}, []row{{id: "b"}, {id: "b"}}},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			plan := Reconcile(tc.existing, tc.incoming, counterIDs())
			persisted := apply(tc.existing, plan)

			want := map[string]bool{}
			for _, r := range plan.Upsert {
				want[r.id] = true
			}
			got := map[string]bool{}
			for id := range persisted {
				got[id] = true
			}
			assert.Equal(t, want, got)

			for _, r := range tc.incoming {
				if r.id != "" {
					assert.True(t, got[r.id], "incoming id %q missing", r.id)
				}
			}
		})
	}
}
