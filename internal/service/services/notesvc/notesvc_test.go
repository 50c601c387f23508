package notesvc

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/inoterepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/changeset"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
	"github.com/corray333/backend-labs/orderdesk/internal/service/sequence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memNotes is an in-memory delivery note store. Transactions are not
// simulated: every write is applied immediately.
type memNotes struct {
	mu       sync.Mutex
	notes    map[int64]deliverynote.Note
	lastID   int64
	items    map[string]deliverynote.Item
	counters map[string]int64
}

func newMemNotes() *memNotes {
	return &memNotes{
		notes:    map[int64]deliverynote.Note{},
		items:    map[string]deliverynote.Item{},
		counters: map[string]int64{},
	}
}

func (m *memNotes) seed(n deliverynote.Note) deliverynote.Note {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	n.ID = m.lastID
	items := n.Items
	n.Items = nil
	m.notes[n.ID] = n
	for _, item := range items {
		item.NoteID = n.ID
		m.items[item.ID] = item
	}

	return n
}

func (m *memNotes) itemIDs(noteID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, item := range m.items {
		if item.NoteID == noteID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids
}

func (m *memNotes) newUOW() unitOfWork { return memUOW{m} }

type memUOW struct{ m *memNotes }

func (memUOW) Begin(context.Context) error    { return nil }
func (memUOW) Commit(context.Context) error   { return nil }
func (memUOW) Rollback(context.Context) error { return nil }

func (u memUOW) NoteRepository() inoterepo.INoteRepository         { return u }
func (u memUOW) NoteItemRepository() inoterepo.INoteItemRepository { return memItems(u) }
func (u memUOW) SequenceRepository() sequence.Store                { return memSequence(u) }

func (u memUOW) Insert(_ context.Context, n deliverynote.Note) (deliverynote.Note, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	u.m.lastID++
	n.ID = u.m.lastID
	stored := n
	stored.Items = nil
	u.m.notes[n.ID] = stored

	return n, nil
}

func (u memUOW) Update(_ context.Context, n deliverynote.Note) (deliverynote.Note, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	if _, ok := u.m.notes[n.ID]; !ok {
		return deliverynote.Note{}, postgres.ErrNotFound
	}
	stored := n
	stored.Items = nil
	u.m.notes[n.ID] = stored

	return n, nil
}

func (u memUOW) GetByID(_ context.Context, id int64) (deliverynote.Note, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	n, ok := u.m.notes[id]
	if !ok {
		return deliverynote.Note{}, postgres.ErrNotFound
	}

	return n, nil
}

func (u memUOW) GetForUpdate(ctx context.Context, id int64) (deliverynote.Note, error) {
	return u.GetByID(ctx, id)
}

func (u memUOW) Query(_ context.Context, filter *deliverynote.QueryNotesModel) ([]deliverynote.Note, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()

	var out []deliverynote.Note
	for _, n := range u.m.notes {
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, n.Type) {
			continue
		}
		if len(filter.OrderIds) > 0 && !slices.Contains(filter.OrderIds, n.OrderID) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out, nil
}

type memItems memUOW

func (r memItems) Upsert(_ context.Context, items []deliverynote.Item) ([]deliverynote.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	saved := []deliverynote.Item{}
	for _, item := range items {
		if prev, ok := r.m.items[item.ID]; ok && prev.NoteID != item.NoteID {
			continue
		}
		r.m.items[item.ID] = item
		saved = append(saved, item)
	}

	return saved, nil
}

func (r memItems) Delete(_ context.Context, noteID int64, ids []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, id := range ids {
		if item, ok := r.m.items[id]; ok && item.NoteID == noteID {
			delete(r.m.items, id)
		}
	}

	return nil
}

func (r memItems) QueryByNoteIDs(_ context.Context, noteIDs []int64) ([]deliverynote.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []deliverynote.Item
	for _, item := range r.m.items {
		if slices.Contains(noteIDs, item.NoteID) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

type memSequence memUOW

// count applies the note counting rule of a scope.
func (r memSequence) count(scope sequence.Scope) int64 {
	var n int64
	for _, note := range r.m.notes {
		if note.Type != scope.NoteType {
			continue
		}
		date := note.CreatedAt
		if note.IssueDate != nil {
			date = *note.IssueDate
		}
		if !date.Before(scope.From) && date.Before(scope.To) {
			n++
		}
	}

	return n
}

func (r memSequence) NextValue(_ context.Context, scope sequence.Scope) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	last, ok := r.m.counters[scope.Key]
	if !ok {
		last = r.count(scope)
	}
	r.m.counters[scope.Key] = last + 1

	return last + 1, nil
}

func (r memSequence) PeekValue(_ context.Context, scope sequence.Scope) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	last, ok := r.m.counters[scope.Key]
	if !ok {
		last = r.count(scope)
	}

	return last + 1, nil
}

type recordingAudit struct {
	entries []auditlog.Entry
}

func (a *recordingAudit) Record(_ context.Context, e auditlog.Entry) {
	a.entries = append(a.entries, e)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return &t
}

var now = time.Date(2024, time.March, 20, 15, 0, 0, 0, time.UTC)

func newTestService(m *memNotes) (*NoteService, *recordingAudit) {
	audit := &recordingAudit{}
	seq := 0

	return MustNewNoteService(
		WithUnitOfWork(m.newUOW),
		WithAuditSink(audit),
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			seq++

			return fmt.Sprintf("item-%d", seq)
		}),
	), audit
}

func seedMarch(m *memNotes) {
	m.seed(deliverynote.Note{Type: deliverynote.TypeWZN, IssueDate: date(2024, time.March, 1)})
	m.seed(deliverynote.Note{Type: deliverynote.TypeWZN, CreatedAt: *date(2024, time.March, 5)})
	m.seed(deliverynote.Note{Type: deliverynote.TypeWZN, IssueDate: date(2024, time.February, 28)})
	m.seed(deliverynote.Note{Type: deliverynote.TypeWZN, IssueDate: date(2024, time.April, 2), CreatedAt: *date(2024, time.March, 30)})
	for i := 0; i < 3; i++ {
		m.seed(deliverynote.Note{Type: deliverynote.TypeWZD, IssueDate: date(2024, time.March, 10)})
	}
}

func TestCreateNote_NumbersWithinTypeAndMonth(t *testing.T) {
	m := newMemNotes()
	seedMarch(m)
	s, audit := newTestService(m)

	wzn, err := s.CreateNote(context.Background(), deliverynote.Note{
		Type:      deliverynote.TypeWZN,
		OrderID:   1,
		IssueDate: date(2024, time.March, 15),
		Items:     []deliverynote.Item{{ProductID: "P1", Quantity: decimal.RequireFromString("2.5"), Unit: "m3"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), wzn.Number)
	require.Len(t, wzn.Items, 1)
	assert.Equal(t, "item-1", wzn.Items[0].ID)
	assert.Equal(t, wzn.ID, wzn.Items[0].NoteID)

	wzd, err := s.CreateNote(context.Background(), deliverynote.Note{
		Type:      deliverynote.TypeWZD,
		IssueDate: date(2024, time.March, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), wzd.Number)

	april, err := s.CreateNote(context.Background(), deliverynote.Note{
		Type:      deliverynote.TypeWZN,
		IssueDate: date(2024, time.April, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), april.Number)

	require.Len(t, audit.entries, 3)
	assert.Equal(t, auditlog.EntityDeliveryNote, audit.entries[0].Entity)
	assert.Equal(t, "WZN 3", audit.entries[0].EntityName)
}

func TestCreateNote_WithoutIssueDateUsesNow(t *testing.T) {
	m := newMemNotes()
	seedMarch(m)
	s, _ := newTestService(m)

	n, err := s.CreateNote(context.Background(), deliverynote.Note{Type: deliverynote.TypeWZN})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n.Number)
	assert.Nil(t, n.IssueDate)
}

func TestCreateNote_InvalidType(t *testing.T) {
	s, _ := newTestService(newMemNotes())

	_, err := s.CreateNote(context.Background(), deliverynote.Note{Type: "XYZ"})
	assert.ErrorIs(t, err, deliverynote.ErrInvalidType)
}

func TestNextNumber_DoesNotConsume(t *testing.T) {
	m := newMemNotes()
	seedMarch(m)
	s, _ := newTestService(m)
	march := *date(2024, time.March, 12)

	for i := 0; i < 2; i++ {
		n, err := s.NextNumber(context.Background(), deliverynote.TypeWZD, march)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	}

	created, err := s.CreateNote(context.Background(), deliverynote.Note{Type: deliverynote.TypeWZD, IssueDate: &march})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.Number)

	n, err := s.NextNumber(context.Background(), deliverynote.TypeWZD, march)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestUpdateNote_ReconcilesItems(t *testing.T) {
	m := newMemNotes()
	existing := m.seed(deliverynote.Note{
		Type:      deliverynote.TypeWZ,
		Number:    7,
		OrderID:   1,
		IssueDate: date(2024, time.March, 1),
		Items: []deliverynote.Item{
			{ID: "a", ProductID: "P1", Quantity: decimal.NewFromInt(1)},
			{ID: "b", ProductID: "P2", Quantity: decimal.NewFromInt(2)},
		},
	})
	s, audit := newTestService(m)

	updated, err := s.UpdateNote(context.Background(), existing.ID, deliverynote.Note{
		OrderID:   2,
		IssueDate: date(2024, time.March, 1),
		Items: []deliverynote.Item{
			{ID: "a", ProductID: "P1", Quantity: decimal.NewFromInt(4)},
			{ProductID: "P3", Quantity: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), updated.Number)
	assert.Equal(t, deliverynote.TypeWZ, updated.Type)
	assert.Equal(t, []string{"a", "item-1"}, m.itemIDs(existing.ID))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, changeset.ChangeSet{
		"orderId": {Old: float64(1), New: float64(2)},
	}, audit.entries[0].ChangedData)
}

func TestUpdateNote_UnchangedIssueDateIsNotAudited(t *testing.T) {
	m := newMemNotes()
	// As scanned back from timestamptz: server-local zone, microsecond precision.
	stored := time.Date(2024, time.March, 1, 1, 0, 0, 123000, time.FixedZone("CET", 3600))
	existing := m.seed(deliverynote.Note{Type: deliverynote.TypeWZ, Number: 2, OrderID: 1, IssueDate: &stored})
	s, audit := newTestService(m)

	submitted := time.Date(2024, time.March, 1, 0, 0, 0, 123456, time.UTC)
	_, err := s.UpdateNote(context.Background(), existing.ID, deliverynote.Note{OrderID: 1, IssueDate: &submitted})
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	assert.Empty(t, audit.entries[0].ChangedData)
}

func TestUpdateNote_Errors(t *testing.T) {
	m := newMemNotes()
	existing := m.seed(deliverynote.Note{Type: deliverynote.TypeWZ, Number: 1})
	s, _ := newTestService(m)

	_, err := s.UpdateNote(context.Background(), 99, deliverynote.Note{})
	assert.ErrorIs(t, err, ErrNoteNotFound)

	_, err = s.UpdateNote(context.Background(), existing.ID, deliverynote.Note{Type: deliverynote.TypeWZD})
	assert.ErrorIs(t, err, ErrTypeChange)
}

func TestGetAndListNotes(t *testing.T) {
	m := newMemNotes()
	first := m.seed(deliverynote.Note{Type: deliverynote.TypeWZ, OrderID: 1, Items: []deliverynote.Item{{ID: "x"}}})
	m.seed(deliverynote.Note{Type: deliverynote.TypeWZD, OrderID: 2})
	s, _ := newTestService(m)

	got, err := s.GetNote(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	_, err = s.GetNote(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNoteNotFound)

	notes, err := s.ListNotes(context.Background(), deliverynote.QueryNotesModel{Types: []deliverynote.Type{deliverynote.TypeWZ}})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, first.ID, notes[0].ID)
	assert.Len(t, notes[0].Items, 1)

	all, err := s.ListNotes(context.Background(), deliverynote.QueryNotesModel{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Empty(t, all[0].Items)
}
