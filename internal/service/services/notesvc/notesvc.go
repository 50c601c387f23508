package notesvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/inoterepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/uow"
	"github.com/corray333/backend-labs/orderdesk/internal/service/changeset"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
	"github.com/corray333/backend-labs/orderdesk/internal/service/reconcile"
	"github.com/corray333/backend-labs/orderdesk/internal/service/sequence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrNoteNotFound = errors.New("delivery note not found")
	// ErrTypeChange is returned when an update tries to move a note to another
	// type, which would break the numbering of both types.
	ErrTypeChange = errors.New("delivery note type cannot be changed")
	ErrForeignRow = errors.New("item belongs to another delivery note")
)

// NoteService manages delivery notes.
type NoteService struct {
	newUOW func() unitOfWork
	audit  auditSink
	now    func() time.Time
	newID  func() string
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	NoteRepository() inoterepo.INoteRepository
	NoteItemRepository() inoterepo.INoteItemRepository
	SequenceRepository() sequence.Store
}

type auditSink interface {
	Record(ctx context.Context, entry auditlog.Entry)
}

// option is a function that configures the NoteService.
type option func(*NoteService)

// MustNewNoteService creates a new NoteService.
func MustNewNoteService(opts ...option) *NoteService {
	s := &NoteService{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("note service requires a postgres client or a unit of work factory")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the NoteService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *NoteService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient.Pool())
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(f func() unitOfWork) option {
	return func(s *NoteService) {
		s.newUOW = f
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditSink(a auditSink) option {
	return func(s *NoteService) {
		s.audit = a
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *NoteService) {
		s.now = now
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithIDGenerator(f func() string) option {
	return func(s *NoteService) {
		s.newID = f
	}
}

// CreateNote numbers the note within its type and month and stores it with its items.
func (s *NoteService) CreateNote(ctx context.Context, n deliverynote.Note) (deliverynote.Note, error) {
	ctx, span := otel.Tracer("order-desk").Start(ctx, "NoteService.CreateNote")
	defer span.End()

	if _, err := deliverynote.ParseType(n.Type.String()); err != nil {
		return deliverynote.Note{}, err
	}

	now := s.now()
	n.CreatedAt = now
	n.UpdatedAt = now

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return deliverynote.Note{}, err
	}
	defer rollback(ctx, work)

	number, err := sequence.NewAllocator(work.SequenceRepository()).NextWzNumber(ctx, n.Type, n.PeriodDate(now))
	if err != nil {
		return deliverynote.Note{}, err
	}
	n.Number = number

	created, err := work.NoteRepository().Insert(ctx, n)
	if err != nil {
		return deliverynote.Note{}, err
	}

	items := make([]deliverynote.Item, len(n.Items))
	for i := range n.Items {
		items[i] = n.Items[i].WithRowID(s.newID())
	}
	created.Items, err = upsertItems(ctx, work, created.ID, items)
	if err != nil {
		return deliverynote.Note{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return deliverynote.Note{}, err
	}
	span.SetAttributes(attribute.Int64("note.id", created.ID), attribute.Int64("note.number", created.Number))

	s.record(ctx, auditlog.Entry{
		Entity:     auditlog.EntityDeliveryNote,
		EntityID:   strconv.FormatInt(created.ID, 10),
		EntityName: noteName(created),
		EventType:  auditlog.EventCreated,
		CreatedAt:  now,
	})

	return created, nil
}

// UpdateNote replaces the note header and reconciles its items. The number and
// type stay as allocated.
func (s *NoteService) UpdateNote(ctx context.Context, id int64, n deliverynote.Note) (deliverynote.Note, error) {
	ctx, span := otel.Tracer("order-desk").Start(ctx, "NoteService.UpdateNote")
	defer span.End()
	span.SetAttributes(attribute.Int64("note.id", id))

	now := s.now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return deliverynote.Note{}, err
	}
	defer rollback(ctx, work)

	existing, err := work.NoteRepository().GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return deliverynote.Note{}, fmt.Errorf("%w: %d", ErrNoteNotFound, id)
		}

		return deliverynote.Note{}, err
	}
	if n.Type != "" && n.Type != existing.Type {
		return deliverynote.Note{}, fmt.Errorf("%w: %s to %s", ErrTypeChange, existing.Type, n.Type)
	}

	existingItems, err := work.NoteItemRepository().QueryByNoteIDs(ctx, []int64{id})
	if err != nil {
		return deliverynote.Note{}, err
	}
	plan := reconcile.Reconcile(existingItems, n.Items, s.newID)

	n.ID = id
	n.Type = existing.Type
	n.Number = existing.Number
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = now

	updated, err := work.NoteRepository().Update(ctx, n)
	if err != nil {
		return deliverynote.Note{}, err
	}

	if err := work.NoteItemRepository().Delete(ctx, id, plan.Delete); err != nil {
		return deliverynote.Note{}, err
	}
	updated.Items, err = upsertItems(ctx, work, id, plan.Upsert)
	if err != nil {
		return deliverynote.Note{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return deliverynote.Note{}, err
	}

	changes, err := changeset.DiffValues(existing.Fields(), updated.Fields())
	if err != nil {
		slog.Error("Failed to diff delivery note for audit", "note_id", id, "error", err)
	}
	s.record(ctx, auditlog.Entry{
		Entity:      auditlog.EntityDeliveryNote,
		EntityID:    strconv.FormatInt(id, 10),
		EntityName:  noteName(updated),
		EventType:   auditlog.EventUpdated,
		ChangedData: changes,
		CreatedAt:   now,
	})

	return updated, nil
}

// GetNote retrieves a note with its items.
func (s *NoteService) GetNote(ctx context.Context, id int64) (deliverynote.Note, error) {
	work := s.newUOW()

	n, err := work.NoteRepository().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return deliverynote.Note{}, fmt.Errorf("%w: %d", ErrNoteNotFound, id)
		}

		return deliverynote.Note{}, err
	}

	items, err := work.NoteItemRepository().QueryByNoteIDs(ctx, []int64{id})
	if err != nil {
		return deliverynote.Note{}, err
	}
	n.Items = items

	return n, nil
}

// ListNotes retrieves notes matching the filter, with their items.
func (s *NoteService) ListNotes(ctx context.Context, filter deliverynote.QueryNotesModel) ([]deliverynote.Note, error) {
	work := s.newUOW()

	notes, err := work.NoteRepository().Query(ctx, &filter)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return []deliverynote.Note{}, nil
	}

	ids := make([]int64, len(notes))
	byID := make(map[int64]int, len(notes))
	for i := range notes {
		ids[i] = notes[i].ID
		byID[notes[i].ID] = i
		notes[i].Items = []deliverynote.Item{}
	}

	items, err := work.NoteItemRepository().QueryByNoteIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if i, ok := byID[item.NoteID]; ok {
			notes[i].Items = append(notes[i].Items, item)
		}
	}

	return notes, nil
}

// NextNumber returns the number the next note of type t dated date would get.
func (s *NoteService) NextNumber(ctx context.Context, t deliverynote.Type, date time.Time) (int64, error) {
	return sequence.NewAllocator(s.newUOW().SequenceRepository()).PeekWzNumber(ctx, t, date)
}

func upsertItems(
	ctx context.Context,
	work unitOfWork,
	noteID int64,
	items []deliverynote.Item,
) ([]deliverynote.Item, error) {
	for i := range items {
		items[i].NoteID = noteID
	}

	saved, err := work.NoteItemRepository().Upsert(ctx, items)
	if err != nil {
		return nil, err
	}
	if len(saved) != len(items) {
		return nil, fmt.Errorf("items of delivery note %d: %w", noteID, ErrForeignRow)
	}

	return saved, nil
}

func noteName(n deliverynote.Note) string {
	return fmt.Sprintf("%s %d", n.Type, n.Number)
}

func (s *NoteService) record(ctx context.Context, entry auditlog.Entry) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, entry)
}

func rollback(ctx context.Context, work unitOfWork) {
	if err := work.Rollback(ctx); err != nil {
		slog.Error("Failed to rollback delivery note transaction", "error", err)
	}
}
