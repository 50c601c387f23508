// Package sequence hands out the human-facing sequential numbers of orders and
// delivery notes.
package sequence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
)

// Kind selects what a scope counts when its counter is seeded.
type Kind string

const (
	KindOrders        Kind = "orders"
	KindDeliveryNotes Kind = "delivery_notes"
)

// Scope identifies one counter. From and To bound the calendar month of a
// delivery-note scope and are zero for the order scope.
type Scope struct {
	Key      string
	Kind     Kind
	NoteType deliverynote.Type
	From     time.Time
	To       time.Time
}

// OrderScope is the single counter all orders are numbered from.
func OrderScope() Scope {
	return Scope{Key: "orders", Kind: KindOrders}
}

// NoteScope is the counter of notes of type t issued in the calendar month of period.
func NoteScope(t deliverynote.Type, period time.Time) Scope {
	from, to := MonthBounds(period)

	return Scope{
		Key:      fmt.Sprintf("wz:%s:%04d-%02d", t, from.Year(), int(from.Month())),
		Kind:     KindDeliveryNotes,
		NoteType: t,
		From:     from,
		To:       to,
	}
}

// MonthBounds returns the first instant of t's month and the first instant of the next one.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())

	return from, from.AddDate(0, 1, 0)
}

// Store keeps the counters.
//
// NextValue advances the counter of scope and returns the new value. A counter
// used for the first time starts from the number of existing records in scope,
// so its first value is that count plus one. PeekValue returns the value
// NextValue would return without advancing anything.
type Store interface {
	NextValue(ctx context.Context, scope Scope) (int64, error)
	PeekValue(ctx context.Context, scope Scope) (int64, error)
}

// Allocator computes display ids and note numbers.
type Allocator struct {
	store Store
	now   func() time.Time
}

// option is a function that configures the Allocator.
type option func(*Allocator)

// WithClock replaces the clock the order display id is dated by.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(a *Allocator) {
		a.now = now
	}
}

// NewAllocator creates an Allocator over store.
func NewAllocator(store Store, opts ...option) *Allocator {
	a := &Allocator{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// NextOrderID returns the next order display id, "{n}/{month}/{year}", dated by
// the allocator's clock. When the store fails it logs the error and returns an
// empty id instead of failing the order creation.
func (a *Allocator) NextOrderID(ctx context.Context) string {
	n, err := a.store.NextValue(ctx, OrderScope())
	if err != nil {
		slog.Warn("Failed to allocate order display id, continuing without one", "error", err)

		return ""
	}

	return FormatOrderID(n, a.now())
}

// FormatOrderID formats n as an order display id for the month of t.
func FormatOrderID(n int64, t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", n, int(t.Month()), t.Year())
}

// NextWzNumber allocates the next number of a note of type t in the month of periodDate.
func (a *Allocator) NextWzNumber(
	ctx context.Context,
	t deliverynote.Type,
	periodDate time.Time,
) (int64, error) {
	n, err := a.store.NextValue(ctx, NoteScope(t, periodDate))
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s number: %w", t, err)
	}

	return n, nil
}

// PeekWzNumber returns the number the next note of type t in the month of
// periodDate would get, without reserving it.
func (a *Allocator) PeekWzNumber(
	ctx context.Context,
	t deliverynote.Type,
	periodDate time.Time,
) (int64, error) {
	n, err := a.store.PeekValue(ctx, NoteScope(t, periodDate))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s number: %w", t, err)
	}

	return n, nil
}
