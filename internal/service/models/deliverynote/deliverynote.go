package deliverynote

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the kind of warehouse document.
type Type string

const (
	// TypeWZ is a regular goods-issue note.
	TypeWZ Type = "WZ"
	// TypeWZN is a goods-issue note for a new customer shipment.
	TypeWZN Type = "WZN"
	// TypeWZD is a goods-issue note for a supplementary delivery.
	TypeWZD Type = "WZD"
)

var ErrInvalidType = errors.New("invalid delivery note type")

func (t Type) String() string {
	return string(t)
}

// ParseType parses s into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeWZ, TypeWZN, TypeWZD:
		return Type(s), nil
	default:
		return "", ErrInvalidType
	}
}

// Note is a delivery note (WZ) issued for an order.
type Note struct {
	ID        int64      `json:"id"`
	Number    int64      `json:"number"`
	Type      Type       `json:"type"`
	OrderID   int64      `json:"orderId"`
	IssueDate *time.Time `json:"issueDate"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Items     []Item     `json:"items"`
}

// Fields returns the note header without items and timestamps.
func (n Note) Fields() Note {
	n.Items = nil
	n.CreatedAt = time.Time{}
	n.UpdatedAt = time.Time{}
	if n.IssueDate != nil {
		issued := n.IssueDate.UTC().Truncate(time.Microsecond)
		n.IssueDate = &issued
	}

	return n
}

// PeriodDate is the date the note is numbered by: its issue date, or now when unset.
func (n Note) PeriodDate(now time.Time) time.Time {
	if n.IssueDate != nil {
		return *n.IssueDate
	}

	return now
}

// Item is a product line on a delivery note.
type Item struct {
	ID        string          `json:"id"`
	NoteID    int64           `json:"noteId"`
	ProductID string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
}

func (i Item) RowID() string {
	return i.ID
}

func (i Item) WithRowID(id string) Item {
	i.ID = id

	return i
}

// QueryNotesModel represents filter parameters for querying delivery notes.
type QueryNotesModel struct {
	Ids      []int64 `json:"ids,omitempty"`
	Types    []Type  `json:"types,omitempty"`
	OrderIds []int64 `json:"orderIds,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}
