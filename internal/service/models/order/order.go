package order

import (
	"errors"
	"strings"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/comment"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/lineitem"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of an order.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusReady      Status = "ready"
	StatusShipped    Status = "shipped"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

// ParseStatus parses s into a Status. An empty string yields StatusNew.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusNew, nil
	case StatusNew, StatusInProgress, StatusReady, StatusShipped, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// Order represents an order in the system.
type Order struct {
	ID                 int64               `json:"id"`
	DisplayID          string              `json:"displayId"`
	Status             Status              `json:"status"`
	CustomerID         string              `json:"customerId"`
	Proforma           bool                `json:"proforma"`
	ProformaDate       *time.Time          `json:"proformaDate"`
	Paid               bool                `json:"paid"`
	PaymentDate        *time.Time          `json:"paymentDate"`
	DeliveryStreet     string              `json:"deliveryStreet"`
	DeliveryCity       string              `json:"deliveryCity"`
	DeliveryPostalCode string              `json:"deliveryPostalCode"`
	DeliveryCountry    string              `json:"deliveryCountry"`
	TransportCost      int64               `json:"transportCost"`
	Content            string              `json:"content"`
	DocumentPath       string              `json:"documentPath"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
	LineItems          []lineitem.LineItem `json:"lineItems"`
	Comments           []comment.Comment   `json:"comments"`
}

// Fields returns the order without its child collections and bookkeeping
// timestamps, the shape compared when auditing an update.
func (o Order) Fields() Order {
	o.LineItems = nil
	o.Comments = nil
	o.CreatedAt = time.Time{}
	o.UpdatedAt = time.Time{}
	o.ProformaDate = storedTime(o.ProformaDate)
	o.PaymentDate = storedTime(o.PaymentDate)

	return o
}

// storedTime is t as Postgres keeps a timestamptz: UTC, microsecond precision.
func storedTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)

	return &v
}

// ParseTransportCost parses normalized numeric text into whole currency units,
// truncating toward zero. Blank or unparsable text yields 0.
func ParseTransportCost(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}

	return d.IntPart()
}
