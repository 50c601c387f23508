package lineitem

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem represents a product line within an order.
type LineItem struct {
	ID             string          `json:"id"`
	OrderID        int64           `json:"orderId"`
	ProductID      string          `json:"productId"`
	Quantity       decimal.Decimal `json:"quantity"`
	HelperQuantity string          `json:"helperQuantity"`
	HelperUnit     string          `json:"helperUnit"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// RowID returns the stable identity of the line item.
func (li LineItem) RowID() string {
	return li.ID
}

// WithRowID returns a copy of the line item carrying id.
func (li LineItem) WithRowID(id string) LineItem {
	li.ID = id

	return li
}
