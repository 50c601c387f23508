package comment

import (
	"errors"
	"time"
)

// Category classifies an order comment.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryTransport  Category = "transport"
	CategoryWarehouse  Category = "warehouse"
	CategoryProduction Category = "production"
)

var ErrInvalidCategory = errors.New("invalid comment category")

func (c Category) String() string {
	return string(c)
}

// ParseCategory parses s into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryGeneral, CategoryTransport, CategoryWarehouse, CategoryProduction:
		return Category(s), nil
	default:
		return "", ErrInvalidCategory
	}
}

// Comment is a categorized note attached to an order.
type Comment struct {
	ID        string    `json:"id"`
	OrderID   int64     `json:"orderId"`
	Category  Category  `json:"category"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Comment) RowID() string {
	return c.ID
}

func (c Comment) WithRowID(id string) Comment {
	c.ID = id

	return c
}
