package ilineitemrepo

import (
	"context"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/lineitem"
)

// ILineItemRepository is an interface for line item postgres repository.
type ILineItemRepository interface {
	Upsert(ctx context.Context, items []lineitem.LineItem) ([]lineitem.LineItem, error)
	Delete(ctx context.Context, orderID int64, ids []string) error
	Query(ctx context.Context, filter *lineitem.QueryLineItemsModel) ([]lineitem.LineItem, error)
}
