package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/lineitem"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LineItemDal represents line item data access layer model.
// Numeric columns travel as text so no precision is lost on the way.
type LineItemDal struct {
	Id             string    `db:"id"`
	OrderId        int64     `db:"order_id"`
	ProductId      string    `db:"product_id"`
	Quantity       string    `db:"quantity"`
	HelperQuantity string    `db:"helper_quantity"`
	HelperUnit     string    `db:"helper_unit"`
	UnitCost       string    `db:"unit_cost"`
	TotalCost      string    `db:"total_cost"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ToModel converts LineItemDal to service layer LineItem model.
func (li *LineItemDal) ToModel() (*lineitem.LineItem, error) {
	quantity, err := decimal.NewFromString(li.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", li.Quantity, err)
	}
	unitCost, err := decimal.NewFromString(li.UnitCost)
	if err != nil {
		return nil, fmt.Errorf("invalid unit cost %q: %w", li.UnitCost, err)
	}
	totalCost, err := decimal.NewFromString(li.TotalCost)
	if err != nil {
		return nil, fmt.Errorf("invalid total cost %q: %w", li.TotalCost, err)
	}

	return &lineitem.LineItem{
		ID:             li.Id,
		OrderID:        li.OrderId,
		ProductID:      li.ProductId,
		Quantity:       quantity,
		HelperQuantity: li.HelperQuantity,
		HelperUnit:     li.HelperUnit,
		UnitCost:       unitCost,
		TotalCost:      totalCost,
		CreatedAt:      li.CreatedAt,
		UpdatedAt:      li.UpdatedAt,
	}, nil
}

// LineItemDalFromModel converts service layer LineItem model to LineItemDal.
func LineItemDalFromModel(li *lineitem.LineItem) *LineItemDal {
	return &LineItemDal{
		Id:             li.ID,
		OrderId:        li.OrderID,
		ProductId:      li.ProductID,
		Quantity:       li.Quantity.String(),
		HelperQuantity: li.HelperQuantity,
		HelperUnit:     li.HelperUnit,
		UnitCost:       li.UnitCost.String(),
		TotalCost:      li.TotalCost.String(),
		CreatedAt:      li.CreatedAt,
		UpdatedAt:      li.UpdatedAt,
	}
}

// PostgresLineItemRepository represents a Postgres line item repository.
type PostgresLineItemRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresLineItemRepository creates a new Postgres line item repository.
func NewPostgresLineItemRepository(conn postgres.GenericConn) *PostgresLineItemRepository {
	return &PostgresLineItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert inserts the line items, updating rows whose id already exists.
// created_at of an existing row is kept. A row whose id belongs to another
// order is left alone and missing from the result.
func (r *PostgresLineItemRepository) Upsert(
	ctx context.Context,
	items []lineitem.LineItem,
) ([]lineitem.LineItem, error) {
	if len(items) == 0 {
		return []lineitem.LineItem{}, nil
	}

	query := r.sb.Insert("line_items").
		Columns(
			"id",
			"order_id",
			"product_id",
			"quantity",
			"helper_quantity",
			"helper_unit",
			"unit_cost",
			"total_cost",
			"created_at",
			"updated_at",
		)
	for i := range items {
		dal := LineItemDalFromModel(&items[i])
		query = query.Values(
			dal.Id,
			dal.OrderId,
			dal.ProductId,
			dal.Quantity,
			dal.HelperQuantity,
			dal.HelperUnit,
			dal.UnitCost,
			dal.TotalCost,
			dal.CreatedAt,
			dal.UpdatedAt,
		)
	}

	sql, args, err := query.Suffix(`ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			quantity = EXCLUDED.quantity,
			helper_quantity = EXCLUDED.helper_quantity,
			helper_unit = EXCLUDED.helper_unit,
			unit_cost = EXCLUDED.unit_cost,
			total_cost = EXCLUDED.total_cost,
			updated_at = EXCLUDED.updated_at
		WHERE line_items.order_id = EXCLUDED.order_id
		RETURNING id, order_id, product_id, quantity::text, helper_quantity, helper_unit,
			unit_cost::text, total_cost::text, created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert line items: %w", err)
	}

	return collect(rows)
}

// Delete removes the line items of the order with the given ids.
func (r *PostgresLineItemRepository) Delete(ctx context.Context, orderID int64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.sb.Delete("line_items").
		Where(sq.Eq{"order_id": orderID, "id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete line items: %w", err)
	}

	return nil
}

// Query retrieves line items based on filter criteria.
func (r *PostgresLineItemRepository) Query(
	ctx context.Context,
	filter *lineitem.QueryLineItemsModel,
) ([]lineitem.LineItem, error) {
	query := r.sb.
		Select(
			"id",
			"order_id",
			"product_id",
			"quantity::text",
			"helper_quantity",
			"helper_unit",
			"unit_cost::text",
			"total_cost::text",
			"created_at",
			"updated_at",
		).
		From("line_items").
		OrderBy("created_at", "id")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.OrderIds) > 0 {
		query = query.Where(sq.Eq{"order_id": filter.OrderIds})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}

	return collect(rows)
}

func collect(rows pgx.Rows) ([]lineitem.LineItem, error) {
	dals, err := pgx.CollectRows(rows, pgx.RowToStructByPos[LineItemDal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan line items: %w", err)
	}

	result := make([]lineitem.LineItem, 0, len(dals))
	for i := range dals {
		model, err := dals[i].ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *model)
	}

	return result, nil
}
