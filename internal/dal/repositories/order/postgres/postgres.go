package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/order"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id",
	"display_id",
	"status",
	"customer_id",
	"proforma",
	"proforma_date",
	"paid",
	"payment_date",
	"delivery_street",
	"delivery_city",
	"delivery_postal_code",
	"delivery_country",
	"transport_cost",
	"content",
	"document_path",
	"created_at",
	"updated_at",
}

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id                 int64      `db:"id"`
	DisplayId          string     `db:"display_id"`
	Status             string     `db:"status"`
	CustomerId         string     `db:"customer_id"`
	Proforma           bool       `db:"proforma"`
	ProformaDate       *time.Time `db:"proforma_date"`
	Paid               bool       `db:"paid"`
	PaymentDate        *time.Time `db:"payment_date"`
	DeliveryStreet     string     `db:"delivery_street"`
	DeliveryCity       string     `db:"delivery_city"`
	DeliveryPostalCode string     `db:"delivery_postal_code"`
	DeliveryCountry    string     `db:"delivery_country"`
	TransportCost      int64      `db:"transport_cost"`
	Content            string     `db:"content"`
	DocumentPath       string     `db:"document_path"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:                 o.Id,
		DisplayID:          o.DisplayId,
		Status:             status,
		CustomerID:         o.CustomerId,
		Proforma:           o.Proforma,
		ProformaDate:       o.ProformaDate,
		Paid:               o.Paid,
		PaymentDate:        o.PaymentDate,
		DeliveryStreet:     o.DeliveryStreet,
		DeliveryCity:       o.DeliveryCity,
		DeliveryPostalCode: o.DeliveryPostalCode,
		DeliveryCountry:    o.DeliveryCountry,
		TransportCost:      o.TransportCost,
		Content:            o.Content,
		DocumentPath:       o.DocumentPath,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}, nil
}

// OrderDalFromModel converts service layer Order model to OrderDal.
func OrderDalFromModel(o *order.Order) *OrderDal {
	return &OrderDal{
		Id:                 o.ID,
		DisplayId:          o.DisplayID,
		Status:             o.Status.String(),
		CustomerId:         o.CustomerID,
		Proforma:           o.Proforma,
		ProformaDate:       o.ProformaDate,
		Paid:               o.Paid,
		PaymentDate:        o.PaymentDate,
		DeliveryStreet:     o.DeliveryStreet,
		DeliveryCity:       o.DeliveryCity,
		DeliveryPostalCode: o.DeliveryPostalCode,
		DeliveryCountry:    o.DeliveryCountry,
		TransportCost:      o.TransportCost,
		Content:            o.Content,
		DocumentPath:       o.DocumentPath,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func (o *OrderDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.DisplayId,
		&o.Status,
		&o.CustomerId,
		&o.Proforma,
		&o.ProformaDate,
		&o.Paid,
		&o.PaymentDate,
		&o.DeliveryStreet,
		&o.DeliveryCity,
		&o.DeliveryPostalCode,
		&o.DeliveryCountry,
		&o.TransportCost,
		&o.Content,
		&o.DocumentPath,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert inserts an order without its children and returns it with its ID.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	dal := OrderDalFromModel(&o)

	sql, args, err := r.sb.Insert("orders").
		Columns(orderColumns[1:]...).
		Values(
			dal.DisplayId,
			dal.Status,
			dal.CustomerId,
			dal.Proforma,
			dal.ProformaDate,
			dal.Paid,
			dal.PaymentDate,
			dal.DeliveryStreet,
			dal.DeliveryCity,
			dal.DeliveryPostalCode,
			dal.DeliveryCountry,
			dal.TransportCost,
			dal.Content,
			dal.DocumentPath,
			dal.CreatedAt,
			dal.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&o.ID); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// Update overwrites every field of the order row identified by o.ID and
// returns the row as stored.
func (r *PostgresOrderRepository) Update(ctx context.Context, o order.Order) (order.Order, error) {
	dal := OrderDalFromModel(&o)

	return r.get(ctx, r.sb.Update("orders").
		SetMap(map[string]any{
			"display_id":           dal.DisplayId,
			"status":               dal.Status,
			"customer_id":          dal.CustomerId,
			"proforma":             dal.Proforma,
			"proforma_date":        dal.ProformaDate,
			"paid":                 dal.Paid,
			"payment_date":         dal.PaymentDate,
			"delivery_street":      dal.DeliveryStreet,
			"delivery_city":        dal.DeliveryCity,
			"delivery_postal_code": dal.DeliveryPostalCode,
			"delivery_country":     dal.DeliveryCountry,
			"transport_cost":       dal.TransportCost,
			"content":              dal.Content,
			"document_path":        dal.DocumentPath,
			"updated_at":           dal.UpdatedAt,
		}).
		Where(sq.Eq{"id": dal.Id}).
		Suffix("RETURNING "+strings.Join(orderColumns, ", ")))
}

// GetByID retrieves a single order without its children.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (order.Order, error) {
	return r.get(ctx, r.sb.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id}))
}

// GetForUpdate retrieves a single order and locks its row until the transaction ends.
func (r *PostgresOrderRepository) GetForUpdate(ctx context.Context, id int64) (order.Order, error) {
	return r.get(ctx, r.sb.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
}

func (r *PostgresOrderRepository) get(ctx context.Context, query sq.Sqlizer) (order.Order, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		if postgres.IsNoRows(err) {
			return order.Order{}, postgres.ErrNotFound
		}

		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	model, err := dal.ToModel()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	return *model, nil
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	query := r.sb.Select(orderColumns...).From("orders").OrderBy("id DESC")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.CustomerIds) > 0 {
		query = query.Where(sq.Eq{"customer_id": filter.CustomerIds})
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		query = query.Where(sq.Eq{"status": statuses})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	dals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderDal, error) {
		var dal OrderDal
		err := row.Scan(dal.scanTargets()...)

		return dal, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	result := make([]order.Order, 0, len(dals))
	for i := range dals {
		model, err := dals[i].ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	return result, nil
}
