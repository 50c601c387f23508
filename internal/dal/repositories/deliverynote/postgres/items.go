package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ItemDal represents delivery note item data access layer model.
type ItemDal struct {
	Id        string `db:"id"`
	NoteId    int64  `db:"note_id"`
	ProductId string `db:"product_id"`
	Quantity  string `db:"quantity"`
	Unit      string `db:"unit"`
}

// ToModel converts ItemDal to service layer Item model.
func (i *ItemDal) ToModel() (*deliverynote.Item, error) {
	quantity, err := decimal.NewFromString(i.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", i.Quantity, err)
	}

	return &deliverynote.Item{
		ID:        i.Id,
		NoteID:    i.NoteId,
		ProductID: i.ProductId,
		Quantity:  quantity,
		Unit:      i.Unit,
	}, nil
}

// PostgresNoteItemRepository represents a Postgres delivery note item repository.
type PostgresNoteItemRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresNoteItemRepository creates a new Postgres delivery note item repository.
func NewPostgresNoteItemRepository(conn postgres.GenericConn) *PostgresNoteItemRepository {
	return &PostgresNoteItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert inserts the items, updating rows of the same note whose id already exists.
func (r *PostgresNoteItemRepository) Upsert(
	ctx context.Context,
	items []deliverynote.Item,
) ([]deliverynote.Item, error) {
	if len(items) == 0 {
		return []deliverynote.Item{}, nil
	}

	query := r.sb.Insert("delivery_note_items").
		Columns("id", "note_id", "product_id", "quantity", "unit")
	for _, item := range items {
		query = query.Values(item.ID, item.NoteID, item.ProductID, item.Quantity.String(), item.Unit)
	}

	sql, args, err := query.Suffix(`ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			quantity = EXCLUDED.quantity,
			unit = EXCLUDED.unit
		WHERE delivery_note_items.note_id = EXCLUDED.note_id
		RETURNING id, note_id, product_id, quantity::text, unit`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert delivery note items: %w", err)
	}

	return collectItems(rows)
}

// Delete removes the items of the note with the given ids.
func (r *PostgresNoteItemRepository) Delete(ctx context.Context, noteID int64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.sb.Delete("delivery_note_items").
		Where(sq.Eq{"note_id": noteID, "id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete delivery note items: %w", err)
	}

	return nil
}

// QueryByNoteIDs retrieves the items of the given notes.
func (r *PostgresNoteItemRepository) QueryByNoteIDs(
	ctx context.Context,
	noteIDs []int64,
) ([]deliverynote.Item, error) {
	if len(noteIDs) == 0 {
		return []deliverynote.Item{}, nil
	}

	sql, args, err := r.sb.
		Select("id", "note_id", "product_id", "quantity::text", "unit").
		From("delivery_note_items").
		Where(sq.Eq{"note_id": noteIDs}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery note items: %w", err)
	}

	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]deliverynote.Item, error) {
	dals, err := pgx.CollectRows(rows, pgx.RowToStructByPos[ItemDal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan delivery note items: %w", err)
	}

	result := make([]deliverynote.Item, 0, len(dals))
	for i := range dals {
		model, err := dals[i].ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *model)
	}

	return result, nil
}
