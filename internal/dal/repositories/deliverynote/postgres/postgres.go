package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
	"github.com/jackc/pgx/v5"
)

var noteColumns = []string{"id", "number", "type", "order_id", "issue_date", "created_at", "updated_at"}

// NoteDal represents delivery note data access layer model.
type NoteDal struct {
	Id        int64      `db:"id"`
	Number    int64      `db:"number"`
	Type      string     `db:"type"`
	OrderId   int64      `db:"order_id"`
	IssueDate *time.Time `db:"issue_date"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// ToModel converts NoteDal to service layer Note model.
func (n *NoteDal) ToModel() (*deliverynote.Note, error) {
	t, err := deliverynote.ParseType(n.Type)
	if err != nil {
		return nil, err
	}

	return &deliverynote.Note{
		ID:        n.Id,
		Number:    n.Number,
		Type:      t,
		OrderID:   n.OrderId,
		IssueDate: n.IssueDate,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}, nil
}

// PostgresNoteRepository represents a Postgres delivery note repository.
type PostgresNoteRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresNoteRepository creates a new Postgres delivery note repository.
func NewPostgresNoteRepository(conn postgres.GenericConn) *PostgresNoteRepository {
	return &PostgresNoteRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert inserts a note header and returns it with its ID.
func (r *PostgresNoteRepository) Insert(ctx context.Context, n deliverynote.Note) (deliverynote.Note, error) {
	sql, args, err := r.sb.Insert("delivery_notes").
		Columns(noteColumns[1:]...).
		Values(n.Number, n.Type.String(), n.OrderID, n.IssueDate, n.CreatedAt, n.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return deliverynote.Note{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&n.ID); err != nil {
		return deliverynote.Note{}, fmt.Errorf("failed to insert delivery note: %w", err)
	}

	return n, nil
}

// Update overwrites the header of the note identified by n.ID and returns the
// row as stored.
func (r *PostgresNoteRepository) Update(ctx context.Context, n deliverynote.Note) (deliverynote.Note, error) {
	return r.get(ctx, r.sb.Update("delivery_notes").
		Set("number", n.Number).
		Set("type", n.Type.String()).
		Set("order_id", n.OrderID).
		Set("issue_date", n.IssueDate).
		Set("updated_at", n.UpdatedAt).
		Where(sq.Eq{"id": n.ID}).
		Suffix("RETURNING "+strings.Join(noteColumns, ", ")))
}

// GetByID retrieves a note header.
func (r *PostgresNoteRepository) GetByID(ctx context.Context, id int64) (deliverynote.Note, error) {
	return r.get(ctx, r.sb.Select(noteColumns...).From("delivery_notes").Where(sq.Eq{"id": id}))
}

// GetForUpdate retrieves a note header and locks its row until the transaction ends.
func (r *PostgresNoteRepository) GetForUpdate(ctx context.Context, id int64) (deliverynote.Note, error) {
	return r.get(ctx, r.sb.Select(noteColumns...).From("delivery_notes").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
}

func (r *PostgresNoteRepository) get(ctx context.Context, query sq.Sqlizer) (deliverynote.Note, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return deliverynote.Note{}, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return deliverynote.Note{}, fmt.Errorf("failed to get delivery note: %w", err)
	}

	dal, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[NoteDal])
	if err != nil {
		if postgres.IsNoRows(err) {
			return deliverynote.Note{}, postgres.ErrNotFound
		}

		return deliverynote.Note{}, fmt.Errorf("failed to scan delivery note: %w", err)
	}

	model, err := dal.ToModel()
	if err != nil {
		return deliverynote.Note{}, err
	}

	return *model, nil
}

// Query retrieves note headers based on filter criteria, newest first.
func (r *PostgresNoteRepository) Query(
	ctx context.Context,
	filter *deliverynote.QueryNotesModel,
) ([]deliverynote.Note, error) {
	query := r.sb.Select(noteColumns...).From("delivery_notes").OrderBy("id DESC")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = t.String()
		}
		query = query.Where(sq.Eq{"type": types})
	}

	if len(filter.OrderIds) > 0 {
		query = query.Where(sq.Eq{"order_id": filter.OrderIds})
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
		return nil, fmt.Errorf("failed to query delivery notes: %w", err)
	}

	dals, err := pgx.CollectRows(rows, pgx.RowToStructByPos[NoteDal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan delivery notes: %w", err)
	}

	result := make([]deliverynote.Note, 0, len(dals))
	for i := range dals {
		model, err := dals[i].ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *model)
	}

	return result, nil
}
