package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/comment"
	"github.com/jackc/pgx/v5"
)

// CommentDal represents comment data access layer model.
type CommentDal struct {
	Id        string    `db:"id"`
	OrderId   int64     `db:"order_id"`
	Category  string    `db:"category"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToModel converts CommentDal to service layer Comment model.
func (c *CommentDal) ToModel() (*comment.Comment, error) {
	category, err := comment.ParseCategory(c.Category)
	if err != nil {
		return nil, err
	}

	return &comment.Comment{
		ID:        c.Id,
		OrderID:   c.OrderId,
		Category:  category,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

// PostgresCommentRepository represents a Postgres comment repository.
type PostgresCommentRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresCommentRepository creates a new Postgres comment repository.
func NewPostgresCommentRepository(conn postgres.GenericConn) *PostgresCommentRepository {
	return &PostgresCommentRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert inserts the comments, updating rows whose id already exists.
// A row whose id belongs to another order is left alone and missing from the result.
func (r *PostgresCommentRepository) Upsert(
	ctx context.Context,
	comments []comment.Comment,
) ([]comment.Comment, error) {
	if len(comments) == 0 {
		return []comment.Comment{}, nil
	}

	query := r.sb.Insert("comments").
		Columns("id", "order_id", "category", "body", "created_at", "updated_at")
	for _, c := range comments {
		query = query.Values(c.ID, c.OrderID, c.Category.String(), c.Body, c.CreatedAt, c.UpdatedAt)
	}

	sql, args, err := query.Suffix(`ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
		WHERE comments.order_id = EXCLUDED.order_id
		RETURNING id, order_id, category, body, created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert comments: %w", err)
	}

	return collect(rows)
}

// Delete removes the comments of the order with the given ids.
func (r *PostgresCommentRepository) Delete(ctx context.Context, orderID int64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.sb.Delete("comments").
		Where(sq.Eq{"order_id": orderID, "id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}

	return nil
}

// QueryByOrderIDs retrieves the comments of the given orders, oldest first.
func (r *PostgresCommentRepository) QueryByOrderIDs(
	ctx context.Context,
	orderIDs []int64,
) ([]comment.Comment, error) {
	if len(orderIDs) == 0 {
		return []comment.Comment{}, nil
	}

	sql, args, err := r.sb.
		Select("id", "order_id", "category", "body", "created_at", "updated_at").
		From("comments").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}

	return collect(rows)
}

func collect(rows pgx.Rows) ([]comment.Comment, error) {
	dals, err := pgx.CollectRows(rows, pgx.RowToStructByPos[CommentDal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan comments: %w", err)
	}

	result := make([]comment.Comment, 0, len(dals))
	for i := range dals {
		model, err := dals[i].ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *model)
	}

	return result, nil
}
