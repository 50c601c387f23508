package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/sequence"
)

// PostgresSequenceRepository keeps one counter row per scope in the sequences table.
type PostgresSequenceRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresSequenceRepository creates a new Postgres sequence repository.
func NewPostgresSequenceRepository(conn postgres.GenericConn) *PostgresSequenceRepository {
	return &PostgresSequenceRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// countQuery counts the records a scope's counter is seeded from.
func countQuery(scope sequence.Scope) (string, []any, error) {
	switch scope.Kind {
	case sequence.KindOrders:
		return sq.Select("COUNT(*)").From("orders").ToSql()
	case sequence.KindDeliveryNotes:
		return sq.Select("COUNT(*)").
			From("delivery_notes").
			Where(sq.Eq{"type": scope.NoteType.String()}).
			Where(sq.Or{
				sq.And{
					sq.GtOrEq{"issue_date": scope.From},
					sq.Lt{"issue_date": scope.To},
				},
				sq.And{
					sq.Eq{"issue_date": nil},
					sq.GtOrEq{"created_at": scope.From},
					sq.Lt{"created_at": scope.To},
				},
			}).
			ToSql()
	default:
		return "", nil, fmt.Errorf("unknown sequence kind %q", scope.Kind)
	}
}

const nextValueSuffix = `ON CONFLICT (key) DO UPDATE SET last_value = sequences.last_value + 1, updated_at = now() RETURNING last_value`

// nextValueQuery creates the scope's counter at count + 1 or increments it.
func (r *PostgresSequenceRepository) nextValueQuery(scope sequence.Scope) (string, []any, error) {
	countSQL, countArgs, err := countQuery(scope)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build count query: %w", err)
	}

	sql, args, err := r.sb.Insert("sequences").
		Columns("key", "last_value", "updated_at").
		Values(scope.Key, sq.Expr("("+countSQL+") + 1", countArgs...), sq.Expr("now()")).
		Suffix(nextValueSuffix).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build sequence query: %w", err)
	}

	return sql, args, nil
}

// peekValueQuery reads the value the next nextValueQuery would return.
func (r *PostgresSequenceRepository) peekValueQuery(scope sequence.Scope) (string, []any, error) {
	countSQL, countArgs, err := countQuery(scope)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build count query: %w", err)
	}

	lastSQL, lastArgs, err := sq.Select("last_value").
		From("sequences").
		Where(sq.Eq{"key": scope.Key}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build sequence query: %w", err)
	}

	args := make([]any, 0, len(lastArgs)+len(countArgs))
	args = append(args, lastArgs...)
	args = append(args, countArgs...)

	sql, args, err := r.sb.
		Select().
		Column(sq.Expr("COALESCE(("+lastSQL+"), ("+countSQL+")) + 1", args...)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build peek query: %w", err)
	}

	return sql, args, nil
}

// NextValue advances the scope's counter, creating it from the current count
// on first use. It runs in a savepoint when the connection is a transaction,
// so a failure leaves the surrounding transaction usable.
func (r *PostgresSequenceRepository) NextValue(ctx context.Context, scope sequence.Scope) (int64, error) {
	sql, args, err := r.nextValueQuery(scope)
	if err != nil {
		return 0, err
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin sequence savepoint: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var value int64
	if err := tx.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", scope.Key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to release sequence savepoint: %w", err)
	}

	return value, nil
}

// PeekValue returns the value NextValue would return.
func (r *PostgresSequenceRepository) PeekValue(ctx context.Context, scope sequence.Scope) (int64, error) {
	sql, args, err := r.peekValueQuery(scope)
	if err != nil {
		return 0, err
	}

	var value int64
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to read sequence %s: %w", scope.Key, err)
	}

	return value, nil
}
