package postgresrepo

import (
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/deliverynote"
	"github.com/corray333/backend-labs/orderdesk/internal/service/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noteCountSQL = "SELECT COUNT(*) FROM delivery_notes WHERE type = ? AND " +
	"((issue_date >= ? AND issue_date < ?) OR (issue_date IS NULL AND created_at >= ? AND created_at < ?))"

var (
	marchStart = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	aprilStart = time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
)

func noteScope() sequence.Scope {
	return sequence.NoteScope(deliverynote.TypeWZN, time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
}

func TestCountQuery(t *testing.T) {
	t.Run("orders", func(t *testing.T) {
		sql, args, err := countQuery(sequence.OrderScope())
		require.NoError(t, err)

		assert.Equal(t, "SELECT COUNT(*) FROM orders", sql)
		assert.Empty(t, args)
	})

	t.Run("delivery notes of one type in one month", func(t *testing.T) {
		sql, args, err := countQuery(noteScope())
		require.NoError(t, err)

		assert.Equal(t, noteCountSQL, sql)
		assert.Equal(t, []any{"WZN", marchStart, aprilStart, marchStart, aprilStart}, args)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, _, err := countQuery(sequence.Scope{Key: "x", Kind: "invoices"})

		assert.Error(t, err)
	})
}

func TestNextValueQuery(t *testing.T) {
	r := NewPostgresSequenceRepository(nil)

	t.Run("orders", func(t *testing.T) {
		sql, args, err := r.nextValueQuery(sequence.OrderScope())
		require.NoError(t, err)

		assert.Equal(t,
			"INSERT INTO sequences (key,last_value,updated_at) VALUES ($1,(SELECT COUNT(*) FROM orders) + 1,now()) "+
				nextValueSuffix,
			sql)
		assert.Equal(t, []any{"orders"}, args)
	})

	t.Run("delivery notes", func(t *testing.T) {
		sql, args, err := r.nextValueQuery(noteScope())
		require.NoError(t, err)

		assert.Equal(t,
			"INSERT INTO sequences (key,last_value,updated_at) VALUES ($1,"+
				"(SELECT COUNT(*) FROM delivery_notes WHERE type = $2 AND "+
				"((issue_date >= $3 AND issue_date < $4) OR (issue_date IS NULL AND created_at >= $5 AND created_at < $6)))"+
				" + 1,now()) "+nextValueSuffix,
			sql)
		assert.Equal(t, []any{"wz:WZN:2024-03", "WZN", marchStart, aprilStart, marchStart, aprilStart}, args)
	})
}

func TestPeekValueQuery(t *testing.T) {
	r := NewPostgresSequenceRepository(nil)

	t.Run("orders", func(t *testing.T) {
		sql, args, err := r.peekValueQuery(sequence.OrderScope())
		require.NoError(t, err)

		assert.Equal(t,
			"SELECT COALESCE((SELECT last_value FROM sequences WHERE key = $1), (SELECT COUNT(*) FROM orders)) + 1",
			sql)
		assert.Equal(t, []any{"orders"}, args)
	})

	t.Run("delivery notes", func(t *testing.T) {
		sql, args, err := r.peekValueQuery(noteScope())
		require.NoError(t, err)

		assert.Equal(t,
			"SELECT COALESCE((SELECT last_value FROM sequences WHERE key = $1), "+
				"(SELECT COUNT(*) FROM delivery_notes WHERE type = $2 AND "+
				"((issue_date >= $3 AND issue_date < $4) OR (issue_date IS NULL AND created_at >= $5 AND created_at < $6)))) + 1",
			sql)
		assert.Equal(t, []any{"wz:WZN:2024-03", "WZN", marchStart, aprilStart, marchStart, aprilStart}, args)
	})
}
