package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderdesk/internal/service/changeset"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/jackc/pgx/v5"
)

// EntryDal represents audit log data access layer model.
type EntryDal struct {
	Id          int64     `db:"id"`
	Entity      string    `db:"entity"`
	EntityId    string    `db:"entity_id"`
	EntityName  string    `db:"entity_name"`
	EventType   string    `db:"event_type"`
	ChangedData []byte    `db:"changed_data"`
	CreatedAt   time.Time `db:"created_at"`
}

// ToModel converts EntryDal to service layer Entry model.
func (e *EntryDal) ToModel() (*auditlog.Entry, error) {
	var changes changeset.ChangeSet
	if len(e.ChangedData) > 0 {
		if err := json.Unmarshal(e.ChangedData, &changes); err != nil {
			return nil, fmt.Errorf("failed to decode changed data of log %d: %w", e.Id, err)
		}
	}

	return &auditlog.Entry{
		ID:          e.Id,
		Entity:      auditlog.Entity(e.Entity),
		EntityID:    e.EntityId,
		EntityName:  e.EntityName,
		EventType:   auditlog.EventType(e.EventType),
		ChangedData: changes,
		CreatedAt:   e.CreatedAt,
	}, nil
}

// AuditLogRepository implements the audit log repository for PostgreSQL.
type AuditLogRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(conn postgres.GenericConn) *AuditLogRepository {
	return &AuditLogRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert appends an entry to the logs table.
func (r *AuditLogRepository) Insert(ctx context.Context, entry auditlog.Entry) (auditlog.Entry, error) {
	var changedData []byte
	if entry.ChangedData != nil {
		data, err := json.Marshal(entry.ChangedData)
		if err != nil {
			return auditlog.Entry{}, fmt.Errorf("failed to encode changed data: %w", err)
		}
		changedData = data
	}

	sql, args, err := r.sb.Insert("logs").
		Columns("entity", "entity_id", "entity_name", "event_type", "changed_data", "created_at").
		Values(
			string(entry.Entity),
			entry.EntityID,
			entry.EntityName,
			string(entry.EventType),
			changedData,
			entry.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return auditlog.Entry{}, fmt.Errorf("failed to build audit log insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&entry.ID); err != nil {
		return auditlog.Entry{}, fmt.Errorf("failed to insert audit log: %w", err)
	}

	return entry, nil
}

// Query lists audit entries, newest first.
func (r *AuditLogRepository) Query(ctx context.Context, filter *auditlog.Query) ([]auditlog.Entry, error) {
	query := r.sb.
		Select("id", "entity", "entity_id", "entity_name", "event_type", "changed_data", "created_at").
		From("logs").
		OrderBy("id DESC")

	if filter.Entity != "" {
		query = query.Where(sq.Eq{"entity": string(filter.Entity)})
	}

	if filter.EntityID != "" {
		query = query.Where(sq.Eq{"entity_id": filter.EntityID})
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
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	dals, err := pgx.CollectRows(rows, pgx.RowToStructByPos[EntryDal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit logs: %w", err)
	}

	result := make([]auditlog.Entry, 0, len(dals))
	for i := range dals {
		model, err := dals[i].ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *model)
	}

	return result, nil
}
