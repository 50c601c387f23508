package iauditrepo

import (
	"context"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
)

// IAuditLogRepository is interface for the audit log table.
type IAuditLogRepository interface {
	Insert(ctx context.Context, entry auditlog.Entry) (auditlog.Entry, error)
	Query(ctx context.Context, filter *auditlog.Query) ([]auditlog.Entry, error)
}

// IAuditPublisher publishes audit entries to the message broker.
type IAuditPublisher interface {
	Publish(ctx context.Context, entry auditlog.Entry) error
}
