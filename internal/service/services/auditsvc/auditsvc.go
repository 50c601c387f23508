package auditsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/outbox"
	"github.com/spf13/viper"
)

const (
	contentType   = "application/json"
	recordTimeout = 30 * time.Second
)

// AuditService persists audit entries and publishes them to the broker.
type AuditService struct {
	logs          iauditrepo.IAuditLogRepository
	publisher     iauditrepo.IAuditPublisher
	outbox        ioutboxrepo.IOutboxRepository
	queue         string
	maxRetries    int
	retryInterval time.Duration
	now           func() time.Time
}

// option is a function that configures the AuditService.
type option func(*AuditService)

// MustNewAuditService creates a new AuditService.
func MustNewAuditService(opts ...option) *AuditService {
	s := &AuditService{
		queue:         viper.GetString("rabbitmq.audit_queue"),
		maxRetries:    viper.GetInt("rabbitmq.outbox.max_retries"),
		retryInterval: time.Duration(viper.GetInt("rabbitmq.outbox.retry_interval_seconds")) * time.Second,
		now:           time.Now,
	}
	if s.queue == "" {
		s.queue = "orders.audit"
	}
	if s.maxRetries == 0 {
		s.maxRetries = 5
	}
	if s.retryInterval == 0 {
		s.retryInterval = 30 * time.Second
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logs == nil {
		panic("audit service requires a log repository")
	}

	return s
}

// WithLogRepository sets the repository of the logs table.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogRepository(repo iauditrepo.IAuditLogRepository) option {
	return func(s *AuditService) {
		s.logs = repo
	}
}

// WithPublisher sets the broker publisher. Without one entries are only stored.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPublisher(p iauditrepo.IAuditPublisher) option {
	return func(s *AuditService) {
		s.publisher = p
	}
}

// WithOutbox sets where entries that failed to publish are parked for retry.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutbox(repo ioutboxrepo.IOutboxRepository) option {
	return func(s *AuditService) {
		s.outbox = repo
	}
}

// WithQueue overrides the queue entries are published to.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithQueue(queue string) option {
	return func(s *AuditService) {
		s.queue = queue
	}
}

// WithClock replaces the clock used for entry and outbox timestamps.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *AuditService) {
		s.now = now
	}
}

// Record stores entry and publishes it. Failures are logged and never returned:
// the mutation the entry describes has already been committed.
func (s *AuditService) Record(ctx context.Context, entry auditlog.Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	saved, err := s.logs.Insert(ctx, entry)
	if err != nil {
		slog.Error("Failed to store audit entry",
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"error", err,
		)
		saved = entry
	}

	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, saved); err != nil {
		slog.Warn("Failed to publish audit entry, moving it to outbox",
			"entity", saved.Entity,
			"entity_id", saved.EntityID,
			"error", err,
		)
		s.enqueue(ctx, saved, err)
	}
}

func (s *AuditService) enqueue(ctx context.Context, entry auditlog.Entry, cause error) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		slog.Error("Failed to marshal audit entry for outbox", "error", err)

		return
	}

	now := s.now()
	msg := outbox.Message{
		QueueName:   s.queue,
		RoutingKey:  s.queue,
		Payload:     payload,
		ContentType: contentType,
		MaxRetries:  s.maxRetries,
		LastError:   cause.Error(),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now.Add(s.retryInterval),
	}
	if err := s.outbox.Insert(ctx, msg); err != nil {
		slog.Error("Failed to store audit entry in outbox", "entity_id", entry.EntityID, "error", err)
	}
}

// List returns audit entries matching q, newest first.
func (s *AuditService) List(ctx context.Context, q auditlog.Query) ([]auditlog.Entry, error) {
	return s.logs.Query(ctx, &q)
}
