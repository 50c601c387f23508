package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/interfaces/ioutboxrepo"
	"github.com/spf13/viper"
)

// Publisher sends a raw message to the broker.
type Publisher interface {
	Publish(exchange, routingKey, contentType string, body []byte) error
}

// Worker republishes audit entries parked in the outbox table.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRepository
	publisher     Publisher
	pollInterval  time.Duration
	batchSize     int
	retryInterval time.Duration
	now           func() time.Time
	stopCh        chan struct{}
}

// option is a function that configures the Worker.
type option func(*Worker)

// WithPollInterval overrides how often the outbox is polled.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPollInterval(d time.Duration) option {
	return func(w *Worker) {
		w.pollInterval = d
	}
}

// WithClock replaces the clock retries are scheduled by.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(w *Worker) {
		w.now = now
	}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher Publisher,
	opts ...option,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	w := &Worker{
		outboxRepo:    outboxRepo,
		publisher:     publisher,
		pollInterval:  time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:     batchSize,
		retryInterval: time.Duration(retryIntervalSeconds) * time.Second,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins processing messages from the outbox. It blocks until ctx is
// done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// backoff is the delay before retry number n: 2^n times the retry interval.
func (w *Worker) backoff(n int) time.Duration {
	return time.Duration(math.Pow(2, float64(n))) * w.retryInterval
}

// processMessages retrieves and processes pending messages from the outbox.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		err := w.publisher.Publish(msg.ExchangeName, msg.RoutingKey, msg.ContentType, msg.Payload)
		if err != nil {
			msg.RetryCount++
			nextRetryAt := w.now().Add(w.backoff(msg.RetryCount))

			if msg.Exhausted() {
				slog.Error("Giving up on outbox message",
					"outbox_id", msg.ID,
					"retry_count", msg.RetryCount,
					"error", err,
				)
			} else {
				slog.Warn("Failed to publish message from outbox, will retry",
					"outbox_id", msg.ID,
					"retry_count", msg.RetryCount,
					"next_retry", nextRetryAt,
					"error", err,
				)
			}

			if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, msg.RetryCount, err.Error(), nextRetryAt); err != nil {
				slog.Error("Failed to update retry information", "outbox_id", msg.ID, "error", err)
			}

			continue
		}

		if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from outbox after successful publish",
				"outbox_id", msg.ID,
				"error", err,
			)
		} else {
			slog.Info("Message successfully published and removed from outbox", "outbox_id", msg.ID)
		}
	}
}
