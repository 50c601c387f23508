package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corray333/backend-labs/orderdesk/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/orderdesk/internal/service/models/auditlog"
)

// ContentType is the content type of published audit entries.
const ContentType = "application/json"

// Publisher is the interface for publishing raw messages.
type Publisher interface {
	Publish(exchange, routingKey, contentType string, body []byte) error
}

// AuditRabbitMQRepository publishes audit entries to a RabbitMQ queue.
type AuditRabbitMQRepository struct {
	client Publisher
	queue  string
}

// NewAuditRabbitMQRepository declares the audit queue and returns a publisher bound to it.
func NewAuditRabbitMQRepository(client *rabbitmq.Client, queue string) *AuditRabbitMQRepository {
	declared, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queue,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	return &AuditRabbitMQRepository{
		client: client,
		queue:  declared.Name,
	}
}

// NewWithPublisher returns a repository publishing through p without declaring anything.
func NewWithPublisher(p Publisher, queue string) *AuditRabbitMQRepository {
	return &AuditRabbitMQRepository{client: p, queue: queue}
}

// Queue returns the name of the queue entries are routed to.
func (r *AuditRabbitMQRepository) Queue() string {
	return r.queue
}

// Publish sends the entry as JSON to the audit queue.
func (r *AuditRabbitMQRepository) Publish(_ context.Context, entry auditlog.Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := r.client.Publish("", r.queue, ContentType, body); err != nil {
		return fmt.Errorf("failed to publish audit entry: %w", err)
	}

	return nil
}
