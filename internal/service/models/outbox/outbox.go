package outbox

import (
	"time"
)

// Message is an audit event whose publish to RabbitMQ failed and is waiting for a retry.
type Message struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// Exhausted reports whether the message has used up its retries.
func (m Message) Exhausted() bool {
	return m.RetryCount >= m.MaxRetries
}
