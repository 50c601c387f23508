package auditlog

import (
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/service/changeset"
)

// Entity names the kind of record an audit entry is about.
type Entity string

const (
	EntityOrder        Entity = "order"
	EntityDeliveryNote Entity = "delivery_note"
)

// EventType is what happened to the entity.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
)

// Entry is an append-only audit log record.
type Entry struct {
	ID          int64               `json:"id"`
	Entity      Entity              `json:"entity"`
	EntityID    string              `json:"entityId"`
	EntityName  string              `json:"entityName"`
	EventType   EventType           `json:"eventType"`
	ChangedData changeset.ChangeSet `json:"changedData,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Query represents filter parameters for listing audit entries.
type Query struct {
	Entity   Entity `json:"entity,omitempty"`
	EntityID string `json:"entityId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
