package entity

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is a lifecycle event committed together with the transition
// that produced it, waiting to be shipped by the relay.
type OutboxEvent struct {
	ID          uuid.UUID  `json:"id"`
	AggregateID uuid.UUID  `json:"aggregate_id"`
	EventType   EventName  `json:"event_type"`
	Payload     []byte     `json:"payload"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
}

// Key partitions the event stream by media record.
func (e *OutboxEvent) Key() []byte {
	return []byte(e.AggregateID.String())
}
