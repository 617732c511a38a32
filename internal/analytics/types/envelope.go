package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Envelope is an outbox event as delivered to the analytics subscription.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Payload       json.RawMessage           `json:"payload"`
}

// LogFields identifies the event in structured logs.
func (e Envelope) LogFields() map[string]any {
	return map[string]any{
		"event_id":       e.EventID,
		"event_type":     e.EventType,
		"aggregate_type": e.AggregateType,
		"aggregate_id":   e.AggregateID,
		"occurred_at":    e.OccurredAt.Format(time.RFC3339Nano),
	}
}
