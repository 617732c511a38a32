package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorRef names the shopper whose action produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
}

// PayloadEnvelope is the body of every outbox row and of the Pub/Sub
// message published from it. Consumers deduplicate on EventID.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored or published envelope.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// HasData reports whether the envelope carries a non-null payload.
func (e PayloadEnvelope) HasData() bool {
	var probe any
	return len(e.Data) > 0 && json.Unmarshal(e.Data, &probe) == nil && probe != nil
}
