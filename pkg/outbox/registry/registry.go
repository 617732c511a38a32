// Package registry decides where each outbox event type is published and
// checks a row is well formed before the publisher sends it.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	// PayloadFactory returns a pointer the envelope data is decoded into.
	PayloadFactory func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every
// attempt. The publisher dead-letters it immediately.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// NewEventRegistry routes every order lifecycle event to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.OrdersTopic)
	if topic == "" {
		return nil, errors.New("orders topic is required")
	}
	factories := map[enums.OutboxEventType]func() any{
		enums.EventOrderCreated:       payloadOf[payloads.OrderCreatedEvent](),
		enums.EventOrderPaid:          payloadOf[payloads.OrderPaidEvent](),
		enums.EventOrderPaymentFailed: payloadOf[payloads.OrderPaymentFailedEvent](),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(factories))}
	for eventType, factory := range factories {
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateOrder,
			Topic:          topic,
			PayloadFactory: factory,
		}
	}
	return reg, nil
}

// Resolve returns NonRetryableError for unknown types, aggregate
// mismatches and payloads that do not decode.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", row.EventType)
	case desc.AggregateType != row.AggregateType:
		return nil, permanent("aggregate mismatch: expected %s got %s", desc.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, permanent("missing aggregate_id")
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if !env.HasData() {
		return nil, permanent("payload missing for %s", row.EventType)
	}
	payload := desc.PayloadFactory()
	if err := jsonDecode(env.Data, payload); err != nil {
		return nil, permanent("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
