package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer appends rows to the order_events table.
type Writer interface {
	InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

// Handler gets the envelope plus its payload decoded into a pointer to the
// event's payload struct.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type route struct {
	newPayload func() any
	handler    Handler
}

func routeFor[T any](h Handler) route {
	return route{newPayload: func() any { return new(T) }, handler: h}
}

// Router sends each envelope to the handler registered for its event type.
type Router struct {
	handlers map[enums.OutboxEventType]route
}

// NewRouter registers the order event handlers. overrides can replace the
// handler of a registered event type but never add a new one.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	switch {
	case writer == nil:
		return nil, errors.New("writer is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}

	handlers := map[enums.OutboxEventType]route{
		enums.EventOrderCreated:       routeFor[payloads.OrderCreatedEvent](rowHandlerFor(writer, logg, orderCreatedRow)),
		enums.EventOrderPaid:          routeFor[payloads.OrderPaidEvent](rowHandlerFor(writer, logg, orderPaidRow)),
		enums.EventOrderPaymentFailed: routeFor[payloads.OrderPaymentFailedEvent](rowHandlerFor(writer, logg, orderPaymentFailedRow)),
	}
	for eventType, custom := range overrides {
		r, ok := handlers[eventType]
		if ok && custom != nil {
			r.handler = custom
			handlers[eventType] = r
		}
	}
	return &Router{handlers: handlers}, nil
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	rt, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload := rt.newPayload()
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return rt.handler.Handle(ctx, envelope, payload)
}
