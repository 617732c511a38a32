// Package worker drains the order analytics subscription. Each delivery is
// claimed once per consumer in Redis before it reaches the router, so
// Pub/Sub redeliveries do not double-count rows in BigQuery.
package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/analytics/router"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const analyticsConsumerName = "order-analytics"

type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type Service struct {
	subscription receiver
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case manager == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, handler: handler, manager: manager, logg: logg}, nil
}

type verdict int

const (
	ack verdict = iota
	nack
)

// Run blocks in Receive until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if s.process(ctx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process acks anything that can never succeed (bad envelopes, unrouted
// types, duplicates) and nacks transient failures. A failed handler
// releases its claim so the redelivery is processed.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) verdict {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := decodeEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		return ack
	}
	ctx = s.logg.WithFields(ctx, env.LogFields())

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "dropping analytics message with non-uuid event id")
		return ack
	}

	seen, err := s.manager.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	switch {
	case err != nil:
		s.logg.Error(ctx, "idempotency claim failed", err)
		return nack
	case seen:
		s.logg.Info(ctx, "duplicate analytics delivery skipped")
		return ack
	}

	err = s.handler.Handle(ctx, *env)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics event recorded")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(ctx, "analytics event type not routed")
		return ack
	default:
		s.logg.Error(ctx, "analytics handler failed", err)
		if delErr := s.manager.Delete(ctx, analyticsConsumerName, eventID); delErr != nil {
			s.logg.Error(ctx, "release idempotency claim", delErr)
		}
		return nack
	}
}
