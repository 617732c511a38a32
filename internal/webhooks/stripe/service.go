package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type settlementApplier interface {
	ApplyStatus(ctx context.Context, status payments.SessionStatus) (*payments.StatusReport, error)
}

// Service applies Stripe checkout events through the same settlement path
// as status queries.
type Service struct {
	settlements settlementApplier
	logg        *logger.Logger
}

// NewService wires the webhook service.
func NewService(settlements settlementApplier, logg *logger.Logger) (*Service, error) {
	if settlements == nil {
		return nil, errors.New("settlement applier required")
	}
	return &Service{settlements: settlements, logg: logg}, nil
}

// HandleEvent applies checkout session events and ignores everything else.
// Sessions this service never created are acknowledged without changes.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var forceFailed bool
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		forceFailed = true
	default:
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}

	status := payments.StatusFromCheckoutSession(&session)
	if forceFailed && status.Settlement != enums.SettlementStatusPaid {
		status.Settlement = enums.SettlementStatusFailed
	}
	if status.Settlement == enums.SettlementStatusUnpaid {
		// completed with an async method still in flight
		return nil
	}

	_, err := s.settlements.ApplyStatus(ctx, status)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		if s.logg != nil {
			logCtx := s.logg.WithSessionID(ctx, session.ID)
			s.logg.Warn(logCtx, "stripe event for unknown checkout session")
		}
		return nil
	}
	return err
}
