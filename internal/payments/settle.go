package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Settlement is what applying a provider status changed.
type Settlement struct {
	Status      enums.SettlementStatus
	OrderPaid   bool
	OrderFailed bool
}

// Settler applies provider session statuses to sessions, orders and carts.
// Applying the same status twice changes nothing the second time.
type Settler struct {
	sessions SessionRepository
	orders   orders.Repository
	carts    cart.ItemRepository
	listener cart.MutationListener
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

// SettlerParams groups the settler dependencies.
type SettlerParams struct {
	Sessions SessionRepository
	Orders   orders.Repository
	Carts    cart.ItemRepository
	Listener cart.MutationListener
	Tx       txRunner
	Outbox   outboxPublisher
	Logger   *logger.Logger
}

// NewSettler validates and wires the settler.
func NewSettler(p SettlerParams) (*Settler, error) {
	switch {
	case p.Sessions == nil:
		return nil, errors.New("session repository required")
	case p.Orders == nil:
		return nil, errors.New("orders repository required")
	case p.Carts == nil:
		return nil, errors.New("cart repository required")
	case p.Tx == nil:
		return nil, errors.New("transaction runner required")
	case p.Outbox == nil:
		return nil, errors.New("outbox publisher required")
	}
	listener := p.Listener
	if listener == nil {
		listener = cart.ListenerFunc(func(context.Context, uuid.UUID, int) {})
	}
	return &Settler{
		sessions: p.Sessions,
		orders:   p.Orders,
		carts:    p.Carts,
		listener: listener,
		tx:       p.Tx,
		outbox:   p.Outbox,
		logg:     p.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Apply records status against session. A paid status settles the order,
// clears the owner's cart and emits order_paid the first time only. A failed
// status fails the order only while session is the order's live session.
func (s *Settler) Apply(ctx context.Context, session *models.PaymentSession, status SessionStatus) (*Settlement, error) {
	result := &Settlement{Status: status.Settlement}

	switch status.Settlement {
	case enums.SettlementStatusPaid:
		if status.AmountCents != 0 && status.AmountCents != session.AmountCents && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"expected_cents": session.AmountCents,
				"reported_cents": status.AmountCents,
			})
			s.logg.Warn(logCtx, "payment amount differs from session amount")
		}
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.sessions.WithTx(tx).UpdateSettlement(ctx, session.SessionID, enums.SettlementStatusPaid); err != nil {
				return err
			}
			paidAt := s.now()
			changed, err := s.orders.WithTx(tx).MarkPaid(ctx, session.OrderID, paidAt)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			result.OrderPaid = true
			if err := s.carts.WithTx(tx).DeleteAllForUser(ctx, session.UserID); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   session.OrderID,
				Actor:         &outbox.ActorRef{UserID: session.UserID},
				Data: payloads.OrderPaidEvent{
					OrderID:          session.OrderID,
					UserID:           session.UserID,
					PaymentSessionID: session.SessionID,
					AmountCents:      session.AmountCents,
					Currency:         session.Currency,
					PaidAt:           paidAt,
				},
				Version:    1,
				OccurredAt: paidAt,
			})
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply paid settlement")
		}
		session.SettlementStatus = enums.SettlementStatusPaid
		if result.OrderPaid {
			s.listener.CartChanged(ctx, session.UserID, 0)
			s.log(ctx, session, "order paid")
		}

	case enums.SettlementStatusFailed:
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.sessions.WithTx(tx).UpdateSettlement(ctx, session.SessionID, enums.SettlementStatusFailed); err != nil {
				return err
			}
			changed, err := s.orders.WithTx(tx).MarkFailed(ctx, session.OrderID, session.SessionID)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			result.OrderFailed = true
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaymentFailed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   session.OrderID,
				Actor:         &outbox.ActorRef{UserID: session.UserID},
				Data: payloads.OrderPaymentFailedEvent{
					OrderID:          session.OrderID,
					UserID:           session.UserID,
					PaymentSessionID: session.SessionID,
					Reason:           "session_expired",
				},
				Version: 1,
			})
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply failed settlement")
		}
		if session.SettlementStatus != enums.SettlementStatusPaid {
			session.SettlementStatus = enums.SettlementStatusFailed
		}
		if result.OrderFailed {
			s.log(ctx, session, "order payment failed")
		}
	}

	return result, nil
}

func (s *Settler) log(ctx context.Context, session *models.PaymentSession, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, session.OrderID.String())
	logCtx = s.logg.WithSessionID(logCtx, session.SessionID)
	s.logg.Info(logCtx, msg)
}
