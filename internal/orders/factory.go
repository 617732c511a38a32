package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ErrEmptyCart is returned when an order is requested for a cart with no lines.
var ErrEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")

// ErrZeroTotal is returned when every cart line is free.
var ErrZeroTotal = pkgerrors.New(pkgerrors.CodeValidation, "order total must be greater than zero")

// Factory turns a cart snapshot into a persisted, immutable order.
type Factory struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	currency string
	now      func() time.Time
}

// NewFactory wires the order factory.
func NewFactory(repo Repository, tx txRunner, publisher outboxPublisher, currency string) (*Factory, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return nil, errors.New("currency required")
	}
	return &Factory{
		repo:     repo,
		tx:       tx,
		outbox:   publisher,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateOrder validates the inputs, copies every snapshot line into the
// order and stores it together with an order_created event.
func (f *Factory) CreateOrder(ctx context.Context, ownerID uuid.UUID, snapshot cart.Snapshot, shipping types.ShippingAddress, method enums.PaymentMethod) (*models.Order, error) {
	order, err := f.build(ownerID, snapshot, shipping, method)
	if err != nil {
		return nil, err
	}

	err = f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := f.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		return f.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: ownerID},
			Data:          createdPayload(order),
			Version:       1,
			OccurredAt:    order.CreatedAt,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}
	return order, nil
}

func (f *Factory) build(ownerID uuid.UUID, snapshot cart.Snapshot, shipping types.ShippingAddress, method enums.PaymentMethod) (*models.Order, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}
	if snapshot.OwnerID != uuid.Nil && snapshot.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart belongs to another user")
	}
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}
	shipping = shipping.Normalize()
	if missing := shipping.MissingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]any{"payment_method": method})
	}

	lines := snapshot.Clone().Items
	now := f.now()
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          ownerID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   method,
		Currency:        f.currency,
		ShippingAddress: shipping,
		Items:           make([]models.OrderLineItem, 0, len(lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, line := range lines {
		if line.Quantity < 1 || line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line is invalid").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		order.Items = append(order.Items, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Position:       i,
			ProductID:      line.ProductID,
			Title:          line.Title,
			ImageRef:       line.ImageRef,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			CreatedAt:      now,
		})
	}
	order.TotalCents = order.RecomputeTotalCents()
	if order.TotalCents <= 0 {
		return nil, ErrZeroTotal
	}
	return order, nil
}

func createdPayload(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:      item.ProductID,
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
		Lines:      lines,
	}
}
