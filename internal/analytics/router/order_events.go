package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// rowHandler turns one payload type into an order_events row and writes it.
type rowHandler[T any] struct {
	writer Writer
	logg   *logger.Logger
	build  func(types.Envelope, *T) (types.OrderEventRow, error)
}

func rowHandlerFor[T any](w Writer, logg *logger.Logger, build func(types.Envelope, *T) (types.OrderEventRow, error)) Handler {
	return &rowHandler[T]{writer: w, logg: logg, build: build}
}

func (h *rowHandler[T]) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*T)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	row, err := h.build(envelope, event)
	if err != nil {
		h.logg.Error(ctx, "analytics.row.build_failed", err)
		return err
	}

	ctx = h.logg.WithOrderID(ctx, row.OrderID)
	if err := h.writer.InsertOrderEvent(ctx, row); err != nil {
		h.logg.Error(ctx, "analytics.row.insert_failed", err)
		return err
	}
	h.logg.Info(ctx, "analytics.row.inserted")
	return nil
}

func orderCreatedRow(envelope types.Envelope, event *payloads.OrderCreatedEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event.OrderID, event.UserID, event)
	if err != nil {
		return row, err
	}
	var items int64
	for _, line := range event.Lines {
		items += int64(line.Quantity)
	}
	row.ItemCount = &items
	row.AmountCents = ptr(int64(event.TotalCents))
	row.Currency = optional(event.Currency)
	row.Items, err = writer.EncodeJSON(event.Lines)
	return row, err
}

// paid rows are stamped with the provider's paid_at when it is known
func orderPaidRow(envelope types.Envelope, event *payloads.OrderPaidEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event.OrderID, event.UserID, event)
	if err != nil {
		return row, err
	}
	if !event.PaidAt.IsZero() {
		row.OccurredAt = event.PaidAt.UTC()
	}
	row.PaymentSessionID = optional(event.PaymentSessionID)
	row.AmountCents = ptr(int64(event.AmountCents))
	row.Currency = optional(event.Currency)
	return row, nil
}

func orderPaymentFailedRow(envelope types.Envelope, event *payloads.OrderPaymentFailedEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event.OrderID, event.UserID, event)
	if err != nil {
		return row, err
	}
	row.PaymentSessionID = optional(event.PaymentSessionID)
	row.FailureReason = optional(event.Reason)
	return row, nil
}

func baseRow(envelope types.Envelope, orderID, userID uuid.UUID, event any) (types.OrderEventRow, error) {
	if orderID == uuid.Nil {
		return types.OrderEventRow{}, fmt.Errorf("%s payload missing order_id", envelope.EventType)
	}
	payload, err := writer.EncodeJSON(event)
	if err != nil {
		return types.OrderEventRow{}, err
	}
	row := types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt.UTC(),
		OrderID:    orderID.String(),
		Payload:    payload,
	}
	if userID != uuid.Nil {
		row.UserID = ptr(userID.String())
	}
	return row, nil
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func ptr[T any](v T) *T { return &v }
