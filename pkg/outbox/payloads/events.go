package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine is the published view of one purchased line.
type OrderLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	Title          string    `json:"title"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// OrderCreatedEvent is emitted when checkout turns a cart into an order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID   `json:"order_id"`
	UserID     uuid.UUID   `json:"user_id"`
	TotalCents int         `json:"total_cents"`
	Currency   string      `json:"currency"`
	Lines      []OrderLine `json:"lines"`
}

// OrderPaidEvent is emitted once, when the order first reaches paid.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	UserID           uuid.UUID `json:"user_id"`
	PaymentSessionID string    `json:"payment_session_id"`
	AmountCents      int       `json:"amount_cents"`
	Currency         string    `json:"currency"`
	PaidAt           time.Time `json:"paid_at"`
}

// OrderPaymentFailedEvent is emitted when the live payment session fails.
type OrderPaymentFailedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	UserID           uuid.UUID `json:"user_id"`
	PaymentSessionID string    `json:"payment_session_id"`
	Reason           string    `json:"reason,omitempty"`
}
