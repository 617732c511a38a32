package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentSession records one hosted checkout session created for an order.
// Several sessions may exist per order; only the order's live session may
// drive it to failed.
type PaymentSession struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID        string                 `gorm:"column:session_id;not null;uniqueIndex"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	AmountCents      int                    `gorm:"column:amount_cents;not null"`
	Currency         string                 `gorm:"column:currency;not null"`
	RedirectURL      string                 `gorm:"column:redirect_url;not null"`
	SettlementStatus enums.SettlementStatus `gorm:"column:settlement_status;not null;default:'unpaid'"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
