package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is an immutable purchase snapshot. Only PaymentStatus, Status,
// LiveSessionID and PaidAt change after creation.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Status          enums.OrderStatus     `gorm:"column:status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus   `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;not null;default:'stripe'"`
	Currency        string                `gorm:"column:currency;not null"`
	TotalCents      int                   `gorm:"column:total_cents;not null"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	LiveSessionID   *string               `gorm:"column:live_session_id"`
	PaidAt          *time.Time            `gorm:"column:paid_at"`
	Items           []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// RecomputeTotalCents sums the stored lines. It must always equal TotalCents.
func (o Order) RecomputeTotalCents() int {
	total := 0
	for _, item := range o.Items {
		total += item.LineTotalCents()
	}
	return total
}

// IsPaid reports whether the order reached the paid state.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == enums.PaymentStatusPaid
}
