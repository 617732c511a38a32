package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem is a value copy of a cart line taken when the order was
// placed. It is never updated afterwards.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Position       int       `gorm:"column:position;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Title          string    `gorm:"column:title;not null"`
	ImageRef       *string   `gorm:"column:image_ref"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// LineTotalCents returns unit price times quantity.
func (l OrderLineItem) LineTotalCents() int {
	return l.UnitPriceCents * l.Quantity
}
