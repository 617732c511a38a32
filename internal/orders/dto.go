package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderList wraps one page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// PlaceOrderInput carries checkout form data.
type PlaceOrderInput struct {
	Shipping      types.ShippingAddress
	PaymentMethod enums.PaymentMethod
}

// LineDTO is the wire shape of an order line.
type LineDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Title          string    `json:"title"`
	ImageRef       *string   `json:"image_ref,omitempty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
}

// OrderDTO is the wire shape of an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentStatus   enums.PaymentStatus   `json:"payment_status"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	Currency        string                `json:"currency"`
	TotalCents      int                   `json:"total_cents"`
	Total           string                `json:"total"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Items           []LineDTO             `json:"items"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// OrderListDTO is the wire shape of a page of orders.
type OrderListDTO struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToDTO converts a stored order for API output.
func ToDTO(order *models.Order) OrderDTO {
	out := OrderDTO{
		ID:              order.ID,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		PaymentMethod:   order.PaymentMethod,
		Currency:        order.Currency,
		TotalCents:      order.TotalCents,
		Total:           types.FormatCents(order.TotalCents),
		ShippingAddress: order.ShippingAddress,
		Items:           make([]LineDTO, 0, len(order.Items)),
		PaidAt:          order.PaidAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, LineDTO{
			ProductID:      item.ProductID,
			Title:          item.Title,
			ImageRef:       item.ImageRef,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      types.FormatCents(item.UnitPriceCents),
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents(),
		})
	}
	return out
}

// ToListDTO converts a page of orders for API output.
func ToListDTO(list *OrderList) OrderListDTO {
	out := OrderListDTO{Orders: make([]OrderDTO, 0, len(list.Orders)), NextCursor: list.NextCursor}
	for i := range list.Orders {
		out.Orders = append(out.Orders, ToDTO(&list.Orders[i]))
	}
	return out
}
