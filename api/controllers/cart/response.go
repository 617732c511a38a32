package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type cartResponse struct {
	Items      []cartItemResponse `json:"items"`
	ItemCount  int                `json:"item_count"`
	TotalCents int                `json:"total_cents"`
	Total      string             `json:"total"`
	Warnings   []cartsvc.Warning  `json:"warnings,omitempty"`
}

type cartItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Title          string    `json:"title"`
	ImageRef       *string   `json:"image_ref,omitempty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
}

type cartCountResponse struct {
	Count int `json:"count"`
}

func newCartResponse(view *cartsvc.View) cartResponse {
	if view == nil {
		return cartResponse{Items: []cartItemResponse{}, Total: types.FormatCents(0)}
	}
	snap := view.Snapshot
	items := make([]cartItemResponse, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, cartItemResponse{
			ProductID:      item.ProductID,
			Title:          item.Title,
			ImageRef:       item.ImageRef,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      types.FormatCents(item.UnitPriceCents),
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents(),
		})
	}
	total := snap.TotalCents()
	return cartResponse{
		Items:      items,
		ItemCount:  snap.Len(),
		TotalCents: total,
		Total:      types.FormatCents(total),
		Warnings:   view.Warnings,
	}
}
