package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// Store is the authoritative, per-principal cart. Every operation is scoped
// to the owner passed in; there is no process-wide cart state.
type Store interface {
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error)
	View(ctx context.Context, userID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// View is a snapshot plus advisory warnings. Warnings never block a
// mutation.
type View struct {
	Snapshot Snapshot
	Warnings []Warning
}

// Warning flags a line whose quantity exceeds stock or whose live price
// differs from the price at add time.
type Warning struct {
	ProductID uuid.UUID                 `json:"product_id"`
	Type      enums.CartItemWarningType `json:"type"`
	Message   string                    `json:"message"`
}

type store struct {
	repo     ItemRepository
	catalog  catalog.Reader
	listener MutationListener
	now      func() time.Time
}

// NewStore builds a cart store. listener may be nil.
func NewStore(repo ItemRepository, catalogReader catalog.Reader, listener MutationListener) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogReader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if listener == nil {
		listener = ListenerFunc(func(context.Context, uuid.UUID, int) {})
	}
	return &store{
		repo:     repo,
		catalog:  catalogReader,
		listener: listener,
		now:      time.Now,
	}, nil
}

func (s *store) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		UserID:         userID,
		ProductID:      product.ID,
		Title:          product.Title,
		ImageRef:       product.ImageRef,
		UnitPriceCents: product.PriceCents,
		Quantity:       quantity,
	}
	if err := s.repo.Increment(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return s.afterMutation(ctx, userID)
}

func (s *store) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	updated, err := s.repo.SetQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	return s.afterMutation(ctx, userID)
}

func (s *store) Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if err := s.repo.Delete(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.afterMutation(ctx, userID)
}

func (s *store) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteAllForUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	s.listener.CartChanged(ctx, userID, 0)
	return nil
}

// Snapshot re-prices every line from the catalog. Lines whose product has
// left the catalog keep their add-time title, image and price.
func (s *store) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.catalog.FindProducts(ctx, ids)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		OwnerID: userID,
		Items:   make([]SnapshotItem, 0, len(rows)),
		TakenAt: s.now().UTC(),
	}
	for _, row := range rows {
		item := SnapshotItem{
			ProductID:           row.ProductID,
			Title:               row.Title,
			ImageRef:            row.ImageRef,
			UnitPriceCents:      row.UnitPriceCents,
			Quantity:            row.Quantity,
			addedUnitPriceCents: row.UnitPriceCents,
		}
		if product, ok := products[row.ProductID]; ok {
			stock := product.Stock
			item.Title = product.Title
			item.ImageRef = product.ImageRef
			item.UnitPriceCents = product.PriceCents
			item.AvailableStock = &stock
		}
		snap.Items = append(snap.Items, item.clone())
	}
	return snap, nil
}

func (s *store) View(ctx context.Context, userID uuid.UUID) (*View, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &View{Snapshot: snap, Warnings: warningsFor(snap)}, nil
}

// afterMutation reports the stored line count before the view is built.
func (s *store) afterMutation(ctx context.Context, userID uuid.UUID) (*View, error) {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart lines")
	}
	s.listener.CartChanged(ctx, userID, count)
	return s.View(ctx, userID)
}

func warningsFor(snap Snapshot) []Warning {
	var warnings []Warning
	for _, item := range snap.Items {
		if item.AvailableStock != nil && item.Quantity > *item.AvailableStock {
			warnings = append(warnings, Warning{
				ProductID: item.ProductID,
				Type:      enums.CartItemWarningTypeExceedsStock,
				Message:   fmt.Sprintf("only %d in stock", *item.AvailableStock),
			})
		}
		if item.UnitPriceCents != item.addedUnitPriceCents {
			warnings = append(warnings, Warning{
				ProductID: item.ProductID,
				Type:      enums.CartItemWarningTypePriceChanged,
				Message:   "price changed since the item was added",
			})
		}
	}
	return warnings
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": quantity})
	}
	return nil
}
