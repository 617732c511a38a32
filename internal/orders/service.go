package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes the shopper-facing order operations.
type Service interface {
	PlaceOrder(ctx context.Context, ownerID uuid.UUID, input PlaceOrderInput) (*models.Order, error)
	Get(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type snapshotReader interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error)
}

type service struct {
	repo    Repository
	carts   snapshotReader
	factory *Factory
}

// NewService builds the order service.
func NewService(repo Repository, carts snapshotReader, factory *Factory) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if carts == nil {
		return nil, errors.New("cart snapshot reader required")
	}
	if factory == nil {
		return nil, errors.New("order factory required")
	}
	return &service{repo: repo, carts: carts, factory: factory}, nil
}

// PlaceOrder snapshots the shopper's cart and creates an order from it. The
// cart is left intact until payment settles.
func (s *service) PlaceOrder(ctx context.Context, ownerID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	snapshot, err := s.carts.Snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.factory.CreateOrder(ctx, ownerID, snapshot, input.Shipping, input.PaymentMethod)
}

func (s *service) Get(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDAndOwner(ctx, orderID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}
