package cart

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemRepository defines the persistence surface required by the cart store.
type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	Increment(ctx context.Context, item *models.CartItem) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (bool, error)
	Delete(ctx context.Context, userID, productID uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// MutationListener observes the line count after every successful cart
// mutation.
type MutationListener interface {
	CartChanged(ctx context.Context, userID uuid.UUID, itemCount int)
}

// ListenerFunc adapts a function to MutationListener.
type ListenerFunc func(ctx context.Context, userID uuid.UUID, itemCount int)

func (f ListenerFunc) CartChanged(ctx context.Context, userID uuid.UUID, itemCount int) {
	f(ctx, userID, itemCount)
}
