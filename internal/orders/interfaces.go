package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDAndOwner(ctx context.Context, orderID, ownerID uuid.UUID) (*models.Order, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*OrderList, error)
	SetLiveSession(ctx context.Context, orderID uuid.UUID, sessionID string) (bool, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, sessionID string) (bool, error)
	FindAwaitingSettlement(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
