package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// SessionRepository persists payment sessions.
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	Create(ctx context.Context, session *models.PaymentSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentSession, error)
	FindBySessionIDAndOwner(ctx context.Context, sessionID string, ownerID uuid.UUID) (*models.PaymentSession, error)
	UpdateSettlement(ctx context.Context, sessionID string, status enums.SettlementStatus) (bool, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository builds a payment session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	if tx == nil {
		return r
	}
	return &sessionRepository{db: tx}
}

// Create reports a reused provider session id as a conflict.
func (r *sessionRepository) Create(ctx context.Context, session *models.PaymentSession) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment session already recorded")
	}
	return err
}

func (r *sessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindBySessionIDAndOwner(ctx context.Context, sessionID string, ownerID uuid.UUID) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, ownerID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSettlement never moves a session out of paid.
func (r *sessionRepository) UpdateSettlement(ctx context.Context, sessionID string, status enums.SettlementStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("session_id = ? AND settlement_status <> ? AND settlement_status <> ?", sessionID, enums.SettlementStatusPaid, status).
		Updates(map[string]any{"settlement_status": status})
	return res.RowsAffected > 0, res.Error
}
