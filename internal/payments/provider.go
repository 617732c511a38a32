package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Provider is the hosted payment processor contract.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (ProviderSession, error)
	GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
}

// SessionLine is one priced line shown on the hosted payment page.
type SessionLine struct {
	Name           string
	UnitPriceCents int
	Quantity       int
}

// SessionRequest asks the provider for a hosted payment page.
type SessionRequest struct {
	OrderID        uuid.UUID
	UserID         uuid.UUID
	Currency       string
	AmountCents    int
	Lines          []SessionLine
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// ProviderSession is the provider's answer to a SessionRequest.
type ProviderSession struct {
	ID          string
	RedirectURL string
}

// SessionStatus is the provider's view of a session's settlement.
type SessionStatus struct {
	SessionID   string
	Settlement  enums.SettlementStatus
	AmountCents int
	Currency    string
	OrderID     uuid.UUID
}
