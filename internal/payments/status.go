package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StatusReport is the answer to a session status query.
type StatusReport struct {
	SessionID   string                 `json:"session_id"`
	OrderID     uuid.UUID              `json:"order_id"`
	Settlement  enums.SettlementStatus `json:"settlement"`
	AmountCents int                    `json:"amount_cents"`
	Currency    string                 `json:"currency"`
}

// StatusService answers session status queries and applies what it learns.
type StatusService struct {
	sessions SessionRepository
	provider Provider
	settler  *Settler
}

// NewStatusService wires the status service.
func NewStatusService(sessions SessionRepository, provider Provider, settler *Settler) (*StatusService, error) {
	switch {
	case sessions == nil:
		return nil, errors.New("session repository required")
	case provider == nil:
		return nil, errors.New("payment provider required")
	case settler == nil:
		return nil, errors.New("settler required")
	}
	return &StatusService{sessions: sessions, provider: provider, settler: settler}, nil
}

// Check queries the provider once for the owner's session and applies the
// result. Sessions already recorded as paid answer without a provider call.
func (s *StatusService) Check(ctx context.Context, ownerID uuid.UUID, sessionID string) (*StatusReport, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	session, err := s.sessions.FindBySessionIDAndOwner(ctx, sessionID, ownerID)
	if err != nil {
		return nil, sessionLookupError(err)
	}
	return s.check(ctx, session)
}

// CheckSession is Check without the ownership filter, for background work.
func (s *StatusService) CheckSession(ctx context.Context, sessionID string) (*StatusReport, error) {
	session, err := s.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, sessionLookupError(err)
	}
	return s.check(ctx, session)
}

// ApplyStatus applies a status the provider pushed to us.
func (s *StatusService) ApplyStatus(ctx context.Context, status SessionStatus) (*StatusReport, error) {
	session, err := s.sessions.FindBySessionID(ctx, status.SessionID)
	if err != nil {
		return nil, sessionLookupError(err)
	}
	if _, err := s.settler.Apply(ctx, session, status); err != nil {
		return nil, err
	}
	return reportFor(session), nil
}

func (s *StatusService) check(ctx context.Context, session *models.PaymentSession) (*StatusReport, error) {
	if session.SettlementStatus == enums.SettlementStatusPaid {
		return reportFor(session), nil
	}
	status, err := s.provider.GetSessionStatus(ctx, session.SessionID)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
		}
		return nil, err
	}
	if status.SessionID == "" {
		status.SessionID = session.SessionID
	}
	if _, err := s.settler.Apply(ctx, session, status); err != nil {
		return nil, err
	}
	return reportFor(session), nil
}

func reportFor(session *models.PaymentSession) *StatusReport {
	return &StatusReport{
		SessionID:   session.SessionID,
		OrderID:     session.OrderID,
		Settlement:  session.SettlementStatus,
		AmountCents: session.AmountCents,
		Currency:    session.Currency,
	}
}

func sessionLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment session")
}
