package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	successPath = "/order-success?session_id={CHECKOUT_SESSION_ID}"
	cancelPath  = "/checkout"
)

// Initiator opens hosted payment sessions for pending orders.
type Initiator struct {
	orders         orders.Repository
	sessions       SessionRepository
	provider       Provider
	tx             txRunner
	allowedOrigins map[string]struct{}
	logg           *logger.Logger
}

// InitiatorParams groups the initiator dependencies.
type InitiatorParams struct {
	Orders         orders.Repository
	Sessions       SessionRepository
	Provider       Provider
	Tx             txRunner
	AllowedOrigins []string
	Logger         *logger.Logger
}

// NewInitiator validates and wires the initiator. An empty allow list
// accepts any absolute http(s) origin.
func NewInitiator(p InitiatorParams) (*Initiator, error) {
	switch {
	case p.Orders == nil:
		return nil, errors.New("orders repository required")
	case p.Sessions == nil:
		return nil, errors.New("session repository required")
	case p.Provider == nil:
		return nil, errors.New("payment provider required")
	case p.Tx == nil:
		return nil, errors.New("transaction runner required")
	}
	allowed := make(map[string]struct{}, len(p.AllowedOrigins))
	for _, raw := range p.AllowedOrigins {
		origin, err := normalizeOrigin(raw)
		if err != nil {
			return nil, fmt.Errorf("allowed origin %q: %w", raw, err)
		}
		allowed[origin] = struct{}{}
	}
	return &Initiator{
		orders:         p.Orders,
		sessions:       p.Sessions,
		provider:       p.Provider,
		tx:             p.Tx,
		allowedOrigins: allowed,
		logg:           p.Logger,
	}, nil
}

// InitiateSession creates a provider session for the owner's order and makes
// it the order's live session. Provider failures are returned as-is and
// nothing is stored.
func (i *Initiator) InitiateSession(ctx context.Context, ownerID, orderID uuid.UUID, returnOrigin string) (*models.PaymentSession, error) {
	order, err := i.orders.FindByIDAndOwner(ctx, orderID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	switch order.PaymentStatus {
	case enums.PaymentStatusPaid:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	case enums.PaymentStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order payment has failed; place a new order")
	}

	origin, err := i.checkOrigin(returnOrigin)
	if err != nil {
		return nil, err
	}

	req := SessionRequest{
		OrderID:        order.ID,
		UserID:         order.UserID,
		Currency:       order.Currency,
		AmountCents:    order.TotalCents,
		Lines:          make([]SessionLine, 0, len(order.Items)),
		SuccessURL:     origin + successPath,
		CancelURL:      origin + cancelPath,
		IdempotencyKey: fmt.Sprintf("order-%s-%s", order.ID, uuid.NewString()),
	}
	for _, item := range order.Items {
		req.Lines = append(req.Lines, SessionLine{
			Name:           item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}

	created, err := i.provider.CreateSession(ctx, req)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
		}
		return nil, err
	}

	session := &models.PaymentSession{
		ID:               uuid.New(),
		SessionID:        created.ID,
		OrderID:          order.ID,
		UserID:           order.UserID,
		AmountCents:      order.TotalCents,
		Currency:         order.Currency,
		RedirectURL:      created.RedirectURL,
		SettlementStatus: enums.SettlementStatusUnpaid,
	}
	err = i.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := i.sessions.WithTx(tx).Create(ctx, session); err != nil {
			return err
		}
		live, err := i.orders.WithTx(tx).SetLiveSession(ctx, order.ID, created.ID)
		if err != nil {
			return err
		}
		if !live {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is no longer awaiting payment")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment session")
	}

	if i.logg != nil {
		logCtx := i.logg.WithOrderID(ctx, order.ID.String())
		logCtx = i.logg.WithSessionID(logCtx, session.SessionID)
		i.logg.Info(logCtx, "payment_session.created")
	}
	return session, nil
}

func (i *Initiator) checkOrigin(raw string) (string, error) {
	origin, err := normalizeOrigin(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "return origin must be an absolute http(s) URL").
			WithDetails(map[string]any{"origin": raw})
	}
	if len(i.allowedOrigins) == 0 {
		return origin, nil
	}
	if _, ok := i.allowedOrigins[origin]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "return origin is not allowed").
			WithDetails(map[string]any{"origin": raw})
	}
	return origin, nil
}

// normalizeOrigin reduces raw to scheme://host[:port].
func normalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return "", errors.New("host is required")
	}
	if u.User != nil {
		return "", errors.New("credentials are not allowed")
	}
	return scheme + "://" + strings.ToLower(u.Host), nil
}
