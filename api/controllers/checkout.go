package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// SessionInitiator opens a hosted payment session for an order.
type SessionInitiator interface {
	InitiateSession(ctx context.Context, ownerID, orderID uuid.UUID, returnOrigin string) (*models.PaymentSession, error)
}

// SessionStatusChecker answers a single status query for a session.
type SessionStatusChecker interface {
	Check(ctx context.Context, ownerID uuid.UUID, sessionID string) (*payments.StatusReport, error)
}

type createSessionRequest struct {
	OrderID      string `json:"order_id" validate:"required,uuid"`
	ReturnOrigin string `json:"return_origin" validate:"omitempty,url"`
}

type sessionResponse struct {
	SessionID   string    `json:"session_id"`
	OrderID     uuid.UUID `json:"order_id"`
	RedirectURL string    `json:"redirect_url"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
}

// PaymentSessionCreate starts a payment session. The return origin defaults
// to the request's Origin header.
func PaymentSessionCreate(initiator SessionInitiator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if initiator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		ownerID, err := middleware.OwnerIDFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUID(body.OrderID, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		origin := strings.TrimSpace(body.ReturnOrigin)
		if origin == "" {
			origin = strings.TrimSpace(r.Header.Get("Origin"))
		}

		session, err := initiator.InitiateSession(r.Context(), ownerID, orderID, origin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			SessionID:   session.SessionID,
			OrderID:     session.OrderID,
			RedirectURL: session.RedirectURL,
			AmountCents: session.AmountCents,
			Currency:    session.Currency,
		})
	}
}

// PaymentSessionStatus performs one status query and applies the result.
func PaymentSessionStatus(checker SessionStatusChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		ownerID, err := middleware.OwnerIDFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id is required"))
			return
		}

		report, err := checker.Check(r.Context(), ownerID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
