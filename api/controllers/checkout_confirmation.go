package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/reconcile"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// PaymentReconciler confirms a payment session on the shopper's behalf.
type PaymentReconciler interface {
	Run(ctx context.Context, ownerID uuid.UUID, sessionID string) (reconcile.Result, error)
}

type confirmationResponse struct {
	Outcome  enums.ReconcileOutcome `json:"outcome"`
	Attempts int                    `json:"attempts"`
	Payment  *payments.StatusReport `json:"payment,omitempty"`
}

// CheckoutConfirmation runs the reconciler for the session named in the query
// string. An unresolved payment answers 202 so the client can poll again.
// A client that disconnects mid-run gets no response.
func CheckoutConfirmation(reconciler PaymentReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reconciler == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment reconciler unavailable"))
			return
		}

		ownerID, err := middleware.OwnerIDFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := r.URL.Query().Get("session_id")
		result, err := reconciler.Run(r.Context(), ownerID, sessionID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				if logg != nil {
					logg.Info(logg.WithSessionID(r.Context(), sessionID), "checkout.confirmation_canceled")
				}
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Outcome == enums.ReconcileOutcomeUnresolved {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, confirmationResponse{
			Outcome:  result.Outcome,
			Attempts: result.Attempts,
			Payment:  result.Report,
		})
	}
}
