package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const (
	metadataOrderID = "order_id"
	metadataUserID  = "user_id"
)

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	sessions pkgstripe.CheckoutSessionAPI
}

// NewStripeProvider adapts a checkout session client.
func NewStripeProvider(sessions pkgstripe.CheckoutSessionAPI) (*StripeProvider, error) {
	if sessions == nil {
		return nil, errors.New("stripe checkout sessions client required")
	}
	return &StripeProvider{sessions: sessions}, nil
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		Metadata: map[string]string{
			metadataOrderID: req.OrderID.String(),
			metadataUserID:  req.UserID.String(),
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				metadataOrderID: req.OrderID.String(),
			},
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}

	currency := strings.ToLower(req.Currency)
	params.LineItems = make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(line.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(int64(line.UnitPriceCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}

	sess, err := p.sessions.New(params)
	if err != nil {
		return ProviderSession{}, classifyStripeError(err, "create checkout session")
	}
	if sess == nil || sess.ID == "" || sess.URL == "" {
		return ProviderSession{}, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned an incomplete session")
	}
	return ProviderSession{ID: sess.ID, RedirectURL: sess.URL}, nil
}

func (p *StripeProvider) GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return SessionStatus{}, classifyStripeError(err, "retrieve checkout session")
	}
	if sess == nil {
		return SessionStatus{}, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no session")
	}
	return StatusFromCheckoutSession(sess), nil
}

// StatusFromCheckoutSession maps a Stripe checkout session onto a settlement.
// Webhook payloads reuse it so both paths agree.
func StatusFromCheckoutSession(sess *stripe.CheckoutSession) SessionStatus {
	status := SessionStatus{
		SessionID:   sess.ID,
		Settlement:  enums.SettlementStatusUnpaid,
		AmountCents: int(sess.AmountTotal),
		Currency:    string(sess.Currency),
	}
	if raw, ok := sess.Metadata[metadataOrderID]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			status.OrderID = id
		}
	}
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		status.Settlement = enums.SettlementStatusPaid
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		status.Settlement = enums.SettlementStatusFailed
	}
	return status
}

func classifyStripeError(err error, action string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.HTTPStatusCode {
		case http.StatusNotFound:
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment session not found")
		case http.StatusUnauthorized, http.StatusForbidden:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment provider rejected merchant credentials")
		case http.StatusBadRequest:
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment provider rejected the request")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable: "+action)
}
