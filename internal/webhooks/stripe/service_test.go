package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type stubApplier struct {
	applied []payments.SessionStatus
	err     error
}

func (s *stubApplier) ApplyStatus(_ context.Context, status payments.SessionStatus) (*payments.StatusReport, error) {
	s.applied = append(s.applied, status)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.StatusReport{SessionID: status.SessionID, Settlement: status.Settlement}, nil
}

func checkoutEvent(t *testing.T, eventType stripe.EventType, session stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	return &stripe.Event{ID: "evt_" + uuid.NewString(), Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestHandleEventAppliesSettlement(t *testing.T) {
	orderID := uuid.New()
	cases := []struct {
		name      string
		eventType stripe.EventType
		session   stripe.CheckoutSession
		want      enums.SettlementStatus
	}{
		{
			name:      "completed and paid",
			eventType: stripe.EventTypeCheckoutSessionCompleted,
			session:   stripe.CheckoutSession{ID: "cs_1", Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid},
			want:      enums.SettlementStatusPaid,
		},
		{
			name:      "async payment succeeded",
			eventType: stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
			session:   stripe.CheckoutSession{ID: "cs_2", Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid},
			want:      enums.SettlementStatusPaid,
		},
		{
			name:      "expired",
			eventType: stripe.EventTypeCheckoutSessionExpired,
			session:   stripe.CheckoutSession{ID: "cs_3", Status: stripe.CheckoutSessionStatusExpired, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid},
			want:      enums.SettlementStatusFailed,
		},
		{
			name:      "async payment failed",
			eventType: stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
			session:   stripe.CheckoutSession{ID: "cs_4", Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid},
			want:      enums.SettlementStatusFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			applier := &stubApplier{}
			svc, err := NewService(applier, nil)
			require.NoError(t, err)
			tc.session.Metadata = map[string]string{"order_id": orderID.String()}

			require.NoError(t, svc.HandleEvent(context.Background(), checkoutEvent(t, tc.eventType, tc.session)))
			require.Len(t, applier.applied, 1)
			assert.Equal(t, tc.session.ID, applier.applied[0].SessionID)
			assert.Equal(t, tc.want, applier.applied[0].Settlement)
			assert.Equal(t, orderID, applier.applied[0].OrderID)
		})
	}
}

func TestHandleEventSkipsPendingAsyncAndOtherEvents(t *testing.T) {
	applier := &stubApplier{}
	svc, err := NewService(applier, nil)
	require.NoError(t, err)

	pending := checkoutEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID: "cs_1", Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	})
	require.NoError(t, svc.HandleEvent(context.Background(), pending))

	other := &stripe.Event{ID: "evt_x", Type: stripe.EventTypeCustomerCreated, Data: &stripe.EventData{Raw: []byte(`{}`)}}
	require.NoError(t, svc.HandleEvent(context.Background(), other))
	assert.Empty(t, applier.applied)
}

func TestHandleEventUnknownSessionIsAcknowledged(t *testing.T) {
	applier := &stubApplier{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")}
	svc, err := NewService(applier, nil)
	require.NoError(t, err)

	event := checkoutEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID: "cs_foreign", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	})
	assert.NoError(t, svc.HandleEvent(context.Background(), event))
}

func TestHandleEventPropagatesApplyFailures(t *testing.T) {
	applier := &stubApplier{err: pkgerrors.New(pkgerrors.CodeInternal, "db down")}
	svc, err := NewService(applier, nil)
	require.NoError(t, err)

	event := checkoutEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID: "cs_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	})
	assert.True(t, pkgerrors.IsCode(svc.HandleEvent(context.Background(), event), pkgerrors.CodeInternal))
}

func TestHandleEventRejectsMalformedPayload(t *testing.T) {
	svc, err := NewService(&stubApplier{}, nil)
	require.NoError(t, err)

	assert.True(t, pkgerrors.IsCode(svc.HandleEvent(context.Background(), nil), pkgerrors.CodeValidation))
	bad := &stripe.Event{Type: stripe.EventTypeCheckoutSessionCompleted, Data: &stripe.EventData{Raw: []byte(`{"id":`)}}
	assert.True(t, pkgerrors.IsCode(svc.HandleEvent(context.Background(), bad), pkgerrors.CodeValidation))
	noID := &stripe.Event{Type: stripe.EventTypeCheckoutSessionCompleted, Data: &stripe.EventData{Raw: []byte(`{}`)}}
	assert.True(t, pkgerrors.IsCode(svc.HandleEvent(context.Background(), noID), pkgerrors.CodeValidation))
}

func TestIdempotencyGuardClaimsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	store := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Release(ctx, "evt_1"))
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	mr.FastForward(2 * time.Hour)
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "claims expire")

	_, err = guard.CheckAndMark(ctx, "")
	assert.Error(t, err)
}

func TestNewIdempotencyGuardValidates(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Minute, "scope")
	assert.Error(t, err)
}
