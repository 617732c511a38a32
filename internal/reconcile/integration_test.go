package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// paidOnCall reports unpaid until the nth status query.
type paidOnCall struct {
	mu    sync.Mutex
	n     int
	calls int
}

func (p *paidOnCall) CreateSession(_ context.Context, req payments.SessionRequest) (payments.ProviderSession, error) {
	return payments.ProviderSession{ID: "cs_" + req.OrderID.String(), RedirectURL: "https://pay.example/session"}, nil
}

func (p *paidOnCall) GetSessionStatus(_ context.Context, sessionID string) (payments.SessionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	status := payments.SessionStatus{SessionID: sessionID, Settlement: enums.SettlementStatusUnpaid}
	if p.n > 0 && p.calls >= p.n {
		status.Settlement = enums.SettlementStatusPaid
	}
	return status, nil
}

type checkoutFixture struct {
	status    *payments.StatusService
	initiator *payments.Initiator
	orders    orders.Service
	orderRepo orders.Repository
	carts     cart.Store
	productID uuid.UUID
}

func setupCheckout(t *testing.T, provider payments.Provider) *checkoutFixture {
	t.Helper()
	db := dbtest.Open(t)
	tx := dbpkg.NewFromConn(db)
	events := outbox.NewService(outbox.NewRepository(db), nil)
	cartRepo := cart.NewRepository(db)
	carts, err := cart.NewStore(cartRepo, catalog.NewRepository(db), nil)
	require.NoError(t, err)
	orderRepo := orders.NewRepository(db)
	factory, err := orders.NewFactory(orderRepo, tx, events, "usd")
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orderRepo, carts, factory)
	require.NoError(t, err)

	sessions := payments.NewSessionRepository(db)
	initiator, err := payments.NewInitiator(payments.InitiatorParams{Orders: orderRepo, Sessions: sessions, Provider: provider, Tx: tx})
	require.NoError(t, err)
	settler, err := payments.NewSettler(payments.SettlerParams{Sessions: sessions, Orders: orderRepo, Carts: cartRepo, Tx: tx, Outbox: events})
	require.NoError(t, err)
	status, err := payments.NewStatusService(sessions, provider, settler)
	require.NoError(t, err)

	product := dbtest.MustCreateProduct(t, db, "Mug", 1000, 10)
	return &checkoutFixture{
		status:    status,
		initiator: initiator,
		orders:    orderSvc,
		orderRepo: orderRepo,
		carts:     carts,
		productID: product.ID,
	}
}

func (f *checkoutFixture) placeAndInitiate(t *testing.T, owner uuid.UUID) (uuid.UUID, string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.Add(ctx, owner, f.productID, 2)
	require.NoError(t, err)
	order, err := f.orders.PlaceOrder(ctx, owner, orders.PlaceOrderInput{
		Shipping: types.ShippingAddress{
			FullName: "Ada Lovelace", Address: "12 Analytical Way", City: "London",
			PostalCode: "N1 7AA", Country: "GB", Phone: "+44 20 7946 0000",
		},
		PaymentMethod: enums.PaymentMethodStripe,
	})
	require.NoError(t, err)
	session, err := f.initiator.InitiateSession(ctx, owner, order.ID, "https://shop.example.com")
	require.NoError(t, err)
	return order.ID, session.SessionID
}

func TestReconcileMarksOrderPaid(t *testing.T) {
	provider := &paidOnCall{n: 3}
	f := setupCheckout(t, provider)
	owner := uuid.New()
	orderID, sessionID := f.placeAndInitiate(t, owner)

	r := newTestReconciler(t, f.status, newFakeClock(false))
	result, err := r.Run(context.Background(), owner, sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileOutcomeConfirmed, result.Outcome)
	assert.Equal(t, 3, result.Attempts)

	order, err := f.orderRepo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)

	again, err := r.Run(context.Background(), owner, sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileOutcomeConfirmed, again.Outcome)
	assert.Equal(t, 1, again.Attempts)
	assert.Equal(t, 3, provider.calls, "settled sessions are answered locally")
}

func TestReconcileLeavesOrderPendingWhenUnresolved(t *testing.T) {
	provider := &paidOnCall{}
	f := setupCheckout(t, provider)
	owner := uuid.New()
	orderID, sessionID := f.placeAndInitiate(t, owner)

	r := newTestReconciler(t, f.status, newFakeClock(false))
	result, err := r.Run(context.Background(), owner, sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileOutcomeUnresolved, result.Outcome)
	assert.Equal(t, 5, provider.calls)

	order, err := f.orderRepo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
}

func TestReconcileForeignSessionAborts(t *testing.T) {
	provider := &paidOnCall{n: 1}
	f := setupCheckout(t, provider)
	_, sessionID := f.placeAndInitiate(t, uuid.New())

	r := newTestReconciler(t, f.status, newFakeClock(false))
	result, err := r.Run(context.Background(), uuid.New(), sessionID)
	require.Error(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Zero(t, provider.calls)
}
