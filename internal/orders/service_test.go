package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type harness struct {
	db      *gorm.DB
	carts   cart.Store
	factory *Factory
	svc     Service
	repo    Repository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	carts, err := cart.NewStore(cart.NewRepository(db), catalog.NewRepository(db), nil)
	require.NoError(t, err)
	factory, err := NewFactory(repo, dbpkg.NewFromConn(db), outbox.NewService(outbox.NewRepository(db), nil), "USD")
	require.NoError(t, err)
	svc, err := NewService(repo, carts, factory)
	require.NoError(t, err)
	return &harness{db: db, carts: carts, factory: factory, svc: svc, repo: repo}
}

func validShipping() types.ShippingAddress {
	return types.ShippingAddress{
		FullName:   "Ada Lovelace",
		Address:    "12 Analytical Way",
		City:       "London",
		PostalCode: "N1 7AA",
		Country:    "GB",
		Phone:      "+44 20 7946 0000",
	}
}

func TestPlaceOrderCopiesCartAndTotals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := uuid.New()
	mug := dbtest.MustCreateProduct(t, h.db, "Mug", 1000, 10)
	tea := dbtest.MustCreateProduct(t, h.db, "Tea", 500, 10)

	_, err := h.carts.Add(ctx, owner, mug.ID, 2)
	require.NoError(t, err)
	_, err = h.carts.Add(ctx, owner, tea.ID, 1)
	require.NoError(t, err)

	order, err := h.svc.PlaceOrder(ctx, owner, PlaceOrderInput{Shipping: validShipping(), PaymentMethod: enums.PaymentMethodStripe})
	require.NoError(t, err)

	assert.Equal(t, 2500, order.TotalCents)
	assert.Equal(t, "25.00", types.FormatCents(order.TotalCents))
	assert.Equal(t, "usd", order.Currency)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, mug.ID, order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)

	stored, err := h.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2500, stored.TotalCents)
	assert.Equal(t, stored.TotalCents, stored.RecomputeTotalCents())
	assert.Equal(t, "Ada Lovelace", stored.ShippingAddress.FullName)

	snap, err := h.carts.Snapshot(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len(), "placing an order leaves the cart alone")
}

func TestOrderTotalIgnoresLaterPriceAndCartChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := uuid.New()
	mug := dbtest.MustCreateProduct(t, h.db, "Mug", 1000, 10)

	_, err := h.carts.Add(ctx, owner, mug.ID, 2)
	require.NoError(t, err)
	order, err := h.svc.PlaceOrder(ctx, owner, PlaceOrderInput{Shipping: validShipping(), PaymentMethod: enums.PaymentMethodStripe})
	require.NoError(t, err)

	require.NoError(t, h.db.Model(&models.Product{}).Where("id = ?", mug.ID).Update("price_cents", 9999).Error)
	_, err = h.carts.SetQuantity(ctx, owner, mug.ID, 7)
	require.NoError(t, err)

	stored, err := h.svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000, stored.TotalCents)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 1000, stored.Items[0].UnitPriceCents)
	assert.Equal(t, 2, stored.Items[0].Quantity)
}

func TestCreateOrderDoesNotAliasSnapshot(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	ref := "img/mug.png"
	snap := cart.Snapshot{
		OwnerID: owner,
		Items: []cart.SnapshotItem{
			{ProductID: uuid.New(), Title: "Mug", ImageRef: &ref, UnitPriceCents: 1250, Quantity: 2},
		},
	}

	order, err := h.factory.CreateOrder(context.Background(), owner, snap, validShipping(), enums.PaymentMethodStripe)
	require.NoError(t, err)

	snap.Items[0].Quantity = 99
	snap.Items[0].UnitPriceCents = 1
	*snap.Items[0].ImageRef = "changed"

	assert.Equal(t, 2500, order.TotalCents)
	assert.Equal(t, 2, order.Items[0].Quantity)
	require.NotNil(t, order.Items[0].ImageRef)
	assert.Equal(t, "img/mug.png", *order.Items[0].ImageRef)
}

func TestCreateOrderValidation(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	line := cart.Snapshot{Items: []cart.SnapshotItem{{ProductID: uuid.New(), Title: "Mug", UnitPriceCents: 100, Quantity: 1}}}

	_, err := h.factory.CreateOrder(context.Background(), owner, cart.Snapshot{}, validShipping(), enums.PaymentMethodStripe)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCart))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	shipping := validShipping()
	shipping.City = "  "
	shipping.Phone = ""
	_, err = h.factory.CreateOrder(context.Background(), owner, line, shipping, enums.PaymentMethodStripe)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]any{"missing": []string{"city", "phone"}}, typed.Details())

	_, err = h.factory.CreateOrder(context.Background(), owner, line, validShipping(), enums.PaymentMethod("cash"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "rejected orders are never stored")
}

func TestCreateOrderRejectsZeroTotal(t *testing.T) {
	h := newHarness(t)
	free := cart.Snapshot{Items: []cart.SnapshotItem{{ProductID: uuid.New(), Title: "Sticker", UnitPriceCents: 0, Quantity: 2}}}

	order, err := h.factory.CreateOrder(context.Background(), uuid.New(), free, validShipping(), enums.PaymentMethodStripe)
	require.Error(t, err)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrZeroTotal)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.PlaceOrder(context.Background(), uuid.New(), PlaceOrderInput{Shipping: validShipping(), PaymentMethod: enums.PaymentMethodStripe})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderEmitsCreatedEvent(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	snap := cart.Snapshot{Items: []cart.SnapshotItem{{ProductID: uuid.New(), Title: "Mug", UnitPriceCents: 700, Quantity: 3}}}

	order, err := h.factory.CreateOrder(context.Background(), owner, snap, validShipping(), enums.PaymentMethodStripe)
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, h.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	assert.Equal(t, order.ID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var data map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.EqualValues(t, 2100, data["total_cents"])
}

func TestEachPlacementCreatesDistinctOrder(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	snap := cart.Snapshot{Items: []cart.SnapshotItem{{ProductID: uuid.New(), Title: "Mug", UnitPriceCents: 700, Quantity: 1}}}

	first, err := h.factory.CreateOrder(context.Background(), owner, snap, validShipping(), enums.PaymentMethodStripe)
	require.NoError(t, err)
	second, err := h.factory.CreateOrder(context.Background(), owner, snap, validShipping(), enums.PaymentMethodStripe)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetForeignOrderIsNotFound(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	snap := cart.Snapshot{Items: []cart.SnapshotItem{{ProductID: uuid.New(), Title: "Mug", UnitPriceCents: 700, Quantity: 1}}}
	order, err := h.factory.CreateOrder(context.Background(), owner, snap, validShipping(), enums.PaymentMethodStripe)
	require.NoError(t, err)

	_, err = h.svc.Get(context.Background(), uuid.New(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = h.svc.Get(context.Background(), owner, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPagesNewestFirst(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	snap := cart.Snapshot{Items: []cart.SnapshotItem{{ProductID: uuid.New(), Title: "Mug", UnitPriceCents: 700, Quantity: 1}}}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var created []uuid.UUID
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		h.factory.now = func() time.Time { return at }
		order, err := h.factory.CreateOrder(context.Background(), owner, snap, validShipping(), enums.PaymentMethodStripe)
		require.NoError(t, err)
		created = append(created, order.ID)
	}
	_, err := h.factory.CreateOrder(context.Background(), uuid.New(), snap, validShipping(), enums.PaymentMethodStripe)
	require.NoError(t, err)

	page, err := h.svc.List(context.Background(), owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, created[2], page.Orders[0].ID)
	assert.Equal(t, created[1], page.Orders[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := h.svc.List(context.Background(), owner, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, created[0], next.Orders[0].ID)
	assert.Empty(t, next.NextCursor)

	_, err = h.svc.List(context.Background(), owner, pagination.Params{Cursor: "not-base64!"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewFactoryRequiresDependencies(t *testing.T) {
	_, err := NewFactory(nil, nil, nil, "usd")
	assert.Error(t, err)
	db := dbtest.Open(t)
	_, err = NewFactory(NewRepository(db), dbpkg.NewFromConn(db), outbox.NewService(outbox.NewRepository(db), nil), " ")
	assert.Error(t, err)
}
