package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/cartcount"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/reconcile"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// newHandler builds the checkout services on top of the shared clients and
// mounts them on the router.
func newHandler(cfg *config.Config, logg *logger.Logger, database *db.Client, redisClient *redis.Client, stripeClient *pkgstripe.Client) (http.Handler, error) {
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	provider, err := payments.NewStripeProvider(stripeClient.CheckoutSessions())
	if err != nil {
		return nil, fmt.Errorf("payment provider: %w", err)
	}

	gormDB := database.DB()
	carts := cart.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	sessions := payments.NewSessionRepository(gormDB)
	events := outbox.NewService(outbox.NewRepository(gormDB), logg)

	projector, err := cartcount.NewProjector(carts, redisClient, cfg.Checkout.CartCountTTL, logg)
	if err != nil {
		return nil, fmt.Errorf("cart count projector: %w", err)
	}
	cartStore, err := cart.NewStore(carts, catalog.NewRepository(gormDB), projector)
	if err != nil {
		return nil, fmt.Errorf("cart store: %w", err)
	}

	factory, err := orders.NewFactory(orderRepo, database, events, stripeClient.Currency())
	if err != nil {
		return nil, fmt.Errorf("order factory: %w", err)
	}
	ordersService, err := orders.NewService(orderRepo, cartStore, factory)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	initiator, err := payments.NewInitiator(payments.InitiatorParams{
		Orders:         orderRepo,
		Sessions:       sessions,
		Provider:       provider,
		Tx:             database,
		AllowedOrigins: cfg.Checkout.AllowedOrigins,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payment initiator: %w", err)
	}
	settler, err := payments.NewSettler(payments.SettlerParams{
		Sessions: sessions,
		Orders:   orderRepo,
		Carts:    carts,
		Listener: projector,
		Tx:       database,
		Outbox:   events,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("settler: %w", err)
	}
	status, err := payments.NewStatusService(sessions, provider, settler)
	if err != nil {
		return nil, fmt.Errorf("status service: %w", err)
	}
	reconciler, err := reconcile.New(reconcile.Params{
		Checker:     status,
		MaxAttempts: cfg.Checkout.ReconcileMaxAttempts,
		Interval:    cfg.Checkout.ReconcileInterval,
		Metrics:     metrics.NewReconcileMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciler: %w", err)
	}

	webhookService, err := stripewebhook.NewService(status, logg)
	if err != nil {
		return nil, fmt.Errorf("stripe webhook service: %w", err)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.WebhookEventTTL, "stripe-webhook")
	if err != nil {
		return nil, fmt.Errorf("stripe webhook guard: %w", err)
	}

	return routes.NewRouter(
		cfg,
		logg,
		database,
		redisClient,
		promhttp.Handler(),
		sessionManager,
		cartStore,
		projector,
		ordersService,
		initiator,
		status,
		reconciler,
		stripeClient,
		webhookService,
		webhookGuard,
	), nil
}
