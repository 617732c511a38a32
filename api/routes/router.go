package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type cartCountProjector interface {
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	Refresh(ctx context.Context, userID uuid.UUID) (int, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type stripeSigner interface {
	SigningSecret() string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	sessionManager sessionManager,
	cartStore cart.Store,
	cartCounts cartCountProjector,
	ordersSvc orders.Service,
	sessionInitiator controllers.SessionInitiator,
	sessionStatus controllers.SessionStatusChecker,
	reconciler controllers.PaymentReconciler,
	stripeClient stripeSigner,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
	stripeWebhookGuard stripeWebhookGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Checkout.AllowedOrigins),
	)

	var redisPinger controllers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	refreshPolicy := middleware.NewRateLimitPolicy(
		"refresh",
		cfg.RateLimit.RefreshWindow,
		cfg.RateLimit.RefreshIPLimit,
	)

	r.Route("/api/v1/auth", func(r chi.Router) {
		refresh := controllers.AuthRefresh(sessionManager, cartCounts, cfg.JWT, logg)
		if redisClient != nil {
			r.With(middleware.RateLimit(refreshPolicy, redisClient, logg)).Post("/refresh", refresh)
		} else {
			r.Post("/refresh", refresh)
		}
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartStore, logg))
			r.Get("/count", cartcontrollers.CartCount(cartCounts, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartStore, logg))
			r.Put("/items/{productId}", cartcontrollers.CartSetQuantity(cartStore, logg))
			r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(cartStore, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Post("/", ordercontrollers.PlaceOrder(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
		})

		r.Route("/v1/payments/sessions", func(r chi.Router) {
			r.Post("/", controllers.PaymentSessionCreate(sessionInitiator, logg))
			r.Get("/{sessionId}/status", controllers.PaymentSessionStatus(sessionStatus, logg))
		})

		r.Get("/v1/checkout/confirmation", controllers.CheckoutConfirmation(reconciler, logg))
	})

	return r
}
