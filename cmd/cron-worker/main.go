package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/cartcount"
	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const serviceKind = "cron-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(context.Background(), "cron worker exited", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": cfg.Service.Kind})

	database, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWithLog(ctx, logg, "database", database.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, database); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWithLog(ctx, logg, "redis", redisClient.Close)

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return fmt.Errorf("bootstrap stripe: %w", err)
	}

	svc, err := newScheduler(cfg, logg, database, redisClient, stripeClient)
	if err != nil {
		return err
	}

	logg.Info(ctx, "cron worker started")
	err = svc.Run(ctx)
	logg.Info(ctx, "cron worker stopped")
	return err
}

// newScheduler wires the payment sweep and outbox retention jobs behind a
// per-env Redis lock so one replica runs them at a time.
func newScheduler(cfg *config.Config, logg *logger.Logger, database *db.Client, redisClient *redis.Client, stripeClient *pkgstripe.Client) (*cron.Service, error) {
	provider, err := payments.NewStripeProvider(stripeClient.CheckoutSessions())
	if err != nil {
		return nil, fmt.Errorf("payment provider: %w", err)
	}

	gormDB := database.DB()
	carts := cart.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	sessions := payments.NewSessionRepository(gormDB)
	outboxRepo := outbox.NewRepository(gormDB)

	projector, err := cartcount.NewProjector(carts, redisClient, cfg.Checkout.CartCountTTL, logg)
	if err != nil {
		return nil, fmt.Errorf("cart count projector: %w", err)
	}
	settler, err := payments.NewSettler(payments.SettlerParams{
		Sessions: sessions,
		Orders:   orderRepo,
		Carts:    carts,
		Listener: projector,
		Tx:       database,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("settler: %w", err)
	}
	status, err := payments.NewStatusService(sessions, provider, settler)
	if err != nil {
		return nil, fmt.Errorf("status service: %w", err)
	}

	sweep, err := cron.NewPaymentSweepJob(cron.PaymentSweepJobParams{
		Logger:    logg,
		Orders:    orderRepo,
		Checker:   status,
		Age:       cfg.Checkout.SweepAge,
		BatchSize: cfg.Checkout.SweepBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("payment sweep job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{Logger: logg, Outbox: outboxRepo})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind+":"+env), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweep, retention),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
}

func closeWithLog(ctx context.Context, logg *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logg.Error(ctx, "close "+name, err)
	}
}
