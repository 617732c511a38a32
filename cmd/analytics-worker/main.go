package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/internal/analytics/router"
	"github.com/angelmondragon/storefront-backend/internal/analytics/worker"
	"github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	serviceKind = "analytics-worker"

	// buffered rows still get written after the subscription stops
	flushTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(context.Background(), "analytics worker exited", err)
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
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.OrderAnalyticsSubscription,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWithLog(ctx, logg, "redis", redisClient.Close)

	ps, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeWithLog(ctx, logg, "pubsub", ps.Close)

	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bootstrap bigquery: %w", err)
	}
	defer closeWithLog(ctx, logg, "bigquery", bq.Close)

	subscription, err := ps.OrderAnalyticsSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("order analytics subscription: %w", err)
	}
	dedupe, err := idempotency.NewManager(redisClient, cfg.Outbox.ConsumerIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("consumer idempotency: %w", err)
	}
	rows, err := writer.New(bq, writer.Config{
		OrderEventsTable: cfg.BigQuery.OrderEventsTable,
		BatchSize:        cfg.BigQuery.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("order events writer: %w", err)
	}
	routes, err := router.NewRouter(rows, logg, nil)
	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}
	svc, err := worker.NewService(subscription, routes, dedupe, logg)
	if err != nil {
		return err
	}

	logg.Info(ctx, "analytics worker started")
	runErr := svc.Run(ctx)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := rows.Flush(flushCtx); err != nil {
		logg.Error(flushCtx, "flush buffered order events", err)
	}
	logg.Info(flushCtx, "analytics worker stopped")
	return runErr
}

func closeWithLog(ctx context.Context, logg *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logg.Error(ctx, "close "+name, err)
	}
}
