package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultSweepAge   = 10 * time.Minute
	defaultSweepBatch = 100
)

type awaitingOrders interface {
	FindAwaitingSettlement(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type sessionChecker interface {
	CheckSession(ctx context.Context, sessionID string) (*payments.StatusReport, error)
}

// PaymentSweepJobParams configure the pending payment sweep.
type PaymentSweepJobParams struct {
	Logger    *logger.Logger
	Orders    awaitingOrders
	Checker   sessionChecker
	Age       time.Duration
	BatchSize int
}

// NewPaymentSweepJob checks the live session of every order that has waited
// longer than Age for settlement. Each order gets a single status query.
func NewPaymentSweepJob(params PaymentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Checker == nil {
		return nil, fmt.Errorf("status checker required")
	}
	age := params.Age
	if age <= 0 {
		age = defaultSweepAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &paymentSweepJob{
		logg:    params.Logger,
		orders:  params.Orders,
		checker: params.Checker,
		age:     age,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type paymentSweepJob struct {
	logg    *logger.Logger
	orders  awaitingOrders
	checker sessionChecker
	age     time.Duration
	batch   int
	now     func() time.Time
}

func (j *paymentSweepJob) Name() string { return "pending-payment-sweep" }

func (j *paymentSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	orders, err := j.orders.FindAwaitingSettlement(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("load orders awaiting settlement: %w", err)
	}

	counts := map[enums.SettlementStatus]int{}
	var errs error
	for _, order := range orders {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if order.LiveSessionID == nil {
			continue
		}
		report, err := j.checker.CheckSession(ctx, *order.LiveSessionID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				j.logMissing(ctx, order.ID, *order.LiveSessionID)
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		counts[report.Settlement]++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(orders),
		"paid":    counts[enums.SettlementStatusPaid],
		"failed":  counts[enums.SettlementStatusFailed],
		"unpaid":  counts[enums.SettlementStatusUnpaid],
		"errors":  len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "pending payment sweep complete")
	return errs
}

func (j *paymentSweepJob) logMissing(ctx context.Context, orderID uuid.UUID, sessionID string) {
	logCtx := j.logg.WithOrderID(ctx, orderID.String())
	logCtx = j.logg.WithSessionID(logCtx, sessionID)
	j.logg.Warn(logCtx, "live session missing from payment sessions")
}
