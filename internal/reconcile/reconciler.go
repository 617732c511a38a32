package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	DefaultMaxAttempts = 5
	DefaultInterval    = 2 * time.Second
)

// StatusChecker queries a session's settlement once and applies it.
type StatusChecker interface {
	Check(ctx context.Context, ownerID uuid.UUID, sessionID string) (*payments.StatusReport, error)
}

// Result describes how a run ended.
type Result struct {
	Outcome  enums.ReconcileOutcome `json:"outcome"`
	Attempts int                    `json:"attempts"`
	Report   *payments.StatusReport `json:"report,omitempty"`
}

// Reconciler polls a payment session until it settles or the attempt limit
// is reached. Attempts are strictly sequential.
type Reconciler struct {
	checker     StatusChecker
	clock       Clock
	maxAttempts int
	interval    time.Duration
	metrics     *metrics.ReconcileMetrics
	logg        *logger.Logger
}

// Params groups the reconciler dependencies. Zero attempts or interval fall
// back to 5 attempts two seconds apart.
type Params struct {
	Checker     StatusChecker
	Clock       Clock
	MaxAttempts int
	Interval    time.Duration
	Metrics     *metrics.ReconcileMetrics
	Logger      *logger.Logger
}

// New validates and wires a reconciler.
func New(p Params) (*Reconciler, error) {
	if p.Checker == nil {
		return nil, errors.New("status checker required")
	}
	clock := p.Clock
	if clock == nil {
		clock = SystemClock()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		checker:     p.Checker,
		clock:       clock,
		maxAttempts: maxAttempts,
		interval:    interval,
		metrics:     p.Metrics,
		logg:        p.Logger,
	}, nil
}

// Run reconciles the owner's session. A blank session id returns no_session
// without querying anything. Exhausting the attempts returns unresolved and
// leaves the order pending. Errors that retrying cannot fix end the run with
// the error; transient ones consume an attempt.
func (r *Reconciler) Run(ctx context.Context, ownerID uuid.UUID, sessionID string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return r.finish(ctx, Result{Outcome: enums.ReconcileOutcomeNoSession}, nil)
	}
	if r.logg != nil {
		ctx = r.logg.WithSessionID(ctx, sessionID)
	}

	var result Result
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Outcome = enums.ReconcileOutcomeCanceled
			return r.finish(ctx, result, err)
		}

		result.Attempts = attempt
		r.metrics.IncAttempt()
		report, err := r.checker.Check(ctx, ownerID, sessionID)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Outcome = enums.ReconcileOutcomeCanceled
				return r.finish(ctx, result, ctxErr)
			}
			if !pkgerrors.Retryable(err) {
				return r.finish(ctx, result, err)
			}
			if r.logg != nil {
				logCtx := r.logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": err.Error()})
				r.logg.Warn(logCtx, "settlement query failed")
			}
		case report.Settlement == enums.SettlementStatusPaid:
			result.Outcome = enums.ReconcileOutcomeConfirmed
			result.Report = report
			return r.finish(ctx, result, nil)
		case report.Settlement == enums.SettlementStatusFailed:
			result.Outcome = enums.ReconcileOutcomeFailed
			result.Report = report
			return r.finish(ctx, result, nil)
		default:
			result.Report = report
		}

		if attempt >= r.maxAttempts {
			result.Outcome = enums.ReconcileOutcomeUnresolved
			return r.finish(ctx, result, nil)
		}
		if err := r.wait(ctx); err != nil {
			result.Outcome = enums.ReconcileOutcomeCanceled
			return r.finish(ctx, result, err)
		}
	}
}

// wait blocks for one interval; the timer is stopped on every exit path.
func (r *Reconciler) wait(ctx context.Context) error {
	timer := r.clock.NewTimer(r.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

func (r *Reconciler) finish(ctx context.Context, result Result, err error) (Result, error) {
	outcome := result.Outcome.String()
	if outcome == "" {
		outcome = "error"
	}
	r.metrics.ObserveRun(outcome, result.Attempts)
	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{"outcome": outcome, "attempts": result.Attempts})
		if err != nil && result.Outcome != enums.ReconcileOutcomeCanceled {
			r.logg.Error(logCtx, "payment reconciliation aborted", err)
		} else {
			r.logg.Info(logCtx, "payment reconciliation finished")
		}
	}
	return result, err
}
