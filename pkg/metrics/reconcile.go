package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics tracks payment reconciliation runs.
type ReconcileMetrics struct {
	attempts    prometheus.Counter
	outcomes    *prometheus.CounterVec
	runAttempts prometheus.Histogram
}

// NewReconcileMetrics registers the reconciliation collectors. A nil
// registerer yields a no-op recorder.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	attempts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "attempts_total",
		Help:      "Settlement status queries issued by the reconciler.",
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "outcomes_total",
		Help:      "Reconciliation runs by outcome.",
	}, []string{"outcome"})
	runAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "attempts_per_run",
		Help:      "Status queries per reconciliation run.",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})
	reg.MustRegister(attempts, outcomes, runAttempts)
	return &ReconcileMetrics{attempts: attempts, outcomes: outcomes, runAttempts: runAttempts}
}

// IncAttempt counts one status query.
func (m *ReconcileMetrics) IncAttempt() {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Inc()
}

// ObserveRun records a finished run.
func (m *ReconcileMetrics) ObserveRun(outcome string, attempts int) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.runAttempts.Observe(float64(attempts))
}
