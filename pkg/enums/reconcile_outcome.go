package enums

// ReconcileOutcome is how a payment confirmation run ended.
type ReconcileOutcome string

const (
	ReconcileOutcomeNoSession  ReconcileOutcome = "no_session"
	ReconcileOutcomeConfirmed  ReconcileOutcome = "confirmed"
	ReconcileOutcomeFailed     ReconcileOutcome = "failed"
	ReconcileOutcomeUnresolved ReconcileOutcome = "unresolved"
	ReconcileOutcomeCanceled   ReconcileOutcome = "canceled"
)

var reconcileOutcomes = []ReconcileOutcome{
	ReconcileOutcomeNoSession,
	ReconcileOutcomeConfirmed,
	ReconcileOutcomeFailed,
	ReconcileOutcomeUnresolved,
	ReconcileOutcomeCanceled,
}

func (o ReconcileOutcome) String() string { return string(o) }

func (o ReconcileOutcome) IsValid() bool { return known(reconcileOutcomes, o) }

func ParseReconcileOutcome(value string) (ReconcileOutcome, error) {
	return parse(reconcileOutcomes, value, "reconcile outcome")
}
