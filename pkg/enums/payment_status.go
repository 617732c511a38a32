package enums

// PaymentStatus is the order-side view of payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return known(paymentStatuses, p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse(paymentStatuses, value, "payment status")
}
