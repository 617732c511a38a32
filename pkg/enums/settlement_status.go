package enums

// SettlementStatus is what the provider last reported for a payment session.
type SettlementStatus string

const (
	SettlementStatusUnpaid SettlementStatus = "unpaid"
	SettlementStatusPaid   SettlementStatus = "paid"
	SettlementStatusFailed SettlementStatus = "failed"
)

var settlementStatuses = []SettlementStatus{SettlementStatusUnpaid, SettlementStatusPaid, SettlementStatusFailed}

func (s SettlementStatus) String() string { return string(s) }

func (s SettlementStatus) IsValid() bool { return known(settlementStatuses, s) }

func ParseSettlementStatus(value string) (SettlementStatus, error) {
	return parse(settlementStatuses, value, "settlement status")
}
