package enums

// OutboxAggregateType is the entity an outbox event is about.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

var aggregateTypes = []OutboxAggregateType{AggregateOrder}

func (a OutboxAggregateType) IsValid() bool { return known(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, value, "aggregate type")
}

// OutboxEventType is the domain event carried by an outbox row.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderPaid          OutboxEventType = "order_paid"
	EventOrderPaymentFailed OutboxEventType = "order_payment_failed"
)

var outboxEventTypes = []OutboxEventType{EventOrderCreated, EventOrderPaid, EventOrderPaymentFailed}

func (e OutboxEventType) IsValid() bool { return known(outboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(outboxEventTypes, value, "event type")
}
