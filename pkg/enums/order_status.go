package enums

// OrderStatus is fulfilment readiness; an order is confirmed once paid.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

var orderStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed}

func (o OrderStatus) String() string { return string(o) }

func (o OrderStatus) IsValid() bool { return known(orderStatuses, o) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(orderStatuses, value, "order status")
}
