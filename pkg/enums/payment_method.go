package enums

// PaymentMethod is how the shopper settles an order. Only hosted Stripe
// checkout is supported.
type PaymentMethod string

const PaymentMethodStripe PaymentMethod = "stripe"

var paymentMethods = []PaymentMethod{PaymentMethodStripe}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return known(paymentMethods, p) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(paymentMethods, value, "payment method")
}
