package enums

// CartItemWarningType flags a cart line whose product changed after it was
// added. Warnings never block a mutation.
type CartItemWarningType string

const (
	CartItemWarningTypeExceedsStock CartItemWarningType = "quantity_exceeds_stock"
	CartItemWarningTypePriceChanged CartItemWarningType = "price_changed"
)

var cartItemWarningTypes = []CartItemWarningType{CartItemWarningTypeExceedsStock, CartItemWarningTypePriceChanged}

func (c CartItemWarningType) String() string { return string(c) }

func (c CartItemWarningType) IsValid() bool { return known(cartItemWarningTypes, c) }

func ParseCartItemWarningType(value string) (CartItemWarningType, error) {
	return parse(cartItemWarningTypes, value, "cart item warning type")
}
