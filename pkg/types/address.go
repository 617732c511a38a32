package types

import "strings"

// ShippingAddress is the delivery destination captured on an order.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required,max=200"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=200"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=40"`
}

// Normalize trims surrounding whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		FullName:   strings.TrimSpace(a.FullName),
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

// MissingFields lists the json names of blank fields.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"full_name", a.FullName},
		{"address", a.Address},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
		{"phone", a.Phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
