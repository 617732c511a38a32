package types

import "github.com/shopspring/decimal"

// CentsToDecimal converts a minor-unit amount into a two-place decimal.
func CentsToDecimal(cents int) decimal.Decimal {
	return decimal.New(int64(cents), -2)
}

// FormatCents renders cents as a fixed two-decimal string, e.g. 2500 -> "25.00".
func FormatCents(cents int) string {
	return CentsToDecimal(cents).StringFixed(2)
}
