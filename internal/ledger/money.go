package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount reads a decimal string. Empty or malformed input is zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatMoney renders d with two decimal places, the persisted money format.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatQuantity renders non-money numerics (amount, tax) without padding.
func FormatQuantity(d decimal.Decimal) string {
	return d.String()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// isZeroish reports whether s is empty or parses to zero.
func isZeroish(s string) bool {
	return isBlank(s) || ParseAmount(s).IsZero()
}

// sameAmount compares two numeric strings by value, so "120" equals "120.00".
func sameAmount(a, b string) bool {
	return ParseAmount(a).Equal(ParseAmount(b))
}
