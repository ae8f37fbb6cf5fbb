package services

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MinimumCharge is the smallest amount the gateway accepts, in dollars.
var MinimumCharge = decimal.RequireFromString("0.50")

// ToMinorUnits converts dollars to cents, rounding half up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts cents to whole dollars, rounding half up.
func FromMinorUnits(cents int64) int64 {
	return decimal.NewFromInt(cents).Div(hundred).Round(0).IntPart()
}

// ParseAmount reads a positive whole-dollar amount. Balances are kept in
// whole dollars, so fractional amounts are refused rather than rounded.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, validation("Invalid Amount!")
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return decimal.Zero, validation("Invalid Amount!")
	}
	return amount, nil
}
