package types

import (
	"github.com/shopspring/decimal"
)

// Weight represents a weight in kilograms with full precision.
// Uses decimal.Decimal to avoid floating-point errors in ledger sums:
// produce is priced by weight, so rounding drift is not acceptable.
type Weight = decimal.Decimal

// NewWeightFromFloat creates a Weight from a float.
// Prefer NewWeightFromString for values coming off the wire.
func NewWeightFromFloat(f float64) Weight {
	return decimal.NewFromFloat(f)
}

// NewWeightFromString creates a Weight from a string.
func NewWeightFromString(s string) (Weight, error) {
	return decimal.NewFromString(s)
}

// MustWeight creates a Weight from a string, panics on error.
// Use only for constants and tests.
func MustWeight(s string) Weight {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroWeight returns zero Weight value.
func ZeroWeight() Weight {
	return decimal.Zero
}
