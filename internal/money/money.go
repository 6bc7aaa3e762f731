// Package money holds the numeric rules for monetary amounts: fixed-point
// decimal arithmetic with at most eight fractional digits, never binary
// floating point.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
)

// MaxFractionDigits is the precision every stored amount and balance is held at.
const MaxFractionDigits = 8

// Zero is the canonical zero balance.
var Zero = decimal.Zero

// Parse converts a textual amount into a decimal. The textual form is the
// preferred boundary representation because it survives transport without
// float rounding.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fault.New(fault.InvalidArgument, "amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fault.Newf(fault.InvalidArgument, "amount %q is not a valid decimal", s)
	}
	return d, nil
}

// ParseAmount parses a textual amount and enforces the operation-amount rules.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects amounts that are not strictly positive or carry more
// than MaxFractionDigits fractional digits.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fault.New(fault.InvalidArgument, "amount must be positive")
	}
	if !d.Equal(d.Truncate(MaxFractionDigits)) {
		return fault.Newf(fault.InvalidArgument, "amount exceeds %d fractional digits", MaxFractionDigits)
	}
	return nil
}
