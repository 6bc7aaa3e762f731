package money

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/fault"
)

func TestParseAmount(t *testing.T) {
	valid := []string{"1", "0.00000001", "100.50", "99999999.99999999"}
	for _, s := range valid {
		if _, err := ParseAmount(s); err != nil {
			t.Fatalf("expected %q to parse, got %v", s, err)
		}
	}

	invalid := []string{"", "abc", "1,5", "0", "-1", "0.000000001", "1e-9"}
	for _, s := range invalid {
		if _, err := ParseAmount(s); !fault.IsKind(err, fault.InvalidArgument) {
			t.Fatalf("expected invalid argument for %q, got %v", s, err)
		}
	}
}

func TestParseAmountKeepsExactValue(t *testing.T) {
	d, err := ParseAmount("100.50")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("expected 100.5, got %s", d)
	}
}

func TestValidateAmountTrailingZeros(t *testing.T) {
	// Nine fractional digits but the ninth is zero; the value fits in eight.
	d := decimal.RequireFromString("0.100000000")
	if err := ValidateAmount(d); err != nil {
		t.Fatalf("trailing zero should be acceptable: %v", err)
	}
}
