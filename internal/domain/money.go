package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CentTolerance absorbs rounding drift when comparing monetary values.
// Balance checks treat differences at or below one cent as equal.
var CentTolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to 2 decimal places using round-half-to-even so that
// repeated proportional splits reproduce identically across runs.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(2)
}

// ValidCurrency reports whether code is a 3-letter uppercase currency code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// withinTolerance reports whether a and b differ by at most CentTolerance.
func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(CentTolerance) <= 0
}

// exceedsWithTolerance reports whether v is greater than limit by more
// than CentTolerance.
func exceedsWithTolerance(v, limit decimal.Decimal) bool {
	return v.Sub(limit).Cmp(CentTolerance) > 0
}

func maxZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
