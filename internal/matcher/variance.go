package matcher

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Variance captures the signed difference between an invoice amount and the
// corresponding receipt amount, plus its classification against a tolerance.
type Variance struct {
	// Amount is invoice minus receipt. Positive means the invoice claims
	// more than was received.
	Amount decimal.Decimal `json:"amount"`

	// Percent is the absolute variance relative to the receipt amount
	Percent decimal.Decimal `json:"percent"`

	// WithinTolerance is true when Percent does not exceed the configured
	// tolerance. The boundary counts as within.
	WithinTolerance bool `json:"within_tolerance"`
}

// ComputeVariance calculates the variance of an invoice amount against a
// receipt amount under the given tolerance percentage.
//
// When the receipt amount is zero, the percentage cannot be computed as a
// ratio: a zero variance reports 0% and any nonzero variance reports 100%.
func ComputeVariance(invoiceAmt, receiptAmt, tolerancePercent decimal.Decimal) Variance {
	amount := invoiceAmt.Sub(receiptAmt)

	var percent decimal.Decimal
	if receiptAmt.IsZero() {
		if amount.IsZero() {
			percent = decimal.Zero
		} else {
			percent = hundred
		}
	} else {
		percent = amount.Abs().Div(receiptAmt.Abs()).Mul(hundred)
	}

	return Variance{
		Amount:          amount,
		Percent:         percent,
		WithinTolerance: percent.LessThanOrEqual(tolerancePercent),
	}
}

// TieredScore awards points for amount agreement in bands of the
// tolerance: full points within tolerance, reduced points within two and
// five times the tolerance, nothing beyond that.
func TieredScore(v Variance, tolerancePercent decimal.Decimal) int {
	switch {
	case v.Percent.LessThanOrEqual(tolerancePercent):
		return 15
	case v.Percent.LessThanOrEqual(tolerancePercent.Mul(decimal.NewFromInt(2))):
		return 10
	case v.Percent.LessThanOrEqual(tolerancePercent.Mul(decimal.NewFromInt(5))):
		return 5
	default:
		return 0
	}
}
