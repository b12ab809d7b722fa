package core

// HSTRatePercent is the local sales tax rate applied by this ledger.
// This is a local bookkeeping convention, not a certified tax calculation.
const HSTRatePercent = 13

// HSTPolicy selects how a tax-exclusive expense amount is treated when
// totaling. Older deployments never adjusted amounts; that behavior is
// kept selectable as HSTPolicyLegacy but is deprecated because it
// disagrees with the HST extract.
type HSTPolicy string

const (
	// HSTPolicyGrossUp grosses a tax-exclusive expense up by the HST
	// rate before totaling. Default for new deployments.
	HSTPolicyGrossUp HSTPolicy = "grossup"

	// HSTPolicyLegacy leaves expense amounts untouched regardless of the
	// hst_included flag. Deprecated.
	HSTPolicyLegacy HSTPolicy = "legacy"
)

func (p HSTPolicy) Valid() bool {
	return p == HSTPolicyGrossUp || p == HSTPolicyLegacy
}

// EffectiveAmount resolves the amount an entry contributes to totals.
// Income is never tax-adjusted. Tax-inclusive expenses pass through
// unchanged; tax-exclusive expenses are grossed up under
// HSTPolicyGrossUp and passed through under HSTPolicyLegacy.
func EffectiveAmount(amount Money, isIncome, hstIncluded bool, policy HSTPolicy) Money {
	if isIncome || hstIncluded || policy == HSTPolicyLegacy {
		return amount
	}
	return Money{Cents: roundHalfUp(amount.Cents*(100+HSTRatePercent), 100)}
}

// TaxComponent extracts the HST portion already embedded in a
// tax-inclusive amount: amount * rate / (100 + rate), rounded half-up.
// TaxComponent of 113.00 is exactly 13.00.
func TaxComponent(amount Money) Money {
	if amount.Cents <= 0 {
		return Money{}
	}
	return Money{Cents: roundHalfUp(amount.Cents*HSTRatePercent, 100+HSTRatePercent)}
}

// roundHalfUp divides num by den with half-up rounding. num and den must
// be non-negative.
func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
