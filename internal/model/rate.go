package model

import "github.com/shopspring/decimal"

// CreditsRate is one purchase tier. Limits are in fiat, Rate is credits per
// fiat unit.
type CreditsRate struct {
    LowerLimit    decimal.Decimal `json:"lower_limit"`
    UpperLimit    decimal.Decimal `json:"upper_limit"`
    Rate          decimal.Decimal `json:"rate"`
    StripePriceID string          `json:"stripe_price_id"`
}

// Contains reports whether amount lies within the tier, bounds included.
func (r CreditsRate) Contains(amount decimal.Decimal) bool {
    return amount.GreaterThanOrEqual(r.LowerLimit) && amount.LessThanOrEqual(r.UpperLimit)
}

// RateTable is the ordered list of tiers; the first match wins.
type RateTable []CreditsRate

// DefaultCreditsRate applies when no tier matches a ledger adjustment.
var DefaultCreditsRate = decimal.NewFromInt(100)

func (t RateTable) Find(amount decimal.Decimal) (CreditsRate, bool) {
    for _, r := range t {
        if r.Contains(amount) {
            return r, true
        }
    }
    return CreditsRate{}, false
}

// FiatValue converts a credit magnitude to fiat with the matching tier's
// rate, or the default rate when none matches.
func (t RateTable) FiatValue(credits decimal.Decimal) decimal.Decimal {
    rate := DefaultCreditsRate
    if r, ok := t.Find(credits); ok && r.Rate.IsPositive() {
        rate = r.Rate
    }
    return credits.Div(rate).Round(2)
}
