// Package fees computes the fee owed on a transaction.
package fees

import (
	"strings"

	"github.com/irocky-stack/rjbtranz/internal/domain"
)

// Calculator computes transaction fees. The reference currency identifies
// same-currency courtesy transfers; the active fee rate is threaded in per
// call so calculation never reads ambient configuration.
type Calculator struct {
	referenceCurrency string
}

// NewCalculator builds a calculator for the given reference currency.
func NewCalculator(referenceCurrency string) *Calculator {
	if referenceCurrency == "" {
		referenceCurrency = domain.ReferenceCurrency
	}
	return &Calculator{referenceCurrency: strings.ToUpper(referenceCurrency)}
}

// Fee returns the fee for a transaction, in priority order:
//
//  1. a manual override (including an explicit 0) is returned verbatim
//  2. reference-currency-to-itself transfers default to 0
//  3. otherwise amount * activeRate
//
// Amount positivity is the caller's gate; Fee does not validate it.
func (c *Calculator) Fee(amount float64, fromCurrency, toCurrency string, override *float64, activeRate float64) float64 {
	if override != nil {
		return *override
	}
	from := strings.ToUpper(strings.TrimSpace(fromCurrency))
	to := strings.ToUpper(strings.TrimSpace(toCurrency))
	if from == c.referenceCurrency && to == c.referenceCurrency {
		return 0
	}
	return domain.ApplyRate(amount, activeRate)
}
