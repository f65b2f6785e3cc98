package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money pairs an amount with a currency. Arithmetic goes through
// shopspring/decimal so fee and conversion math does not accumulate
// binary floating point error before being handed back to callers.
type Money struct {
	Amount   float64
	Currency string
}

// NewMoney creates a Money value.
func NewMoney(amount float64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Convert applies an FX rate and returns the value in the target currency.
func (m Money) Convert(targetCurrency string, rate float64) Money {
	amount := decimal.NewFromFloat(m.Amount).Mul(decimal.NewFromFloat(rate))
	f, _ := amount.Float64()
	return Money{Amount: f, Currency: targetCurrency}
}

// ApplyRate multiplies an amount by a rate with decimal precision.
func ApplyRate(amount, rate float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Float64()
	return f
}

// String renders the value with two decimal places, e.g. "1250.00 GHS".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", decimal.NewFromFloat(m.Amount).StringFixed(2), m.Currency)
}

// FormatAmount renders a bare amount with two decimal places for receipts.
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
