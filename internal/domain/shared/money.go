package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept for every monetary amount
const MoneyScale = 2

// RoundMoney rounds an amount to the money scale
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// NormalizeDate truncates a timestamp to its calendar date at UTC midnight.
// Dates are stored without a time component, so all comparisons go through here.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
