package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney formats amount in the given currency, rounded to the currency
// fraction, e.g. "€1,234.50". Unknown currency codes are printed after the
// amount.
func FormatMoney(amount float64, currency string) string {
	// money.New never returns a nil currency
	cur := *money.New(0, currency).Currency()
	dec := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}
