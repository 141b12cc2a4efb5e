package pricing

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultCurrency = "CAD"

// CentsFromMajor converts a major-unit amount (dollars) to minor units,
// saturating at the int64 bounds. NaN converts to 0.
func CentsFromMajor(v float64) int64 {
	cents := math.Round(v * 100)
	switch {
	case math.IsNaN(cents):
		return 0
	case cents >= math.MaxInt64:
		return math.MaxInt64
	case cents <= math.MinInt64:
		return math.MinInt64
	}
	return int64(cents)
}

// FormatMoney renders a minor-unit amount for display, e.g. "CA$ 125.00".
// Unknown currency codes fall back to DefaultCurrency.
func FormatMoney(cents int64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.CAD
	}
	p := message.NewPrinter(language.English)
	amount := number.Decimal(float64(cents)/100, number.Scale(2))
	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}
