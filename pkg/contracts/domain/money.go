package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyPrinter = message.NewPrinter(language.English)

// FormatCurrency renders an amount rounded to whole units with thousands
// separators, e.g. $1,234,567 or $-30,000.
func FormatCurrency(d decimal.Decimal) string {
	return "$" + currencyPrinter.Sprintf("%d", d.RoundBank(0).IntPart())
}
