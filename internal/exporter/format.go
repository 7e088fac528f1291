package exporter

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// formatDecimal writes the exact value without rounding.
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

// formatOptionalDecimal renders an absent value as an empty cell.
func formatOptionalDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
