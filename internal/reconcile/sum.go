package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"plaudit/pkg/contracts/domain"
)

// Predicate selects which numeric values an aggregate includes.
type Predicate func(decimal.Decimal) bool

// AllRows keeps every value.
func AllRows(decimal.Decimal) bool { return true }

// PositiveOnly keeps values greater than zero.
func PositiveOnly(d decimal.Decimal) bool { return d.IsPositive() }

// NegativeOnly keeps values less than zero.
func NegativeOnly(d decimal.Decimal) bool { return d.IsNegative() }

// PredicateFor maps a configured sign selector to its predicate.
func PredicateFor(sign string) (Predicate, error) {
	switch sign {
	case "", "all":
		return AllRows, nil
	case "positive":
		return PositiveOnly, nil
	case "negative":
		return NegativeOnly, nil
	default:
		return nil, fmt.Errorf("unknown sign selector %q", sign)
	}
}

// SumColumn adds the numeric values of a column that satisfy keep. Nulls and
// text are skipped. A nil predicate keeps every value.
func SumColumn(t *domain.TypedTable, column string, keep Predicate) (decimal.Decimal, error) {
	if t == nil {
		return decimal.Zero, fmt.Errorf("no table")
	}
	values, err := t.Values(column)
	if err != nil {
		return decimal.Zero, err
	}
	if keep == nil {
		keep = AllRows
	}
	sum := decimal.Zero
	for _, v := range values {
		if v.IsNumber() && keep(v.Num) {
			sum = sum.Add(v.Num)
		}
	}
	return sum, nil
}

// LookupLabel returns the value column of the single row whose label column
// equals label. Zero matches, several matches and a non-numeric value are all
// lookup failures.
func LookupLabel(t *domain.TypedTable, labelColumn, valueColumn, label string) (decimal.Decimal, error) {
	if t == nil {
		return decimal.Zero, fmt.Errorf("summary table unavailable")
	}
	labels, err := t.Values(labelColumn)
	if err != nil {
		return decimal.Zero, err
	}
	if !t.HasColumn(valueColumn) {
		return decimal.Zero, fmt.Errorf("sheet %q has no column %q", t.SheetID, valueColumn)
	}

	var rows []int
	for i, v := range labels {
		if !v.IsNull() && strings.TrimSpace(v.String()) == label {
			rows = append(rows, i)
		}
	}
	switch len(rows) {
	case 0:
		return decimal.Zero, fmt.Errorf("label %q not found in %s", label, t.SheetID)
	case 1:
	default:
		return decimal.Zero, fmt.Errorf("label %q matches %d rows in %s", label, len(rows), t.SheetID)
	}

	v := t.Get(rows[0], valueColumn)
	if !v.IsNumber() {
		return decimal.Zero, fmt.Errorf("label %q has no numeric value in %s", label, t.SheetID)
	}
	return v.Num, nil
}
