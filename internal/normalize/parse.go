package normalize

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"plaudit/pkg/contracts/domain"
)

// ParseNumeric reads a cell as an exact decimal. Empty cells and text that is
// not a plain number report false; booleans read as 1 and 0.
func ParseNumeric(cell domain.Cell) (decimal.Decimal, bool) {
	switch cell.Kind {
	case domain.CellEmpty:
		return decimal.Zero, false
	case domain.CellBool:
		if b, err := strconv.ParseBool(cell.Text()); err == nil && b {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	default:
		s := cell.Text()
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
}

// rawColumnSum sums a grid column straight from the cell text, without going
// through the typed table. It is the reference for the sum check.
func rawColumnSum(grid domain.RawGrid, col, start int) decimal.Decimal {
	sum := decimal.Zero
	for r := start; r < grid.RowCount(); r++ {
		cell := grid.At(r, col)
		if cell.Kind == domain.CellBool {
			if strings.EqualFold(cell.Text(), "true") || cell.Text() == "1" {
				sum = sum.Add(decimal.NewFromInt(1))
			}
			continue
		}
		if d, err := decimal.NewFromString(cell.Text()); err == nil {
			sum = sum.Add(d)
		}
	}
	return sum
}
