package testutil

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"plaudit/pkg/contracts/domain"
)

// WriteWorkbook saves grids as sheets of an xlsx file, in order. Number cells
// are written as numbers, text cells as strings and empty cells are left out.
func WriteWorkbook(path string, grids []domain.RawGrid) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, g := range grids {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), g.Sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(g.Sheet); err != nil {
			return err
		}
		for r, row := range g.Rows {
			for c, cell := range row {
				if cell.IsNull() {
					continue
				}
				name, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				var value any = cell.Raw
				if cell.Kind == domain.CellNumber {
					n, err := strconv.ParseFloat(cell.Raw, 64)
					if err != nil {
						return fmt.Errorf("sheet %s cell %s: %w", g.Sheet, name, err)
					}
					value = n
				}
				if err := f.SetCellValue(g.Sheet, name, value); err != nil {
					return err
				}
			}
		}
	}
	return f.SaveAs(path)
}
