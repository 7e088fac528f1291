package domain

import "strings"

// CellKind classifies a raw spreadsheet cell before any typing is applied.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
	CellBool
)

// String returns the string representation of the cell kind
func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellNumber:
		return "number"
	case CellText:
		return "text"
	case CellBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Cell is a single untyped cell as read from a sheet. Raw holds the unformatted
// cell value exactly as stored in the workbook.
type Cell struct {
	Kind CellKind `json:"kind"`
	Raw  string   `json:"raw,omitempty"`
}

// IsNull reports whether the cell carries no value.
func (c Cell) IsNull() bool {
	return c.Kind == CellEmpty
}

// IsText reports whether the cell is text-typed.
func (c Cell) IsText() bool {
	return c.Kind == CellText
}

// Text returns the raw cell value with surrounding whitespace removed.
func (c Cell) Text() string {
	return strings.TrimSpace(c.Raw)
}

// TextCell builds a text cell.
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Raw: s}
}

// NumberCell builds a numeric cell from its raw representation.
func NumberCell(raw string) Cell {
	return Cell{Kind: CellNumber, Raw: raw}
}

// EmptyCell builds an empty cell.
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// RawGrid is the untyped 2-D content of one physical sheet. Rows are padded to
// Width so that every row has exactly Width cells.
type RawGrid struct {
	Source string   `json:"source"`
	Sheet  string   `json:"sheet"`
	Width  int      `json:"width"`
	Rows   [][]Cell `json:"rows"`
}

// NewRawGrid builds a grid and pads every row to the widest row.
func NewRawGrid(source, sheet string, rows [][]Cell) RawGrid {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	padded := make([][]Cell, len(rows))
	for i, row := range rows {
		r := make([]Cell, width)
		copy(r, row)
		padded[i] = r
	}
	return RawGrid{Source: source, Sheet: sheet, Width: width, Rows: padded}
}

// RowCount returns the number of physical rows.
func (g RawGrid) RowCount() int {
	return len(g.Rows)
}

// At returns the cell at (row, col), or an empty cell when out of range.
func (g RawGrid) At(row, col int) Cell {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Rows[row]) {
		return EmptyCell()
	}
	return g.Rows[row][col]
}
