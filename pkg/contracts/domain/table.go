package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ColumnType is the declared type of a typed-table column.
type ColumnType string

const (
	// ColumnRaw marks a column copied from the grid without type inference.
	ColumnRaw ColumnType = "raw"
	// ColumnNumeric marks a column converted to exact decimal numbers.
	ColumnNumeric ColumnType = "numeric"
)

// ValueKind tells which field of a Value is populated.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueNumber
	ValueText
)

// Value is a single typed cell. Numbers are exact decimals so that sums and
// tolerance comparisons are not distorted by binary floating point.
type Value struct {
	Kind ValueKind
	Num  decimal.Decimal
	// Text holds the raw cell content for non-numeric values. For raw columns it
	// is the untouched workbook value, including numeric-looking text.
	Text string
	// Source is the kind of the grid cell the value came from.
	Source CellKind
}

// Null returns an absent value.
func Null() Value {
	return Value{Kind: ValueNull}
}

// Number returns a numeric value.
func Number(d decimal.Decimal) Value {
	return Value{Kind: ValueNumber, Num: d, Source: CellNumber}
}

// Text returns a text value.
func Text(s string) Value {
	return Value{Kind: ValueText, Text: s, Source: CellText}
}

// RawValue wraps a grid cell without interpreting it.
func RawValue(c Cell) Value {
	if c.IsNull() {
		return Null()
	}
	return Value{Kind: ValueText, Text: c.Raw, Source: c.Kind}
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return v.Kind == ValueNull
}

// IsNumber reports whether the value is numeric.
func (v Value) IsNumber() bool {
	return v.Kind == ValueNumber
}

// String renders the value for reports; nulls render as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return v.Num.String()
	case ValueText:
		return v.Text
	default:
		return ""
	}
}

// Column is a named, typed column of a TypedTable.
type Column struct {
	Name string     `json:"name" validate:"required"`
	Type ColumnType `json:"type" validate:"required,oneof=raw numeric"`
}

// Record is one data row; values are positional and aligned with the table's columns.
type Record []Value

// TypedTable is the validated, typed rendition of one sheet. Downstream
// components treat it as immutable.
type TypedTable struct {
	Source  string   `json:"source"`
	SheetID string   `json:"sheet_id"`
	Columns []Column `json:"columns"`
	Rows    []Record `json:"-"`

	index map[string]int
}

// NewTypedTable builds a table and its column index.
func NewTypedTable(source, sheetID string, columns []Column, rows []Record) *TypedTable {
	t := &TypedTable{Source: source, SheetID: sheetID, Columns: columns, Rows: rows}
	t.reindex()
	return t
}

func (t *TypedTable) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c.Name] = i
	}
}

// RowCount returns the number of data rows.
func (t *TypedTable) RowCount() int {
	return len(t.Rows)
}

// ColumnCount returns the number of columns.
func (t *TypedTable) ColumnCount() int {
	return len(t.Columns)
}

// ColumnIndex returns the position of a column by name.
func (t *TypedTable) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table has a column with this name.
func (t *TypedTable) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// ColumnNames returns column names in order.
func (t *TypedTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Get returns the value of a named column in row i.
func (t *TypedTable) Get(row int, column string) Value {
	idx, ok := t.ColumnIndex(column)
	if !ok || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return Null()
	}
	return t.Rows[row][idx]
}

// Values returns a copy of a column's values, or an error when the column is unknown.
func (t *TypedTable) Values(column string) ([]Value, error) {
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("sheet %q has no column %q", t.SheetID, column)
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// NullCount counts absent values in a column.
func (t *TypedTable) NullCount(column string) int {
	values, err := t.Values(column)
	if err != nil {
		return 0
	}
	n := 0
	for _, v := range values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Sum adds the numeric values of a column; nulls and text are skipped.
func (t *TypedTable) Sum(column string) decimal.Decimal {
	values, err := t.Values(column)
	if err != nil {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		if v.IsNumber() {
			sum = sum.Add(v.Num)
		}
	}
	return sum
}
