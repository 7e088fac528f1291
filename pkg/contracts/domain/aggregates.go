package domain

// AggregateTable is a small named result table, written as one sheet of the
// supporting aggregates workbook.
type AggregateTable struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}
