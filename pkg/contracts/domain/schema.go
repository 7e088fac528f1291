package domain

// HeaderPlacement records where the header row of a sheet was found and why.
type HeaderPlacement struct {
	SheetID           string   `json:"sheet_id"`
	HeaderRowIndex    int      `json:"header_row_index" validate:"min=0"`
	ConfidenceReasons []string `json:"confidence_reasons"`
	// Fallback is true when no row in the scan window qualified and row 0 was used.
	Fallback bool `json:"fallback"`
	// Configured is true when the layout pinned the header row.
	Configured bool `json:"configured"`
}

// DataStartRow returns the index of the first data row.
func (p HeaderPlacement) DataStartRow() int {
	return p.HeaderRowIndex + 1
}

// ColumnMapping pairs a physical column's original label with its normalized name.
type ColumnMapping struct {
	Position       int    `json:"position"`
	OriginalLabel  string `json:"original_label"`
	NormalizedName string `json:"normalized_name" validate:"required"`
}

// Transformed reports whether normalization changed the label.
func (m ColumnMapping) Transformed() bool {
	return m.OriginalLabel != m.NormalizedName
}

// ColumnNames extracts normalized names in column order.
func ColumnNames(mappings []ColumnMapping) []string {
	names := make([]string, len(mappings))
	for i, m := range mappings {
		names[i] = m.NormalizedName
	}
	return names
}

// IngestionSummary is the per-sheet structural QC record.
type IngestionSummary struct {
	Source              string `json:"source"`
	Sheet               string `json:"sheet"`
	OriginalRowCount    int    `json:"original_row_count"`
	OriginalColCount    int    `json:"original_col_count"`
	DetectedHeaderRow   int    `json:"detected_header_row"`
	DataStartRow        int    `json:"data_start_row"`
	RowsIngested        int    `json:"rows_ingested"`
	RowsDropped         int    `json:"rows_dropped"`
	DropReason          string `json:"drop_reason"`
	NormalizedColCount  int    `json:"normalized_col_count"`
	LowConfidenceHeader bool   `json:"low_confidence_header"`
}
