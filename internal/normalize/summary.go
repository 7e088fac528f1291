package normalize

import (
	"fmt"

	"plaudit/pkg/contracts/domain"
)

// NullRate is the share of absent values in one column.
type NullRate struct {
	Sheet     string  `json:"sheet"`
	Column    string  `json:"column"`
	NullCount int     `json:"null_count"`
	TotalRows int     `json:"total_rows"`
	RatePct   float64 `json:"null_rate_pct"`
}

// ColumnTypeInfo describes a column's declared type with a sample value.
type ColumnTypeInfo struct {
	Sheet  string            `json:"sheet"`
	Column string            `json:"column"`
	Type   domain.ColumnType `json:"type"`
	Sample string            `json:"sample_value"`
}

// NoSample is reported for columns without any value.
const NoSample = "N/A"

// NullRates reports the null share of every column. An empty table has a rate of 0.
func NullRates(t *domain.TypedTable) []NullRate {
	rates := make([]NullRate, 0, t.ColumnCount())
	for _, c := range t.Columns {
		nulls := t.NullCount(c.Name)
		rate := 0.0
		if t.RowCount() > 0 {
			rate = float64(nulls) / float64(t.RowCount()) * 100
		}
		rates = append(rates, NullRate{
			Sheet: t.SheetID, Column: c.Name, NullCount: nulls, TotalRows: t.RowCount(), RatePct: rate,
		})
	}
	return rates
}

// TypeSummary reports each column's type and its first non-null value.
func TypeSummary(t *domain.TypedTable) []ColumnTypeInfo {
	out := make([]ColumnTypeInfo, 0, t.ColumnCount())
	for _, c := range t.Columns {
		info := ColumnTypeInfo{Sheet: t.SheetID, Column: c.Name, Type: c.Type, Sample: NoSample}
		values, _ := t.Values(c.Name)
		for _, v := range values {
			if !v.IsNull() {
				info.Sample = v.String()
				break
			}
		}
		out = append(out, info)
	}
	return out
}

// Summarize builds the ingestion record of one sheet. Rows above the header
// are counted as dropped; the header row itself is neither ingested nor dropped.
func Summarize(grid domain.RawGrid, placement domain.HeaderPlacement, mappings []domain.ColumnMapping) domain.IngestionSummary {
	ingested := grid.RowCount() - placement.DataStartRow()
	if ingested < 0 {
		ingested = 0
	}
	dropped := grid.RowCount() - ingested - 1
	if dropped < 0 {
		dropped = 0
	}
	reason := "None"
	if dropped > 0 {
		reason = fmt.Sprintf("Non-data rows before header (rows 0-%d)", dropped-1)
	}
	return domain.IngestionSummary{
		Source:              grid.Source,
		Sheet:               grid.Sheet,
		OriginalRowCount:    grid.RowCount(),
		OriginalColCount:    grid.Width,
		DetectedHeaderRow:   placement.HeaderRowIndex,
		DataStartRow:        placement.DataStartRow(),
		RowsIngested:        ingested,
		RowsDropped:         dropped,
		DropReason:          reason,
		NormalizedColCount:  len(mappings),
		LowConfidenceHeader: placement.Fallback,
	}
}

// RowAccounting checks the header accounting identity across sheets: every
// original row is either a metadata row above a header, a header, or ingested.
type RowAccounting struct {
	TotalOriginal int  `json:"total_original"`
	TotalHeaders  int  `json:"total_headers"`
	TotalMetadata int  `json:"total_metadata"`
	TotalIngested int  `json:"total_ingested"`
	Expected      int  `json:"expected"`
	Reconciled    bool `json:"reconciled"`
}

// AccountRows totals the ingestion summaries. Empty sheets have no header row
// and are left out of the header count.
func AccountRows(summaries []domain.IngestionSummary) RowAccounting {
	var a RowAccounting
	for _, s := range summaries {
		a.TotalOriginal += s.OriginalRowCount
		a.TotalIngested += s.RowsIngested
		if s.OriginalRowCount == 0 {
			continue
		}
		a.TotalHeaders++
		a.TotalMetadata += s.DetectedHeaderRow
	}
	a.Expected = a.TotalOriginal - a.TotalHeaders - a.TotalMetadata
	a.Reconciled = a.Expected == a.TotalIngested
	return a
}
