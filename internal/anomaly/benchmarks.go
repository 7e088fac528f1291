package anomaly

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/pkg/contracts/domain"
)

// Benchmarks is the label-to-ratio table read from the benchmark sheet.
type Benchmarks struct {
	entries []domain.Benchmark
	index   map[string]decimal.Decimal
}

// NewBenchmarks builds a table from entries. A label given twice keeps its
// last ratio.
func NewBenchmarks(entries []domain.Benchmark) Benchmarks {
	b := Benchmarks{index: make(map[string]decimal.Decimal, len(entries))}
	pos := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, dup := pos[e.Category]; dup {
			b.entries[i] = e
		} else {
			pos[e.Category] = len(b.entries)
			b.entries = append(b.entries, e)
		}
		b.index[e.Category] = e.Ratio
	}
	return b
}

// LoadBenchmarks reads the label and ratio columns of the benchmark sheet.
// Rows without a label are ignored; rows whose ratio is not a number are left
// out and reported, so lookups for them fall back.
func LoadBenchmarks(t *domain.TypedTable, spec config.SheetSpec) (Benchmarks, []domain.Diagnostic) {
	labelCol := spec.LabelColumn
	if labelCol == "" {
		labelCol = config.ColumnCategory
	}
	valueCol := spec.MeasureColumn
	if valueCol == "" {
		valueCol = config.ColumnBenchmark
	}
	if t == nil || !t.HasColumn(labelCol) || !t.HasColumn(valueCol) {
		msg := fmt.Sprintf("benchmark sheet lacks %s/%s columns", labelCol, valueCol)
		return NewBenchmarks(nil), []domain.Diagnostic{apperrors.NewLookupFailure(spec.Name, "", msg).Diagnostic()}
	}

	var entries []domain.Benchmark
	var diags []domain.Diagnostic
	for i := 0; i < t.RowCount(); i++ {
		label := t.Get(i, labelCol)
		if label.IsNull() {
			continue
		}
		name := strings.TrimSpace(label.String())
		v := t.Get(i, valueCol)
		if !v.IsNumber() {
			msg := fmt.Sprintf("benchmark %q has no numeric ratio", name)
			diags = append(diags, apperrors.NewLookupFailure(t.SheetID, name, msg).Diagnostic())
			continue
		}
		entries = append(entries, domain.Benchmark{Category: name, Ratio: v.Num})
	}
	return NewBenchmarks(entries), diags
}

// Lookup returns the ratio for a label.
func (b Benchmarks) Lookup(label string) (decimal.Decimal, bool) {
	d, ok := b.index[label]
	return d, ok
}

// All returns the benchmarks in sheet order.
func (b Benchmarks) All() []domain.Benchmark {
	return append([]domain.Benchmark(nil), b.entries...)
}

// Len returns the number of benchmarks.
func (b Benchmarks) Len() int {
	return len(b.entries)
}
