package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaudit/internal/config"
	"plaudit/pkg/contracts/domain"
)

var (
	txt   = domain.TextCell
	num   = domain.NumberCell
	blank = domain.EmptyCell()
)

func grid(rows ...[]domain.Cell) domain.RawGrid {
	return domain.NewRawGrid("pnl", "Sheet", rows)
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Function L1", "function_l1"},
		{"2018 total", "2018_total"},
		{"Customer Name", "customer_name"},
		{"Hourly Rate (USD)", "hourly_rate_usd"},
		{"P&L Summary", "p_l_summary"},
		{"  Dept  ", "dept"},
		{"Non HC Expense (OPEX)", "non_hc_expense_opex"},
		{"a -- b", "a_b"},
		{"__x__", "x"},
		{"%%%", Placeholder},
		{"", Placeholder},
		{"Année Fiscale", "année_fiscale"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSnakeCase(tt.in))
		})
	}
}

func TestToSnakeCaseIdempotent(t *testing.T) {
	for _, label := range []string{"Hourly Rate (USD)", "P&L Summary", "2018 Total", "x"} {
		once := ToSnakeCase(label)
		assert.Equal(t, once, ToSnakeCase(once), label)
	}
}

func TestNormalizeColumnNames(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   []string
	}{
		{
			name:   "detail sheet with repeated dept",
			labels: []string{"Function L1", "Function L2", "Dept", "Dept", "Vendor", "2018 Total"},
			want:   []string{"function_l1", "function_l2", "dept", "dept_1", "vendor", "2018_total"},
		},
		{
			name:   "blank labels become placeholders",
			labels: []string{"", "Name", ""},
			want:   []string{"unnamed", "name", "unnamed_1"},
		},
		{
			name:   "distinct raw labels that normalize identically",
			labels: []string{"Total (USD)", "Total USD", "total-usd"},
			want:   []string{"total_usd", "total_usd_1", "total_usd_2"},
		},
		{
			name:   "raw suffix colliding with an existing label",
			labels: []string{"A", "A", "A_1"},
			want:   []string{"a", "a_1", "a_1_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mappings := NormalizeColumnNames(tt.labels)
			require.Len(t, mappings, len(tt.labels))
			assert.Equal(t, tt.want, domain.ColumnNames(mappings))
			for i, m := range mappings {
				assert.Equal(t, i, m.Position)
				assert.Equal(t, tt.labels[i], m.OriginalLabel)
			}
		})
	}
}

func TestNormalizeColumnNamesCollisionFree(t *testing.T) {
	inputs := [][]string{
		{"x", "x", "x", "X", "x_1", "x (1)", ""},
		{"", "", "", "unnamed"},
		{"A B", "A-B", "A_B", "a b", "(a) b"},
	}
	for _, labels := range inputs {
		names := domain.ColumnNames(NormalizeColumnNames(labels))
		distinct := map[string]bool{}
		for _, n := range names {
			assert.NotEmpty(t, n)
			distinct[n] = true
		}
		assert.Len(t, distinct, len(labels), "%v -> %v", labels, names)
	}
}

func TestNormalizeColumnNamesRepeatable(t *testing.T) {
	labels := []string{"Dept", "Dept", "Name", "Name"}
	first := NormalizeColumnNames(labels)
	second := NormalizeColumnNames(labels)
	assert.Equal(t, first, second)
}

func TestIsLikelyHeaderRow(t *testing.T) {
	opts := DefaultOptions()
	tests := []struct {
		name  string
		row   []domain.Cell
		width int
		want  bool
	}{
		{"all text", []domain.Cell{txt("Category"), txt("Benchmark")}, 2, true},
		{"exactly half populated", []domain.Cell{txt("Category"), blank, txt("Total"), blank}, 4, true},
		{"below half populated", []domain.Cell{txt("Category"), blank, blank, blank}, 4, false},
		{"exactly half text", []domain.Cell{txt("Sales"), num("0.05")}, 2, true},
		{"mostly numeric", []domain.Cell{txt("Sales"), num("1"), num("2")}, 3, false},
		{"bool is not text", []domain.Cell{txt("Flag"), {Kind: domain.CellBool, Raw: "1"}, {Kind: domain.CellBool, Raw: "0"}}, 3, false},
		{"currency banner", []domain.Cell{txt("IN USD"), txt("x")}, 2, false},
		{"banner with padding", []domain.Cell{txt(" Maintenance "), txt("x")}, 2, false},
		{"banner beyond third value", []domain.Cell{txt("a"), txt("b"), txt("c"), txt("Perpetual")}, 4, true},
		{"banner as substring", []domain.Cell{txt("Perpetual Revenue"), txt("Tier")}, 2, true},
		{"empty row", []domain.Cell{blank, blank}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLikelyHeaderRow(tt.row, tt.width, opts))
		})
	}
}

func TestDetectHeaderBenchmarkScenario(t *testing.T) {
	g := grid(
		[]domain.Cell{txt("IN USD"), blank},
		[]domain.Cell{txt("Category"), txt("Benchmark")},
		[]domain.Cell{txt("Sales"), num("0.05")},
		[]domain.Cell{txt("Margin"), num("0.70")},
	)

	placement := DetectHeader(g, DefaultOptions())
	assert.Equal(t, 1, placement.HeaderRowIndex)
	assert.False(t, placement.Fallback)
	assert.Equal(t, 2, placement.DataStartRow())
	require.Len(t, placement.ConfidenceReasons, 2)
	assert.Equal(t, "Row 1 identified as header: contains 2/2 non-null values", placement.ConfidenceReasons[0])
	assert.Equal(t, "Confirmed: Row 2 contains 1 numeric values (data row)", placement.ConfidenceReasons[1])

	_, mappings, diags := Infer(g, nil, DefaultOptions())
	assert.Equal(t, []string{"category", "benchmark"}, domain.ColumnNames(mappings))
	assert.Empty(t, diags)
	assert.Equal(t, 2, g.RowCount()-placement.HeaderRowIndex-1)
}

func TestDetectHeaderFallback(t *testing.T) {
	t.Run("no qualifying row", func(t *testing.T) {
		g := grid(
			[]domain.Cell{num("1"), num("2")},
			[]domain.Cell{num("3"), num("4")},
		)
		p := DetectHeader(g, DefaultOptions())
		assert.Equal(t, 0, p.HeaderRowIndex)
		assert.True(t, p.Fallback)
		assert.Contains(t, p.ConfidenceReasons[0], "Fallback")
	})

	t.Run("single row always falls back", func(t *testing.T) {
		p := DetectHeader(grid([]domain.Cell{txt("Name"), txt("Value")}), DefaultOptions())
		assert.Equal(t, 0, p.HeaderRowIndex)
		assert.True(t, p.Fallback)
	})

	t.Run("header beyond scan window", func(t *testing.T) {
		rows := make([][]domain.Cell, 0, 8)
		for i := 0; i < 5; i++ {
			rows = append(rows, []domain.Cell{txt("IN USD"), blank, blank})
		}
		rows = append(rows, []domain.Cell{txt("A"), txt("B"), txt("C")})
		p := DetectHeader(grid(rows...), DefaultOptions())
		assert.True(t, p.Fallback)

		opts := DefaultOptions()
		opts.ScanRows = 6
		p = DetectHeader(grid(rows...), opts)
		assert.False(t, p.Fallback)
		assert.Equal(t, 5, p.HeaderRowIndex)
	})

	t.Run("first qualifying row wins", func(t *testing.T) {
		g := grid(
			[]domain.Cell{txt("Report"), txt("2018")},
			[]domain.Cell{txt("Tier"), txt("Type")},
		)
		assert.Equal(t, 0, DetectHeader(g, DefaultOptions()).HeaderRowIndex)
	})
}

func TestInferWithLayout(t *testing.T) {
	g := grid(
		[]domain.Cell{txt("Maintenance"), blank, blank, blank},
		[]domain.Cell{txt("Perpetual"), blank, blank, blank},
		[]domain.Cell{txt("Tier"), txt("Type"), txt("Customer Name"), txt("2018 Total")},
		[]domain.Cell{txt("T1"), txt("Support"), txt("Acme"), num("100")},
	)

	t.Run("agreeing spec", func(t *testing.T) {
		spec := config.SheetSpec{Name: "Sheet", HeaderRow: ptr(2), Columns: []string{"tier", "type", "customer_name", "2018_total"}}
		p, m, diags := Infer(g, &spec, DefaultOptions())
		assert.Equal(t, 2, p.HeaderRowIndex)
		assert.True(t, p.Configured)
		assert.Empty(t, diags)
		assert.Equal(t, spec.Columns, domain.ColumnNames(m))
		assert.Equal(t, "Customer Name", m[2].OriginalLabel)
	})

	t.Run("configured row wins over inference", func(t *testing.T) {
		spec := config.SheetSpec{Name: "Sheet", HeaderRow: ptr(1)}
		p, _, diags := Infer(g, &spec, DefaultOptions())
		assert.Equal(t, 1, p.HeaderRowIndex)
		require.Len(t, diags, 1)
		assert.Equal(t, domain.DiagnosticStructuralAmbiguity, diags[0].Type)
		assert.Contains(t, diags[0].Message, "differs from inferred row 2")
	})

	t.Run("pinned names override inferred ones", func(t *testing.T) {
		spec := config.SheetSpec{Name: "Sheet", Columns: []string{"tier", "kind", "customer_name", "2018_total"}}
		_, m, diags := Infer(g, &spec, DefaultOptions())
		assert.Equal(t, "kind", m[1].NormalizedName)
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, `"type"`)
	})

	t.Run("pinned width mismatch keeps inferred names", func(t *testing.T) {
		spec := config.SheetSpec{Name: "Sheet", Columns: []string{"tier", "type"}}
		_, m, diags := Infer(g, &spec, DefaultOptions())
		assert.Equal(t, []string{"tier", "type", "customer_name", "2018_total"}, domain.ColumnNames(m))
		require.Len(t, diags, 1)
	})

	t.Run("fallback is reported", func(t *testing.T) {
		_, _, diags := Infer(grid([]domain.Cell{num("1")}), nil, DefaultOptions())
		require.Len(t, diags, 1)
		assert.Equal(t, domain.DiagnosticStructuralAmbiguity, diags[0].Type)
	})
}

func ptr(v int) *int { return &v }
