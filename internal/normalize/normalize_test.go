package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
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

func mappings(names ...string) []domain.ColumnMapping {
	out := make([]domain.ColumnMapping, len(names))
	for i, n := range names {
		out[i] = domain.ColumnMapping{Position: i, OriginalLabel: n, NormalizedName: n}
	}
	return out
}

func opexGrid() domain.RawGrid {
	return domain.NewRawGrid("pnl", "OPEX - NEmpl.", [][]domain.Cell{
		{txt("IN USD"), blank, blank},
		{txt("Dept"), txt("Vendor"), txt("2018 Total")},
		{txt("Sales"), txt("Acme"), num("100.50")},
		{txt("Ops"), blank, num("-20.25")},
		{blank, txt("Beta"), txt("30")},
	})
}

func opexSpec() *config.SheetSpec {
	return &config.SheetSpec{Name: "OPEX - NEmpl.", NumericColumns: []string{"2018_total"}}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name string
		cell domain.Cell
		want string
		ok   bool
	}{
		{"number", num("1234.5"), "1234.5", true},
		{"negative", num("-20.25"), "-20.25", true},
		{"exponent", num("1.5E3"), "1500", true},
		{"numeric text", txt(" 42 "), "42", true},
		{"thousands separator", txt("1,200"), "0", false},
		{"label", txt("n/a"), "0", false},
		{"empty", blank, "0", false},
		{"whitespace", txt("   "), "0", false},
		{"true", domain.Cell{Kind: domain.CellBool, Raw: "1"}, "1", true},
		{"false", domain.Cell{Kind: domain.CellBool, Raw: "0"}, "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumeric(tt.cell)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestCatalog(t *testing.T) {
	rules := Catalog()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	assert.Equal(t, []string{
		config.RuleTypeConversion, config.RuleRounding, config.RuleCheckValueHandling,
		config.RuleRename, config.RulePreservation,
	}, names)
	var executable []string
	for _, r := range rules {
		assert.NotEmpty(t, r.Description, r.Name)
		if r.Executable() {
			executable = append(executable, r.Name)
		}
	}
	assert.Equal(t, []string{config.RuleTypeConversion, config.RuleRename, config.RulePreservation}, executable)
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultOptions())
	grid := opexGrid()
	placement := domain.HeaderPlacement{SheetID: grid.Sheet, HeaderRowIndex: 1}

	table, report := n.Normalize(context.Background(), grid, placement, mappings("dept", "vendor", "2018_total"), opexSpec())

	t.Run("cardinality preserved", func(t *testing.T) {
		assert.Equal(t, 3, table.RowCount())
		assert.Equal(t, 3, table.ColumnCount())
		assert.Equal(t, report.Pre.RowCount, report.Post.RowCount)
		assert.Equal(t, report.Pre.ColumnCount, report.Post.ColumnCount)
	})

	t.Run("columns renamed and typed", func(t *testing.T) {
		assert.Equal(t, []string{"department", "vendor", "2018_total"}, table.ColumnNames())
		assert.Equal(t, domain.ColumnRaw, table.Columns[0].Type)
		assert.Equal(t, domain.ColumnNumeric, table.Columns[2].Type)
		assert.True(t, table.Sum("2018_total").Equal(dec("110.25")))
		assert.Equal(t, "Sales", table.Get(0, "department").Text)
		assert.True(t, table.Get(1, "vendor").IsNull())
	})

	t.Run("rules applied and skipped", func(t *testing.T) {
		assert.Equal(t, []string{config.RuleTypeConversion, config.RuleRename, config.RulePreservation}, report.AppliedRules)
		assert.Equal(t, []domain.SkippedRule{
			{Rule: config.RuleRounding, Reason: "not approved"},
			{Rule: config.RuleCheckValueHandling, Reason: "not approved"},
		}, report.SkippedRules)
	})

	t.Run("all checks pass", func(t *testing.T) {
		assert.True(t, report.Passed())
		assert.Empty(t, report.Diagnostics)
		for _, c := range report.Checks {
			assert.Equal(t, domain.CheckPass, c.Status, "%s %s %s", c.Rule, c.Check, c.Column)
		}
		counts := report.CountByStatus()
		assert.Zero(t, counts[domain.CheckFail])
		assert.Zero(t, counts[domain.CheckWarn])
	})

	t.Run("null counts follow renames", func(t *testing.T) {
		assert.Equal(t, 1, report.Pre.NullCounts["dept"])
		assert.Equal(t, 1, report.Post.NullCounts["department"])
		assert.NotContains(t, report.Post.NullCounts, "dept")
	})

	t.Run("sum check", func(t *testing.T) {
		require.Len(t, report.SumChecks, 1)
		sc := report.SumChecks[0]
		assert.Equal(t, "2018_total", sc.Column)
		assert.True(t, sc.PreSum.Equal(dec("110.25")))
		assert.True(t, sc.PostSum.Equal(dec("110.25")))
		assert.True(t, sc.Difference.IsZero())
		assert.Equal(t, domain.CheckPass, sc.Status)
	})

	t.Run("dtype changes", func(t *testing.T) {
		require.Len(t, report.DtypeChanges, 3)
		assert.False(t, report.DtypeChanges[0].Changed)
		assert.Equal(t, "department", report.DtypeChanges[0].Column)
		assert.True(t, report.DtypeChanges[2].Changed)
		assert.Equal(t, "numeric", report.DtypeChanges[2].PostType)
	})

	t.Run("preservation verified per raw column", func(t *testing.T) {
		var preserved []string
		for _, c := range report.Checks {
			if c.Check == CheckPreservedValues {
				preserved = append(preserved, c.Column)
			}
		}
		assert.Equal(t, []string{"department", "vendor"}, preserved)
	})
}

func TestNormalizeCoercionWarns(t *testing.T) {
	grid := domain.NewRawGrid("pnl", "Empl.", [][]domain.Cell{
		{txt("Name"), txt("2018 Total")},
		{txt("A"), num("100")},
		{txt("B"), txt("n/a")},
		{txt("C"), blank},
	})
	spec := &config.SheetSpec{Name: "Empl.", NumericColumns: []string{"2018_total"}}
	n := NewNormalizer(DefaultOptions())

	table, report := n.Normalize(context.Background(), grid, domain.HeaderPlacement{SheetID: "Empl."}, mappings("name", "2018_total"), spec)

	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, 1, report.Pre.NullCounts["2018_total"])
	assert.Equal(t, 2, report.Post.NullCounts["2018_total"])
	assert.GreaterOrEqual(t, report.Post.NullCounts["2018_total"], report.Pre.NullCounts["2018_total"])

	var warned bool
	for _, c := range report.Checks {
		if c.Rule == config.RuleTypeConversion && c.Check == CheckNullCount && c.Column == "2018_total" {
			assert.Equal(t, domain.CheckWarn, c.Status)
			warned = true
		}
	}
	assert.True(t, warned)
	assert.True(t, report.Passed(), "warnings do not fail a report")

	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticParseCoercion, report.Diagnostics[0].Type)
	assert.Equal(t, "2018_total", report.Diagnostics[0].Column)

	require.Len(t, report.SumChecks, 1)
	assert.Equal(t, domain.CheckPass, report.SumChecks[0].Status)
}

func TestNormalizeSkippedRulesLogged(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	n := NewNormalizer(opts)

	grid := opexGrid()
	n.Normalize(context.Background(), grid, domain.HeaderPlacement{HeaderRowIndex: 1}, mappings("dept", "vendor", "2018_total"), opexSpec())

	skipped := map[string]string{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "rule skipped" {
			assert.Equal(t, "INFO", entry["level"])
			skipped[entry["rule"].(string)] = entry["reason"].(string)
		}
	}
	assert.Equal(t, map[string]string{
		config.RuleRounding:           "not approved",
		config.RuleCheckValueHandling: "not approved",
	}, skipped)
}

func TestNormalizeConversionNotApproved(t *testing.T) {
	opts := DefaultOptions()
	opts.ApprovedRules = []string{config.RuleRename, config.RulePreservation}
	n := NewNormalizer(opts)

	grid := opexGrid()
	table, report := n.Normalize(context.Background(), grid, domain.HeaderPlacement{HeaderRowIndex: 1}, mappings("dept", "vendor", "2018_total"), opexSpec())

	assert.Equal(t, domain.ColumnRaw, table.Columns[2].Type)
	assert.Equal(t, "100.50", table.Get(0, "2018_total").Text)
	assert.Empty(t, report.SumChecks)
	assert.Contains(t, report.SkippedRules, domain.SkippedRule{Rule: config.RuleTypeConversion, Reason: "not approved"})
	assert.True(t, report.Passed())
}

func TestNormalizeWithoutSpec(t *testing.T) {
	n := NewNormalizer(DefaultOptions())
	grid := opexGrid()

	table, report := n.Normalize(context.Background(), grid, domain.HeaderPlacement{HeaderRowIndex: 1}, mappings("dept", "vendor", "2018_total"), nil)

	for _, c := range table.Columns {
		assert.Equal(t, domain.ColumnRaw, c.Type)
	}
	assert.Empty(t, report.SumChecks)
	assert.True(t, report.Passed())
}

func TestNormalizeMissingAllowListedColumn(t *testing.T) {
	n := NewNormalizer(DefaultOptions())
	grid := opexGrid()
	spec := &config.SheetSpec{Name: grid.Sheet, NumericColumns: []string{"2019_total"}}

	_, report := n.Normalize(context.Background(), grid, domain.HeaderPlacement{HeaderRowIndex: 1}, mappings("dept", "vendor", "2018_total"), spec)

	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticStructuralAmbiguity, report.Diagnostics[0].Type)
	assert.Equal(t, "2019_total", report.Diagnostics[0].Column)
}

func TestNormalizeRenameCollisionKeepsColumns(t *testing.T) {
	opts := DefaultOptions()
	opts.Renames = map[string]string{"dept": "vendor"}
	n := NewNormalizer(opts)

	table, report := n.Normalize(context.Background(), opexGrid(), domain.HeaderPlacement{HeaderRowIndex: 1}, mappings("dept", "vendor", "2018_total"), opexSpec())

	assert.Equal(t, []string{"dept", "vendor", "2018_total"}, table.ColumnNames())
	assert.True(t, report.Passed())
}

func TestNormalizeSumTolerance(t *testing.T) {
	grid := domain.NewRawGrid("pnl", "Revenue", [][]domain.Cell{
		{txt("Customer"), txt("2018 Total")},
		{txt("A"), num("0.1")},
		{txt("B"), num("0.2")},
		{txt("C"), num("999999.7")},
	})
	spec := &config.SheetSpec{Name: "Revenue", NumericColumns: []string{"2018_total"}}

	_, report := NewNormalizer(DefaultOptions()).Normalize(context.Background(), grid, domain.HeaderPlacement{}, mappings("customer", "2018_total"), spec)

	require.Len(t, report.SumChecks, 1)
	sc := report.SumChecks[0]
	assert.True(t, sc.PostSum.Equal(dec("1000000")))
	assert.True(t, sc.Tolerance.Equal(dec("0.01")))
	assert.True(t, sc.Difference.LessThanOrEqual(sc.Tolerance))
}

func TestNullRates(t *testing.T) {
	table := domain.NewTypedTable("pnl", "S", []domain.Column{
		{Name: "a", Type: domain.ColumnRaw},
		{Name: "b", Type: domain.ColumnRaw},
	}, []domain.Record{
		{domain.Text("x"), domain.Null()},
		{domain.Text("y"), domain.Null()},
		{domain.Null(), domain.Text("z")},
		{domain.Text("w"), domain.Null()},
	})

	rates := NullRates(table)
	require.Len(t, rates, 2)
	assert.Equal(t, NullRate{Sheet: "S", Column: "a", NullCount: 1, TotalRows: 4, RatePct: 25}, rates[0])
	assert.Equal(t, 75.0, rates[1].RatePct)

	empty := domain.NewTypedTable("pnl", "E", []domain.Column{{Name: "a", Type: domain.ColumnRaw}}, nil)
	assert.Equal(t, 0.0, NullRates(empty)[0].RatePct)
}

func TestTypeSummary(t *testing.T) {
	table := domain.NewTypedTable("pnl", "S", []domain.Column{
		{Name: "name", Type: domain.ColumnRaw},
		{Name: "amount", Type: domain.ColumnNumeric},
		{Name: "notes", Type: domain.ColumnRaw},
	}, []domain.Record{
		{domain.Null(), domain.Number(dec("12.5")), domain.Null()},
		{domain.Text("Acme"), domain.Null(), domain.Null()},
	})

	got := TypeSummary(table)
	require.Len(t, got, 3)
	assert.Equal(t, "Acme", got[0].Sample)
	assert.Equal(t, "12.5", got[1].Sample)
	assert.Equal(t, domain.ColumnNumeric, got[1].Type)
	assert.Equal(t, NoSample, got[2].Sample)
}

func TestSummarize(t *testing.T) {
	grid := domain.NewRawGrid("pnl", "Benchmarks", [][]domain.Cell{
		{txt("IN USD"), blank},
		{txt("Category"), txt("Benchmark")},
		{txt("Sales"), num("0.05")},
		{txt("Margin"), num("0.7")},
	})
	s := Summarize(grid, domain.HeaderPlacement{HeaderRowIndex: 1}, mappings("category", "benchmark"))

	assert.Equal(t, 4, s.OriginalRowCount)
	assert.Equal(t, 2, s.OriginalColCount)
	assert.Equal(t, 2, s.DataStartRow)
	assert.Equal(t, 2, s.RowsIngested)
	assert.Equal(t, 1, s.RowsDropped)
	assert.Equal(t, "Non-data rows before header (rows 0-0)", s.DropReason)
	assert.Equal(t, s.OriginalRowCount-s.DetectedHeaderRow-1, s.RowsIngested)

	top := Summarize(grid, domain.HeaderPlacement{}, mappings("a", "b"))
	assert.Equal(t, "None", top.DropReason)
	assert.Equal(t, 3, top.RowsIngested)

	empty := Summarize(domain.NewRawGrid("pnl", "Empty", nil), domain.HeaderPlacement{Fallback: true}, nil)
	assert.Zero(t, empty.RowsIngested)
	assert.Zero(t, empty.RowsDropped)
	assert.True(t, empty.LowConfidenceHeader)
}

func TestAccountRows(t *testing.T) {
	summaries := []domain.IngestionSummary{
		{OriginalRowCount: 10, DetectedHeaderRow: 2, RowsIngested: 7},
		{OriginalRowCount: 5, DetectedHeaderRow: 0, RowsIngested: 4},
		{OriginalRowCount: 0},
	}
	a := AccountRows(summaries)
	assert.Equal(t, 15, a.TotalOriginal)
	assert.Equal(t, 2, a.TotalHeaders)
	assert.Equal(t, 2, a.TotalMetadata)
	assert.Equal(t, 11, a.Expected)
	assert.True(t, a.Reconciled)

	summaries[0].RowsIngested = 6
	assert.False(t, AccountRows(summaries).Reconciled)
}
