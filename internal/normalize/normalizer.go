package normalize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/pkg/contracts/domain"
)

// Check names used in invariant reports.
const (
	CheckRowCount        = "row_count"
	CheckColumnCount     = "column_count"
	CheckNullCount       = "null_count"
	CheckPreservedValues = "preserved_values"
)

// Options configures a Normalizer.
type Options struct {
	ApprovedRules []string
	Renames       map[string]string
	Tolerance     decimal.Decimal
	Logger        *slog.Logger
}

// DefaultOptions approves the signed-off rules with the standard rename table.
func DefaultOptions() Options {
	return Options{
		ApprovedRules: append([]string(nil), config.DefaultApprovedRules...),
		Renames:       config.DefaultRenames(),
		Tolerance:     decimal.NewFromFloat(config.ReconciliationTolerance),
	}
}

// OptionsFrom builds normalizer options from the loaded configuration.
func OptionsFrom(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		ApprovedRules: cfg.Normalization.ApprovedRules,
		Renames:       cfg.Normalization.Renames,
		Tolerance:     decimal.NewFromFloat(cfg.Analysis.Tolerance),
		Logger:        logger,
	}
}

// Normalizer applies approved rules to one sheet at a time. It holds no
// per-sheet state and is safe for concurrent use.
type Normalizer struct {
	approved  map[string]bool
	renames   map[string]string
	tolerance decimal.Decimal
	rules     []Rule
	logger    *slog.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(opts Options) *Normalizer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	approved := make(map[string]bool, len(opts.ApprovedRules))
	for _, r := range opts.ApprovedRules {
		approved[r] = true
	}
	return &Normalizer{
		approved:  approved,
		renames:   opts.Renames,
		tolerance: opts.Tolerance,
		rules:     Catalog(),
		logger:    logger.With(slog.String("component", "normalize")),
	}
}

// Normalize builds the typed table for one sheet and validates every rule
// transition. spec may be nil for sheets the layout does not describe; such
// sheets have no numeric columns.
func (n *Normalizer) Normalize(ctx context.Context, grid domain.RawGrid, placement domain.HeaderPlacement,
	mappings []domain.ColumnMapping, spec *config.SheetSpec) (*domain.TypedTable, *domain.InvariantReport) {

	sheet := grid.Sheet
	report := &domain.InvariantReport{Sheet: sheet}

	rc := &ruleContext{
		grid:      grid,
		placement: placement,
		numeric:   make(map[string]bool),
		renames:   n.renames,
	}
	table := rawTable(grid, placement, mappings)
	if spec != nil {
		for _, col := range spec.NumericColumns {
			if !table.HasColumn(col) {
				msg := fmt.Sprintf("allow-listed column %q not found", col)
				report.Diagnostics = append(report.Diagnostics,
					apperrors.NewStructuralAmbiguity(sheet, msg).WithContext("column", col).Diagnostic())
				n.logger.WarnContext(ctx, "allow-listed column missing", "sheet", sheet, "column", col)
				continue
			}
			rc.numeric[col] = true
		}
	}

	report.Pre = n.metrics(table, func(col string) (decimal.Decimal, bool) {
		if !rc.numeric[col] {
			return decimal.Zero, false
		}
		idx, _ := table.ColumnIndex(col)
		return rawColumnSum(grid, idx, placement.DataStartRow()), true
	})

	origin := make(map[string]string, table.ColumnCount())
	for _, c := range table.Columns {
		origin[c.Name] = c.Name
	}
	converted := make(map[string]bool)

	for _, rule := range n.rules {
		if !n.approved[rule.Name] || !rule.Executable() {
			reason := "not approved"
			if n.approved[rule.Name] {
				reason = "no executor"
			}
			report.SkippedRules = append(report.SkippedRules, domain.SkippedRule{Rule: rule.Name, Reason: reason})
			n.logger.InfoContext(ctx, "rule skipped", "sheet", sheet, "rule", rule.Name, "reason", reason)
			continue
		}

		res := rule.apply(rc, table)
		checks, diags := n.validate(ctx, sheet, rule.Name, table, res)
		if rule.Name == config.RulePreservation {
			c, d := n.verifyPreserved(sheet, res.table, grid, placement, converted)
			checks = append(checks, c...)
			diags = append(diags, d...)
		}
		report.Checks = append(report.Checks, checks...)
		report.Diagnostics = append(report.Diagnostics, diags...)
		report.AppliedRules = append(report.AppliedRules, rule.Name)

		for from, to := range res.renamed {
			origin[to] = origin[from]
			delete(origin, from)
			if converted[from] {
				converted[to] = true
				delete(converted, from)
			}
		}
		for col := range res.converted {
			converted[col] = true
		}
		for _, note := range res.notes {
			n.logger.WarnContext(ctx, note, "sheet", sheet, "rule", rule.Name)
		}
		n.logger.InfoContext(ctx, "rule applied", "sheet", sheet, "rule", rule.Name,
			"renamed", len(res.renamed), "converted", len(res.converted))
		table = res.table
	}

	report.Post = n.metrics(table, func(col string) (decimal.Decimal, bool) {
		if !converted[col] {
			return decimal.Zero, false
		}
		return table.Sum(col), true
	})

	for _, c := range table.Columns {
		if !converted[c.Name] {
			continue
		}
		pre := report.Pre.NumericSums[origin[c.Name]]
		post := report.Post.NumericSums[c.Name]
		diff := post.Sub(pre).Abs()
		status := domain.CheckPass
		if diff.GreaterThan(n.tolerance) {
			status = domain.CheckFail
			msg := fmt.Sprintf("converted sum %s differs from raw sum %s by %s", post, pre, diff)
			report.Diagnostics = append(report.Diagnostics,
				apperrors.NewInvariantViolation(sheet, c.Name, msg).Diagnostic())
		}
		report.SumChecks = append(report.SumChecks, domain.SumCheck{
			Sheet: sheet, Column: c.Name, PreSum: pre, PostSum: post,
			Difference: diff, Tolerance: n.tolerance, Status: status,
		})
	}

	for _, c := range table.Columns {
		pre := string(domain.ColumnRaw)
		post := string(c.Type)
		report.DtypeChanges = append(report.DtypeChanges, domain.DtypeChange{
			Sheet: sheet, Column: c.Name, PreType: pre, PostType: post, Changed: pre != post,
		})
	}

	counts := report.CountByStatus()
	n.logger.InfoContext(ctx, "sheet normalized", "sheet", sheet,
		"rows", table.RowCount(), "columns", table.ColumnCount(),
		"pass", counts[domain.CheckPass], "warn", counts[domain.CheckWarn], "fail", counts[domain.CheckFail])
	if !report.Passed() {
		n.logger.WarnContext(ctx, "invariant checks failed", "sheet", sheet, "fail", counts[domain.CheckFail])
	}

	return table, report
}

// rawTable copies the data rows below the header into a table of raw columns.
func rawTable(grid domain.RawGrid, placement domain.HeaderPlacement, mappings []domain.ColumnMapping) *domain.TypedTable {
	cols := make([]domain.Column, len(mappings))
	for i, m := range mappings {
		cols[i] = domain.Column{Name: m.NormalizedName, Type: domain.ColumnRaw}
	}

	start := placement.DataStartRow()
	count := grid.RowCount() - start
	if count < 0 {
		count = 0
	}
	rows := make([]domain.Record, count)
	for r := 0; r < count; r++ {
		rec := make(domain.Record, len(cols))
		for c := range cols {
			rec[c] = domain.RawValue(grid.At(start+r, c))
		}
		rows[r] = rec
	}
	return domain.NewTypedTable(grid.Source, grid.Sheet, cols, rows)
}

func (n *Normalizer) metrics(t *domain.TypedTable, sum func(string) (decimal.Decimal, bool)) domain.TableMetrics {
	m := domain.TableMetrics{
		RowCount:    t.RowCount(),
		ColumnCount: t.ColumnCount(),
		NullCounts:  make(map[string]int, t.ColumnCount()),
		NumericSums: make(map[string]decimal.Decimal),
	}
	for _, c := range t.Columns {
		m.NullCounts[c.Name] = t.NullCount(c.Name)
		if s, ok := sum(c.Name); ok {
			m.NumericSums[c.Name] = s
		}
	}
	return m
}

// validate compares the table before a rule with the table it produced.
func (n *Normalizer) validate(ctx context.Context, sheet, rule string, before *domain.TypedTable, res ruleResult) ([]domain.InvariantCheck, []domain.Diagnostic) {
	after := res.table
	var checks []domain.InvariantCheck
	var diags []domain.Diagnostic

	count := func(check string, pre, post int) {
		c := domain.InvariantCheck{
			Sheet: sheet, Rule: rule, Check: check,
			Pre: fmt.Sprint(pre), Post: fmt.Sprint(post), Status: domain.CheckPass,
		}
		if pre != post {
			c.Status = domain.CheckFail
			c.Detail = fmt.Sprintf("%s changed from %d to %d", check, pre, post)
			diags = append(diags, apperrors.NewInvariantViolation(sheet, "", c.Detail).Diagnostic())
		}
		checks = append(checks, c)
	}
	count(CheckRowCount, before.RowCount(), after.RowCount())
	count(CheckColumnCount, before.ColumnCount(), after.ColumnCount())

	for _, col := range before.Columns {
		name := col.Name
		if to, ok := res.renamed[name]; ok {
			name = to
		}
		pre := before.NullCount(col.Name)
		c := domain.InvariantCheck{
			Sheet: sheet, Rule: rule, Check: CheckNullCount, Column: name,
			Pre: fmt.Sprint(pre), Status: domain.CheckPass,
		}
		if !after.HasColumn(name) {
			c.Post = "missing"
			c.Status = domain.CheckFail
			c.Detail = "column missing after rule"
			diags = append(diags, apperrors.NewInvariantViolation(sheet, name, c.Detail).Diagnostic())
			checks = append(checks, c)
			continue
		}
		post := after.NullCount(name)
		c.Post = fmt.Sprint(post)
		switch {
		case post == pre:
		case post > pre && res.converted[name]:
			c.Status = domain.CheckWarn
			c.Detail = fmt.Sprintf("%d values could not be parsed and became null", post-pre)
			diags = append(diags, apperrors.NewParseCoercion(sheet, name, c.Detail).Diagnostic())
			n.logger.WarnContext(ctx, "values coerced to null", "sheet", sheet, "column", name, "rule", rule, "count", post-pre)
		default:
			c.Status = domain.CheckFail
			c.Detail = fmt.Sprintf("null count changed from %d to %d", pre, post)
			diags = append(diags, apperrors.NewInvariantViolation(sheet, name, c.Detail).Diagnostic())
		}
		checks = append(checks, c)
	}
	return checks, diags
}

// verifyPreserved compares every column that was not converted with the grid.
// Column positions never move, so column i of the table is column i of the grid.
func (n *Normalizer) verifyPreserved(sheet string, t *domain.TypedTable, grid domain.RawGrid,
	placement domain.HeaderPlacement, converted map[string]bool) ([]domain.InvariantCheck, []domain.Diagnostic) {

	var checks []domain.InvariantCheck
	var diags []domain.Diagnostic
	start := placement.DataStartRow()

	for i, col := range t.Columns {
		if converted[col.Name] {
			continue
		}
		differ := 0
		for r, rec := range t.Rows {
			cell := grid.At(start+r, i)
			v := rec[i]
			if cell.IsNull() != v.IsNull() || (!v.IsNull() && (v.IsNumber() || v.Text != cell.Raw)) {
				differ++
			}
		}
		c := domain.InvariantCheck{
			Sheet: sheet, Rule: config.RulePreservation, Check: CheckPreservedValues, Column: col.Name,
			Pre: fmt.Sprint(t.RowCount()), Post: fmt.Sprint(t.RowCount() - differ), Status: domain.CheckPass,
		}
		if differ > 0 {
			c.Status = domain.CheckFail
			c.Detail = fmt.Sprintf("%d values differ from the source cells", differ)
			diags = append(diags, apperrors.NewInvariantViolation(sheet, col.Name, c.Detail).Diagnostic())
		}
		checks = append(checks, c)
	}
	return checks, diags
}
