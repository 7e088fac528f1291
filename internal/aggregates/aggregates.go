// Package aggregates builds the supporting tables written next to the flag
// register: revenue and expense breakdowns, expense by function, negative
// value summaries and the benchmark reference.
package aggregates

import (
	"sort"

	"github.com/shopspring/decimal"

	"plaudit/internal/anomaly"
	"plaudit/internal/config"
	"plaudit/pkg/contracts/domain"
)

// Table names, used as sheet names in the aggregates workbook.
const (
	RevenueByType      = "revenue_by_type"
	ExpenseByCategory  = "expense_by_category"
	OpexByFunction     = "opex_by_function"
	CogsByFunction     = "cogs_by_function"
	HCByFunction       = "hc_by_function"
	NegativeBySheet    = "negative_by_sheet"
	NegativeByCategory = "negative_by_category"
	BenchmarkReference = "benchmark_reference"
)

var hundred = decimal.NewFromInt(100)

// Set is the complete group of supporting tables.
type Set struct {
	RevenueByType      domain.AggregateTable
	ExpenseByCategory  domain.AggregateTable
	OpexByFunction     domain.AggregateTable
	CogsByFunction     domain.AggregateTable
	HCByFunction       domain.AggregateTable
	NegativeBySheet    domain.AggregateTable
	NegativeByCategory domain.AggregateTable
	BenchmarkReference domain.AggregateTable
}

// Tables returns the tables in workbook order.
func (s Set) Tables() []domain.AggregateTable {
	return []domain.AggregateTable{
		s.RevenueByType, s.ExpenseByCategory, s.OpexByFunction, s.CogsByFunction,
		s.HCByFunction, s.NegativeBySheet, s.NegativeByCategory, s.BenchmarkReference,
	}
}

// Build computes every supporting table. Money values are decimal.Decimal,
// percentages float64 and counts int.
func Build(tables map[string]*domain.TypedTable, layout config.Layout, overview domain.PnLOverview,
	profiles []domain.TableProfile, benchmarks []domain.Benchmark) Set {

	return Set{
		RevenueByType: shareTable(RevenueByType, "revenue_type", overview.TotalRevenue, []labelled{
			{"Recurring", overview.RecurringRevenue},
			{"PSO", overview.PSORevenue},
			{"Perpetual", overview.PerpetualRevenue},
		}),
		ExpenseByCategory: shareTable(ExpenseByCategory, "expense_category", overview.TotalExpense, []labelled{
			{"HC (W2)", overview.HCExpense},
			{"Non-HC OPEX", overview.NonHCOpex},
			{"Non-HC COGS", overview.NonHCCogs},
		}),
		OpexByFunction:     byFunction(OpexByFunction, tables, layout, config.RoleOpex),
		CogsByFunction:     byFunction(CogsByFunction, tables, layout, config.RoleCogs),
		HCByFunction:       byFunction(HCByFunction, tables, layout, config.RoleHeadcount),
		NegativeBySheet:    negativeBySheet(profiles),
		NegativeByCategory: negativeByCategory(profiles),
		BenchmarkReference: benchmarkReference(benchmarks, overview.TotalRevenue),
	}
}

type labelled struct {
	label  string
	amount decimal.Decimal
}

func percentOf(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}

func shareTable(name, labelHeader string, total decimal.Decimal, parts []labelled) domain.AggregateTable {
	t := domain.AggregateTable{Name: name, Headers: []string{labelHeader, "amount", "pct_of_total"}}
	for _, p := range parts {
		t.Rows = append(t.Rows, []any{p.label, p.amount, percentOf(p.amount, total)})
	}
	t.Rows = append(t.Rows, []any{"TOTAL", total, 100.0})
	return t
}

// byFunction lists the per-function totals of the sheet with the given role,
// largest amount first and by name among equal amounts.
func byFunction(name string, tables map[string]*domain.TypedTable, layout config.Layout, role config.SheetRole) domain.AggregateTable {
	t := domain.AggregateTable{Name: name, Headers: []string{"function", "amount", "source"}}
	spec, ok := layout.ByRole(role)
	if !ok {
		return t
	}
	totals := anomaly.FunctionTotals(tables, layout, role)

	names := make([]string, 0, len(totals))
	for k := range totals {
		names = append(names, k)
	}
	sort.Strings(names)
	sort.SliceStable(names, func(i, j int) bool {
		return totals[names[i]].GreaterThan(totals[names[j]])
	})
	for _, n := range names {
		t.Rows = append(t.Rows, []any{n, totals[n], spec.Name})
	}
	return t
}

func negativeBySheet(profiles []domain.TableProfile) domain.AggregateTable {
	t := domain.AggregateTable{
		Name:    NegativeBySheet,
		Headers: []string{"sheet", "total_rows", "total_sum", "negative_count", "negative_sum", "negative_pct_of_abs_total"},
	}
	for _, p := range profiles {
		s := p.Table
		t.Rows = append(t.Rows, []any{p.Sheet, s.RowCount, s.SignedSum, s.NegativeCount, s.NegativeSignedSum, s.NegativeSharePct})
	}
	return t
}

func negativeByCategory(profiles []domain.TableProfile) domain.AggregateTable {
	t := domain.AggregateTable{
		Name:    NegativeByCategory,
		Headers: []string{"sheet", "category", "category_total", "negative_count", "negative_sum", "negative_pct"},
	}
	for _, p := range profiles {
		if !p.Table.HasNegatives() {
			continue
		}
		for _, c := range p.Categories {
			if !c.HasNegatives() {
				continue
			}
			t.Rows = append(t.Rows, []any{p.Sheet, c.Group, c.SignedSum, c.NegativeCount, c.NegativeSignedSum, c.NegativeSharePct})
		}
	}
	return t
}

func benchmarkReference(benchmarks []domain.Benchmark, revenue decimal.Decimal) domain.AggregateTable {
	t := domain.AggregateTable{Name: BenchmarkReference, Headers: []string{"category", "benchmark_pct", "benchmark_amount"}}
	for _, b := range benchmarks {
		t.Rows = append(t.Rows, []any{b.Category, b.Ratio.Mul(hundred).InexactFloat64(), b.Ratio.Mul(revenue)})
	}
	return t
}
