package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/pkg/contracts/domain"
)

// Function labels of the function_l2 column used by the ratio signals.
const (
	FunctionGA = "G&A"
	FunctionSM = "S&M"
	FunctionRD = "R&D"
)

// Signal areas.
const (
	AreaGA         = "OPEX - G&A"
	AreaSM         = "S&M"
	AreaRD         = "R&D"
	AreaExpenseMix = "Expense Mix"
	AreaMargin     = "Margin"
	AreaRevenueMix = "Revenue Mix"
)

// SignalOptions configures signal detection.
type SignalOptions struct {
	RecurringConcentrationPct float64
	// Fallbacks are the ratios used for labels missing from the benchmark sheet.
	Fallbacks map[string]float64
	Logger    *slog.Logger
}

// DefaultSignalOptions uses the standard thresholds and fallback table.
func DefaultSignalOptions() SignalOptions {
	return SignalOptions{
		RecurringConcentrationPct: config.RecurringConcentrationPct,
		Fallbacks:                 config.DefaultBenchmarkFallbacks(),
	}
}

// OptionsFrom builds classification and signal options from the analysis configuration.
func OptionsFrom(cfg config.AnalysisConfig, logger *slog.Logger) (ClassifyOptions, SignalOptions) {
	sig := DefaultSignalOptions()
	sig.RecurringConcentrationPct = cfg.RecurringConcentrationPct
	if cfg.BenchmarkFallbacks != nil {
		sig.Fallbacks = cfg.BenchmarkFallbacks
	}
	sig.Logger = logger

	cls := DefaultClassifyOptions()
	if cfg.MaterialityPct > 0 {
		cls.MaterialityPct = cfg.MaterialityPct
	}
	return cls, sig
}

// resolver looks up benchmark ratios and remembers every fallback it used.
type resolver struct {
	benchmarks Benchmarks
	fallbacks  map[string]float64
	missing    []string
	seen       map[string]bool
}

// get returns the ratio for label and whether the fallback table supplied it.
func (r *resolver) get(label string) (decimal.Decimal, bool) {
	if d, ok := r.benchmarks.Lookup(label); ok {
		return d, false
	}
	if !r.seen[label] {
		r.seen[label] = true
		r.missing = append(r.missing, label)
	}
	return decimal.NewFromFloat(r.fallbacks[label]), true
}

// sum adds the ratios of several labels and lists the labels that fell back.
func (r *resolver) sum(labels ...string) (decimal.Decimal, []string) {
	total := decimal.Zero
	var used []string
	for _, l := range labels {
		d, fell := r.get(l)
		total = total.Add(d)
		if fell {
			used = append(used, l)
		}
	}
	return total, used
}

// DetectSignals compares the P&L ratios with their benchmarks and returns the
// signals that fire, in a fixed order. The diagnostics list every benchmark
// label that fell back to its constant.
func DetectSignals(ctx context.Context, tables map[string]*domain.TypedTable, layout config.Layout,
	overview domain.PnLOverview, benchmarks Benchmarks, opts SignalOptions) ([]domain.Signal, []domain.Diagnostic) {

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "anomaly"))
	res := &resolver{benchmarks: benchmarks, fallbacks: opts.Fallbacks, seen: make(map[string]bool)}

	revenue := overview.TotalRevenue
	share := func(amount decimal.Decimal) decimal.Decimal {
		if revenue.IsZero() {
			return decimal.Zero
		}
		return amount.Div(revenue)
	}
	opex := FunctionTotals(tables, layout, config.RoleOpex)
	cogs := FunctionTotals(tables, layout, config.RoleCogs)

	var signals []domain.Signal
	add := func(s *domain.Signal) {
		if s != nil {
			signals = append(signals, *s)
		}
	}

	ga := opex[FunctionGA]
	bm, used := res.sum(config.BenchmarkSharedServices, config.BenchmarkExecutiveTeam)
	add(ratioSignal(AreaGA, "G&A expense", share(ga), bm, "OPEX G&A total: "+domain.FormatCurrency(ga), used))

	smOpex := opex[FunctionSM]
	bm, used = res.sum(config.BenchmarkSales, config.BenchmarkMarketing)
	add(ratioSignal(AreaSM, "S&M expense", share(smOpex.Add(cogs[FunctionSM])), bm, "OPEX S&M: "+domain.FormatCurrency(smOpex), used))

	rd := opex[FunctionRD]
	bm, used = res.sum(config.BenchmarkEngineering, config.BenchmarkProduct)
	add(ratioSignal(AreaRD, "R&D expense", share(rd), bm, "OPEX R&D: "+domain.FormatCurrency(rd), used))

	add(expenseMixSignal(overview))
	add(marginSignal(overview, res))
	add(revenueMixSignal(overview, opts.RecurringConcentrationPct))

	var diags []domain.Diagnostic
	for _, label := range res.missing {
		ratio := opts.Fallbacks[label]
		msg := fmt.Sprintf("benchmark %q missing, using fallback ratio %g", label, ratio)
		diags = append(diags, apperrors.NewLookupFailure("", label, msg).Diagnostic())
		logger.WarnContext(ctx, "benchmark fallback used", "label", label, "ratio", ratio)
	}
	logger.InfoContext(ctx, "signals detected", "count", len(signals), "fallbacks", len(res.missing))
	return signals, diags
}

// FunctionTotals sums the measure column of the sheet with the given role per
// category value.
func FunctionTotals(tables map[string]*domain.TypedTable, layout config.Layout, role config.SheetRole) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	spec, ok := layout.ByRole(role)
	if !ok {
		return totals
	}
	t := tables[spec.Name]
	if t == nil {
		return totals
	}
	measure := spec.MeasureColumn
	if measure == "" {
		measure = config.ColumnTotal
	}
	category := spec.CategoryColumn
	if category == "" {
		category = config.ColumnFunctionL2
	}
	for i := 0; i < t.RowCount(); i++ {
		k := t.Get(i, category)
		v := t.Get(i, measure)
		if k.IsNull() || !v.IsNumber() {
			continue
		}
		key := strings.TrimSpace(k.String())
		totals[key] = totals[key].Add(v.Num)
	}
	return totals
}

func pct(d decimal.Decimal) float64 {
	return d.Mul(hundred).InexactFloat64()
}

func ratioSignal(area, label string, actual, benchmark decimal.Decimal, evidence string, fallbacks []string) *domain.Signal {
	if !actual.GreaterThan(benchmark) {
		return nil
	}
	a, b := pct(actual), pct(benchmark)
	return &domain.Signal{
		Area:           area,
		Description:    fmt.Sprintf("%s at %.1f%% of revenue", label, a),
		Benchmark:      fmt.Sprintf("%.1f%%", b),
		Actual:         fmt.Sprintf("%.1f%%", a),
		Variance:       fmt.Sprintf("+%.1fpp", pct(actual.Sub(benchmark))),
		Evidence:       evidence,
		BenchmarkValue: b,
		ActualValue:    a,
		FallbacksUsed:  fallbacks,
	}
}

func expenseMixSignal(o domain.PnLOverview) *domain.Signal {
	if !o.TotalNonHC.GreaterThan(o.HCExpense) {
		return nil
	}
	var hcPct, nonPct float64
	if !o.TotalExpense.IsZero() {
		hcPct = pct(o.HCExpense.Div(o.TotalExpense))
		nonPct = pct(o.TotalNonHC.Div(o.TotalExpense))
	}
	return &domain.Signal{
		Area:           AreaExpenseMix,
		Description:    fmt.Sprintf("Non-HC expense (%.1f%%) exceeds HC expense (%.1f%%)", nonPct, hcPct),
		Benchmark:      "Typically HC > Non-HC for service businesses",
		Actual:         fmt.Sprintf("HC: %.1f%%, Non-HC: %.1f%%", hcPct, nonPct),
		Variance:       "Non-HC exceeds HC by " + domain.FormatCurrency(o.TotalNonHC.Sub(o.HCExpense)),
		Evidence:       fmt.Sprintf("HC: %s, Non-HC: %s", domain.FormatCurrency(o.HCExpense), domain.FormatCurrency(o.TotalNonHC)),
		BenchmarkValue: hcPct,
		ActualValue:    nonPct,
	}
}

func marginSignal(o domain.PnLOverview, res *resolver) *domain.Signal {
	margin := decimal.Zero
	if !o.TotalRevenue.IsZero() {
		margin = o.GrossMargin.Div(o.TotalRevenue)
	}
	bm, fell := res.get(config.BenchmarkMargin)
	if !margin.LessThan(bm) {
		return nil
	}
	var used []string
	if fell {
		used = []string{config.BenchmarkMargin}
	}
	m, b := pct(margin), pct(bm)
	return &domain.Signal{
		Area:           AreaMargin,
		Description:    fmt.Sprintf("Gross margin at %.1f%%, below benchmark", m),
		Benchmark:      fmt.Sprintf("%.1f%%", b),
		Actual:         fmt.Sprintf("%.1f%%", m),
		Variance:       fmt.Sprintf("%.1fpp", pct(margin.Sub(bm))),
		Evidence:       "Margin: " + domain.FormatCurrency(o.GrossMargin),
		BenchmarkValue: b,
		ActualValue:    m,
		FallbacksUsed:  used,
	}
}

func revenueMixSignal(o domain.PnLOverview, thresholdPct float64) *domain.Signal {
	if o.TotalRevenue.IsZero() {
		return nil
	}
	recurring := pct(o.RecurringRevenue.Div(o.TotalRevenue))
	if recurring <= thresholdPct {
		return nil
	}
	return &domain.Signal{
		Area:           AreaRevenueMix,
		Description:    fmt.Sprintf("Recurring revenue represents %.1f%% of total", recurring),
		Benchmark:      "N/A - Observation only",
		Actual:         fmt.Sprintf("Recurring: %.1f%%", recurring),
		Variance:       "High concentration in single revenue type",
		Evidence:       "Recurring: " + domain.FormatCurrency(o.RecurringRevenue),
		BenchmarkValue: thresholdPct,
		ActualValue:    recurring,
	}
}
