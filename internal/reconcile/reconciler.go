package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/pkg/contracts/domain"
)

// Options configures a Reconciler.
type Options struct {
	Tolerance decimal.Decimal
	// LabelColumn and ValueColumn locate the label and amount of each summary row.
	LabelColumn string
	ValueColumn string
	Logger      *slog.Logger
}

// DefaultOptions uses the standard tolerance and the P&L summary columns.
func DefaultOptions() Options {
	return Options{
		Tolerance:   decimal.NewFromFloat(config.ReconciliationTolerance),
		LabelColumn: config.ColumnSummary,
		ValueColumn: config.ColumnTotal,
	}
}

// OptionsFrom builds options from the configuration, reading the summary
// columns from the layout's summary sheet.
func OptionsFrom(cfg *config.Config, logger *slog.Logger) Options {
	opts := DefaultOptions()
	opts.Tolerance = decimal.NewFromFloat(cfg.Analysis.Tolerance)
	if spec, ok := cfg.Layout.ByRole(config.RoleSummary); ok {
		if spec.LabelColumn != "" {
			opts.LabelColumn = spec.LabelColumn
		}
		if spec.MeasureColumn != "" {
			opts.ValueColumn = spec.MeasureColumn
		}
	}
	opts.Logger = logger
	return opts
}

// Reconciler compares detail aggregates with summary references.
type Reconciler struct {
	opts   Options
	logger *slog.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{opts: opts, logger: logger.With(slog.String("component", "reconcile"))}
}

// Reconcile evaluates every check in order and returns one entry per check.
// details is keyed by sheet name.
func (r *Reconciler) Reconcile(ctx context.Context, summary *domain.TypedTable,
	details map[string]*domain.TypedTable, checks []config.ReconcileCheck) []domain.ReconciliationEntry {

	entries := make([]domain.ReconciliationEntry, 0, len(checks))
	for _, check := range checks {
		entry := r.evaluate(summary, details, check)
		if entry.Reconciled() {
			r.logger.InfoContext(ctx, "check reconciled", "check", entry.CheckName, "computed", entry.ComputedValue.String())
		} else {
			r.logger.WarnContext(ctx, "reconciliation discrepancy", "check", entry.CheckName, "note", entry.Note)
		}
		entries = append(entries, entry)
	}
	return entries
}

func (r *Reconciler) evaluate(summary *domain.TypedTable, details map[string]*domain.TypedTable,
	check config.ReconcileCheck) domain.ReconciliationEntry {

	entry := domain.ReconciliationEntry{
		CheckName:    check.Name,
		SummaryLabel: check.SummaryLabel,
		Tolerance:    r.opts.Tolerance,
		Verdict:      domain.VerdictDiscrepancy,
	}

	var notes []string
	computed, err := r.aggregate(details, check)
	if err != nil {
		notes = append(notes, err.Error())
	}
	entry.ComputedValue = computed

	ref, lookupErr := LookupLabel(summary, r.opts.LabelColumn, r.opts.ValueColumn, check.SummaryLabel)
	if lookupErr != nil {
		notes = append(notes, "reference value absent: "+lookupErr.Error())
		entry.Note = strings.Join(notes, "; ")
		return entry
	}

	diff := computed.Sub(ref).Abs()
	entry.ReferenceValue = &ref
	entry.AbsoluteDifference = &diff
	if err == nil && diff.LessThanOrEqual(r.opts.Tolerance) {
		entry.Verdict = domain.VerdictReconciled
	}
	if err == nil && !entry.Reconciled() {
		notes = append(notes, fmt.Sprintf("difference %s exceeds tolerance %s", diff, r.opts.Tolerance))
	}
	entry.Note = strings.Join(notes, "; ")
	return entry
}

// aggregate sums the check's column over all of its sheets. A missing sheet or
// column is reported while the remaining sheets are still summed.
func (r *Reconciler) aggregate(details map[string]*domain.TypedTable, check config.ReconcileCheck) (decimal.Decimal, error) {
	keep, err := PredicateFor(check.Sign)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	var missing []string
	for _, name := range check.Sheets {
		sum, err := SumColumn(details[name], check.Column, keep)
		if err != nil {
			missing = append(missing, fmt.Sprintf("detail sheet %s: %v", name, err))
			continue
		}
		total = total.Add(sum)
	}
	if len(missing) > 0 {
		return total, errors.New(strings.Join(missing, "; "))
	}
	return total, nil
}

// Diagnostics converts unreconciled entries into diagnostic records.
func Diagnostics(entries []domain.ReconciliationEntry) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, e := range entries {
		if e.Reconciled() {
			continue
		}
		out = append(out, apperrors.NewReconciliationDiscrepancy(e.CheckName, e.CheckName+": "+e.Note).Diagnostic())
	}
	return out
}
