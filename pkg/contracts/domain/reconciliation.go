package domain

import "github.com/shopspring/decimal"

// Verdict is the outcome of a reconciliation check.
type Verdict string

const (
	VerdictReconciled  Verdict = "RECONCILED"
	VerdictDiscrepancy Verdict = "DISCREPANCY"
)

// ReconciliationEntry compares one detail aggregate with its summary reference.
// ReferenceValue is nil when the summary lookup failed; such entries are always
// discrepancies and carry a Note explaining the failure.
type ReconciliationEntry struct {
	CheckName          string           `json:"check_name"`
	SummaryLabel       string           `json:"summary_label"`
	ReferenceValue     *decimal.Decimal `json:"reference_value"`
	ComputedValue      decimal.Decimal  `json:"computed_value"`
	AbsoluteDifference *decimal.Decimal `json:"absolute_difference"`
	Tolerance          decimal.Decimal  `json:"tolerance"`
	Verdict            Verdict          `json:"verdict"`
	Note               string           `json:"note,omitempty"`
}

// Reconciled reports whether the entry passed.
func (e ReconciliationEntry) Reconciled() bool {
	return e.Verdict == VerdictReconciled
}

// PnLOverview holds the headline figures computed from the detail sheets, next
// to the summary sheet's own values where present.
type PnLOverview struct {
	RecurringRevenue decimal.Decimal `json:"recurring_revenue"`
	PSORevenue       decimal.Decimal `json:"pso_revenue"`
	PerpetualRevenue decimal.Decimal `json:"perpetual_revenue"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`

	HCExpense      decimal.Decimal `json:"hc_expense"`
	NonHCOpex      decimal.Decimal `json:"non_hc_opex"`
	NonHCCogs      decimal.Decimal `json:"non_hc_cogs"`
	TotalNonHC     decimal.Decimal `json:"total_non_hc"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	GrossMargin    decimal.Decimal `json:"gross_margin"`
	GrossMarginPct float64         `json:"gross_margin_pct"`

	SummaryRevenue   *decimal.Decimal `json:"summary_revenue,omitempty"`
	SummaryMargin    *decimal.Decimal `json:"summary_margin,omitempty"`
	SummaryMarginPct *decimal.Decimal `json:"summary_margin_pct,omitempty"`
}
