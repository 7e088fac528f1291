package domain

import "github.com/shopspring/decimal"

// CheckStatus is the verdict of one invariant check.
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckWarn CheckStatus = "WARN"
	CheckFail CheckStatus = "FAIL"
)

// InvariantCheck is a single pre/post comparison made after a rule ran.
type InvariantCheck struct {
	Sheet  string      `json:"sheet"`
	Rule   string      `json:"rule"`
	Check  string      `json:"check"`
	Column string      `json:"column,omitempty"`
	Pre    string      `json:"pre"`
	Post   string      `json:"post"`
	Status CheckStatus `json:"status" validate:"required,oneof=PASS WARN FAIL"`
	Detail string      `json:"detail,omitempty"`
}

// SkippedRule documents a declared rule that did not run.
type SkippedRule struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// SumCheck compares a converted column's sum with the sum parsed independently
// from the raw cells.
type SumCheck struct {
	Sheet      string          `json:"sheet"`
	Column     string          `json:"column"`
	PreSum     decimal.Decimal `json:"pre_sum"`
	PostSum    decimal.Decimal `json:"post_sum"`
	Difference decimal.Decimal `json:"difference"`
	Tolerance  decimal.Decimal `json:"tolerance"`
	Status     CheckStatus     `json:"status"`
}

// DtypeChange records a column's declared type before and after normalization.
type DtypeChange struct {
	Sheet    string `json:"sheet"`
	Column   string `json:"column"`
	PreType  string `json:"pre_type"`
	PostType string `json:"post_type"`
	Changed  bool   `json:"changed"`
}

// TableMetrics is a snapshot of the counts that normalization must preserve.
type TableMetrics struct {
	RowCount    int                        `json:"row_count"`
	ColumnCount int                        `json:"column_count"`
	NullCounts  map[string]int             `json:"null_counts"`
	NumericSums map[string]decimal.Decimal `json:"numeric_sums"`
}

// InvariantReport is produced once per normalization pass and is not modified
// afterwards.
type InvariantReport struct {
	Sheet        string           `json:"sheet"`
	Pre          TableMetrics     `json:"pre"`
	Post         TableMetrics     `json:"post"`
	AppliedRules []string         `json:"applied_rules"`
	SkippedRules []SkippedRule    `json:"skipped_rules"`
	Checks       []InvariantCheck `json:"checks"`
	SumChecks    []SumCheck       `json:"sum_checks"`
	DtypeChanges []DtypeChange    `json:"dtype_changes"`
	Diagnostics  []Diagnostic     `json:"diagnostics,omitempty"`
}

// Passed reports whether no check failed. Warnings do not fail a report.
func (r *InvariantReport) Passed() bool {
	for _, c := range r.Checks {
		if c.Status == CheckFail {
			return false
		}
	}
	for _, s := range r.SumChecks {
		if s.Status == CheckFail {
			return false
		}
	}
	return true
}

// CountByStatus tallies checks, including sum checks, by verdict.
func (r *InvariantReport) CountByStatus() map[CheckStatus]int {
	counts := map[CheckStatus]int{}
	for _, c := range r.Checks {
		counts[c.Status]++
	}
	for _, s := range r.SumChecks {
		counts[s.Status]++
	}
	return counts
}
