package domain

// DiagnosticType mirrors the error taxonomy of the pipeline. None of these
// halt processing; they are recorded next to the result they qualify.
type DiagnosticType string

const (
	DiagnosticStructuralAmbiguity       DiagnosticType = "STRUCTURAL_AMBIGUITY"
	DiagnosticParseCoercion             DiagnosticType = "PARSE_COERCION"
	DiagnosticInvariantViolation        DiagnosticType = "INVARIANT_VIOLATION"
	DiagnosticReconciliationDiscrepancy DiagnosticType = "RECONCILIATION_DISCREPANCY"
	DiagnosticLookupFailure             DiagnosticType = "LOOKUP_FAILURE"
)

// Diagnostic is a recorded, non-fatal finding.
type Diagnostic struct {
	Type    DiagnosticType `json:"type"`
	Sheet   string         `json:"sheet,omitempty"`
	Column  string         `json:"column,omitempty"`
	Message string         `json:"message"`
}
