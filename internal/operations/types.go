package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDIngest    = "ingest"
	StepIDNormalize = "normalize"
	StepIDReconcile = "reconcile"
	StepIDAnomaly   = "anomaly"
	StepIDFlags     = "flags"
	StepIDExport    = "export"
)

// Pipeline step names
const (
	StepNameIngest    = "Workbook Ingestion"
	StepNameNormalize = "Schema Inference and Normalization"
	StepNameReconcile = "Reconciliation"
	StepNameAnomaly   = "Anomaly Classification"
	StepNameFlags     = "Flag Register"
	StepNameExport    = "Artifact Export"
)

// Context keys for data passed between steps
const (
	ContextKeyGrids          = "grids"
	ContextKeySheets         = "sheets"
	ContextKeyTables         = "tables"
	ContextKeyOverview       = "overview"
	ContextKeyReconciliation = "reconciliation"
	ContextKeyProfiles       = "profiles"
	ContextKeyPatterns       = "patterns"
	ContextKeySignals        = "signals"
	ContextKeyBenchmarks     = "benchmarks"
	ContextKeyFlags          = "flags"
	ContextKeyArtifacts      = "artifacts"
)

// DefaultExportTimeout bounds artifact writing. The analysis steps run
// without a deadline.
const DefaultExportTimeout = 2 * time.Minute

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute the pipeline. An empty Step
// runs every registered step. Inputs seed the state context, which lets a
// single step run on outputs produced elsewhere.
type OperationRequest struct {
	ID     string                 `json:"id"`
	Step   string                 `json:"step,omitempty"`
	Inputs map[string]interface{} `json:"-"`
}

// OperationResponse represents the response from a pipeline execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
	State    *OperationState       `json:"-"`
}
