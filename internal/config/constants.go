package config

// Application constants
const (
	AppName = "plaudit"

	// EnvPrefix namespaces every environment variable, e.g. PLAUDIT_LOGGING_LEVEL.
	EnvPrefix = "PLAUDIT"

	// Input source labels
	SourcePnL          = "pnl"
	SourceFinanceRoles = "cfr"

	DefaultPnLWorkbook          = "data/Operational Leadership Real Work - Input P&L.xlsx"
	DefaultFinanceRolesWorkbook = "data/Central Finance Roles.xlsx"

	// Output locations
	DefaultQCDir       = "outputs/qc"
	DefaultAnalysisDir = "outputs/phase_2"
	DefaultLogsDir     = "logs"
	DefaultMetricsFile = "outputs/metrics.prom"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkers = 4
)

// Analysis thresholds. These values have no documented sensitivity rationale
// and are kept exactly as the finance team defined them.
const (
	// ReconciliationTolerance is the inclusive absolute tolerance, in currency units.
	ReconciliationTolerance = 0.01
	// MaterialityThresholdPct is the negative share above which a table is Material
	// and a group is Systematic.
	MaterialityThresholdPct = 10.0
	// DepartmentFlagFloor suppresses department flags whose absolute negative sum
	// does not exceed it.
	DepartmentFlagFloor = 100000.0
	// DepartmentFlagLimit caps department flags per pattern.
	DepartmentFlagLimit = 3
	// RecurringConcentrationPct is the recurring revenue share above which a
	// concentration signal fires.
	RecurringConcentrationPct = 85.0
	// NullRateWarnPct is the column null rate above which a warning is logged.
	NullRateWarnPct = 50.0
)

// Header detection parameters.
const (
	HeaderScanRows     = 5
	HeaderNonNullRatio = 0.5
	HeaderTextRatio    = 0.5
	// HeaderMarkerScan is how many leading non-null cells are compared against
	// the metadata markers.
	HeaderMarkerScan = 3
)

// DefaultMetadataMarkers are banner values that never start a header row.
var DefaultMetadataMarkers = []string{"IN USD", "Maintenance", "Perpetual"}

// Benchmark labels and the ratios used when a label is missing from the
// benchmark sheet.
const (
	BenchmarkSharedServices = "Shared Services"
	BenchmarkExecutiveTeam  = "Executive team"
	BenchmarkSales          = "Sales"
	BenchmarkMarketing      = "Marketing"
	BenchmarkEngineering    = "Engineering"
	BenchmarkProduct        = "Product"
	BenchmarkMargin         = "Margin"
)

// DefaultBenchmarkFallbacks returns a fresh copy of the fallback ratio table.
func DefaultBenchmarkFallbacks() map[string]float64 {
	return map[string]float64{
		BenchmarkSharedServices: 0.045,
		BenchmarkExecutiveTeam:  0.045,
		BenchmarkSales:          0.05,
		BenchmarkMarketing:      0.01,
		BenchmarkEngineering:    0.10,
		BenchmarkProduct:        0.02,
		BenchmarkMargin:         0.70,
	}
}

// Normalization rule names
const (
	RuleTypeConversion     = "type_conversion"
	RuleRounding           = "rounding"
	RuleCheckValueHandling = "check_value_handling"
	RuleRename             = "rename"
	RulePreservation       = "preservation"
)

// DefaultApprovedRules lists the rules signed off for execution.
var DefaultApprovedRules = []string{RuleTypeConversion, RuleRename, RulePreservation}

// DefaultRenames returns the static column rename table.
func DefaultRenames() map[string]string {
	return map[string]string{
		"dept":   "department",
		"dept_1": "expense_category",
	}
}
