package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Inputs        InputsConfig        `yaml:"inputs" envconfig:"INPUTS"`
	Output        OutputConfig        `yaml:"output" envconfig:"OUTPUT"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" envconfig:"TELEMETRY"`
	Analysis      AnalysisConfig      `yaml:"analysis" envconfig:"ANALYSIS"`
	Normalization NormalizationConfig `yaml:"normalization" envconfig:"NORMALIZATION"`
	Workers       int                 `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	Layout        Layout              `yaml:"layout" ignored:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// InputsConfig locates the source workbooks. The finance roles workbook is
// optional: an empty path skips it and an unreadable file is logged and skipped.
type InputsConfig struct {
	PnLWorkbook          string `yaml:"pnl_workbook" envconfig:"PNL_WORKBOOK" validate:"required"`
	FinanceRolesWorkbook string `yaml:"finance_roles_workbook" envconfig:"FINANCE_ROLES_WORKBOOK"`
}

// Sources returns the configured sources in a fixed order.
func (i InputsConfig) Sources() []Source {
	sources := []Source{{Label: SourcePnL, Path: i.PnLWorkbook, Required: true}}
	if i.FinanceRolesWorkbook != "" {
		sources = append(sources, Source{Label: SourceFinanceRoles, Path: i.FinanceRolesWorkbook})
	}
	return sources
}

// Source is one labelled input workbook.
type Source struct {
	Label    string
	Path     string
	Required bool
}

// OutputConfig contains output locations
type OutputConfig struct {
	QCDir       string `yaml:"qc_dir" envconfig:"QC_DIR" validate:"required"`
	AnalysisDir string `yaml:"analysis_dir" envconfig:"ANALYSIS_DIR" validate:"required"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// AnalysisConfig holds the thresholds used by reconciliation, anomaly
// classification and flag generation.
type AnalysisConfig struct {
	Tolerance                 float64            `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gte=0"`
	MaterialityPct            float64            `yaml:"materiality_pct" envconfig:"MATERIALITY_PCT" validate:"gt=0,lte=100"`
	DepartmentFlagFloor       float64            `yaml:"department_flag_floor" envconfig:"DEPARTMENT_FLAG_FLOOR" validate:"gte=0"`
	DepartmentFlagLimit       int                `yaml:"department_flag_limit" envconfig:"DEPARTMENT_FLAG_LIMIT" validate:"gte=0"`
	RecurringConcentrationPct float64            `yaml:"recurring_concentration_pct" envconfig:"RECURRING_CONCENTRATION_PCT" validate:"gt=0,lte=100"`
	HeaderScanRows            int                `yaml:"header_scan_rows" envconfig:"HEADER_SCAN_ROWS" validate:"min=1"`
	MetadataMarkers           []string           `yaml:"metadata_markers" envconfig:"METADATA_MARKERS"`
	BenchmarkFallbacks        map[string]float64 `yaml:"benchmark_fallbacks" ignored:"true"`
}

// NormalizationConfig lists approved rules and the rename table.
type NormalizationConfig struct {
	ApprovedRules []string          `yaml:"approved_rules" envconfig:"APPROVED_RULES"`
	Renames       map[string]string `yaml:"renames" envconfig:"RENAMES"`
}

// executableRules are the rules with an implementation.
var executableRules = []string{RuleTypeConversion, RuleRename, RulePreservation}

// Load builds the configuration from defaults, then the YAML file at path
// (if path is non-empty or a config file is found), then PLAUDIT_* environment
// variables, which take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file keep
// their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and the cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for _, rule := range c.Normalization.ApprovedRules {
		if !contains(executableRules, rule) {
			return fmt.Errorf("rule %q is approved but has no executor", rule)
		}
	}

	if len(c.Layout.Sheets) == 0 {
		return fmt.Errorf("layout declares no sheets")
	}
	if err := c.Layout.validate(); err != nil {
		return err
	}

	// Always JSON
	c.Logging.Format = DefaultLogFormat
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogsDir + "/plaudit.log"
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"plaudit.yaml",
		"configs/plaudit.yaml",
	}

	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: DefaultLogsDir + "/plaudit.log",
		},
		Inputs: InputsConfig{
			PnLWorkbook:          DefaultPnLWorkbook,
			FinanceRolesWorkbook: DefaultFinanceRolesWorkbook,
		},
		Output: OutputConfig{
			QCDir:       DefaultQCDir,
			AnalysisDir: DefaultAnalysisDir,
			MetricsFile: DefaultMetricsFile,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricsEnabled: true,
		},
		Analysis: AnalysisConfig{
			Tolerance:                 ReconciliationTolerance,
			MaterialityPct:            MaterialityThresholdPct,
			DepartmentFlagFloor:       DepartmentFlagFloor,
			DepartmentFlagLimit:       DepartmentFlagLimit,
			RecurringConcentrationPct: RecurringConcentrationPct,
			HeaderScanRows:            HeaderScanRows,
			MetadataMarkers:           append([]string(nil), DefaultMetadataMarkers...),
			BenchmarkFallbacks:        DefaultBenchmarkFallbacks(),
		},
		Normalization: NormalizationConfig{
			ApprovedRules: append([]string(nil), DefaultApprovedRules...),
			Renames:       DefaultRenames(),
		},
		Workers: DefaultWorkers,
		Layout:  DefaultLayout(),
	}
}
