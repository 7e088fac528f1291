package operations

import (
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Step-specific timeouts. Steps without an entry have no deadline.
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// Whether to continue on Step failures
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		StageTimeouts: map[string]time.Duration{
			StepIDExport: DefaultExportTimeout,
		},
		RetryConfig:     NewRetryConfig(),
		ContinueOnError: false,
	}
}

// GetStageTimeout returns the timeout for a specific Step, or 0 when the step
// has none.
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	return c.StageTimeouts[stageID]
}
