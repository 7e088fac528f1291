package operations_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"plaudit/internal/operations"
)

func TestOperationErrorMessage(t *testing.T) {
	err := operations.NewExecutionError("export", errors.New("permission denied"), true)
	assert.Equal(t, "[execution] export: Step execution failed: permission denied", err.Error())
	assert.True(t, operations.IsRetryable(err))
	assert.True(t, operations.IsRetryable(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, operations.IsRetryable(errors.New("plain")))

	fatal := operations.NewFatalError("read inputs", errors.New("pnl.xlsx not found"))
	assert.Equal(t, "[fatal] read inputs: pnl.xlsx not found", fatal.Error())
	assert.ErrorContains(t, errors.Unwrap(fatal), "pnl.xlsx")
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want operations.ErrorType
	}{
		{"nil", nil, ""},
		{"plain", errors.New("x"), operations.ErrorTypeExecution},
		{"validation", operations.NewValidationError("flags", "patterns missing"), operations.ErrorTypeValidation},
		{"dependency", operations.NewDependencyError("flags", "anomaly", "not run"), operations.ErrorTypeDependency},
		{"timeout", operations.NewTimeoutError("ingest", "5m0s"), operations.ErrorTypeTimeout},
		{"cancellation", operations.NewCancellationError("ingest"), operations.ErrorTypeCancellation},
		{"fatal", operations.NewFatalError("read inputs", nil), operations.ErrorTypeFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, operations.GetErrorType(tt.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, operations.WrapError(nil, "ingest", ""))

	wrapped := operations.WrapError(errors.New("boom"), "ingest", "")
	assert.Equal(t, operations.ErrorTypeExecution, wrapped.Type)
	assert.Equal(t, "ingest", wrapped.Step)
	assert.Equal(t, "[execution] ingest: Step execution failed: boom", wrapped.Error())

	fatal := operations.NewFatalError("read inputs", errors.New("missing"))
	kept := operations.WrapError(fatal, "ingest", "")
	assert.Equal(t, operations.ErrorTypeFatal, kept.Type)
	assert.Equal(t, "ingest", kept.Step)
}
