package operations_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaudit/internal/operations"
	"plaudit/pkg/contracts/domain"
)

func TestContextValue(t *testing.T) {
	state := operations.NewOperationState("op")
	state.SetContext(operations.ContextKeyFlags, []domain.Flag{{ID: "F-001"}})

	flags, err := operations.ContextValue[[]domain.Flag](state, operations.ContextKeyFlags)
	require.NoError(t, err)
	assert.Equal(t, "F-001", flags[0].ID)

	_, err = operations.ContextValue[[]domain.Signal](state, operations.ContextKeyFlags)
	assert.ErrorContains(t, err, "has type")

	_, err = operations.ContextValue[[]domain.Signal](state, operations.ContextKeySignals)
	assert.ErrorContains(t, err, "not set")
}

func TestOperationStateLifecycle(t *testing.T) {
	state := operations.NewOperationState("op")
	assert.Equal(t, operations.OperationStatusPending, state.Status)

	state.SetStage("A", operations.NewStepState("A", "step A"))
	state.Start()
	assert.Equal(t, operations.OperationStatusRunning, state.Status)
	assert.False(t, state.HasFailures())

	state.GetStage("A").Fail(errors.New("boom"))
	assert.True(t, state.HasFailures())

	state.Fail(errors.New("boom"))
	assert.Equal(t, operations.OperationStatusFailed, state.Status)
	assert.GreaterOrEqual(t, state.Duration().Nanoseconds(), int64(0))
}

func TestDiagnosticsAreCopied(t *testing.T) {
	state := operations.NewOperationState("op")
	state.AddDiagnostics(
		domain.Diagnostic{Type: "LOOKUP_FAILURE", Message: "benchmark missing"},
		domain.Diagnostic{Type: "INVARIANT_VIOLATION", Sheet: "Empl.", Message: "sum mismatch"},
	)

	diags := state.GetDiagnostics()
	require.Len(t, diags, 2)
	diags[0].Message = "changed"
	assert.Equal(t, "benchmark missing", state.GetDiagnostics()[0].Message)
}

func TestStepStateTransitions(t *testing.T) {
	s := operations.NewStepState("ingest", operations.StepNameIngest)
	assert.Equal(t, operations.StepStatusPending, s.GetStatus())
	assert.Zero(t, s.Duration())

	s.Start()
	assert.Equal(t, operations.StepStatusActive, s.GetStatus())
	s.SetMetadata("sheets", 9)
	s.Complete()
	assert.Equal(t, operations.StepStatusCompleted, s.GetStatus())
	assert.Equal(t, 9, s.Metadata["sheets"])

	s.Skip("Dependency ingest failed")
	assert.Equal(t, operations.StepStatusSkipped, s.GetStatus())
	assert.Equal(t, "Dependency ingest failed", s.Message)
}
