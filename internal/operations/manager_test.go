package operations_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaudit/internal/operations"
	"plaudit/internal/operations/testutil"
)

func newManager(t *testing.T, cfg *operations.Config, steps ...operations.Step) (*operations.Manager, *testutil.MockSlogHandler) {
	t.Helper()
	logger, handler := testutil.CreateTestSlogLogger()
	if cfg == nil {
		cfg = testutil.CreateTestConfig()
	}
	m := operations.NewManager(nil, cfg, nil, logger)
	for _, s := range steps {
		require.NoError(t, m.RegisterStep(s))
	}
	return m, handler
}

func executed(t *testing.T, resp *operations.OperationResponse) []string {
	t.Helper()
	ids, err := operations.ContextValue[[]string](resp.State, "executed")
	require.NoError(t, err)
	return ids
}

func TestExecuteRunsInDependencyOrder(t *testing.T) {
	m, handler := newManager(t, nil, testutil.CreateDiamondStages()...)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.True(t, strings.HasPrefix(resp.ID, "operation-"))
	assert.Equal(t, []string{"A", "B", "C", "D"}, executed(t, resp))
	for _, id := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, operations.StepStatusCompleted, resp.Steps[id].GetStatus(), id)
	}
	assert.True(t, handler.HasMessage("operation_start"))
	assert.True(t, handler.HasMessage("operation_complete"))
}

func TestExecuteFailureSkipsDependents(t *testing.T) {
	m, _ := newManager(t, nil,
		testutil.CreateSuccessfulStage("A", "step A"),
		testutil.CreateFailingStage("B", "step B", errors.New("disk full"), "A"),
		testutil.CreateSuccessfulStage("C", "step C", "B"),
		testutil.CreateSuccessfulStage("D", "step D", "C"),
	)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{ID: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, operations.ErrorTypeExecution, operations.GetErrorType(err))

	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, operations.StepStatusCompleted, resp.Steps["A"].GetStatus())
	assert.Equal(t, operations.StepStatusFailed, resp.Steps["B"].GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["C"].GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["D"].GetStatus())
	assert.Equal(t, []string{"A"}, executed(t, resp))
}

func TestExecuteContinueOnError(t *testing.T) {
	cfg := testutil.CreateTestConfig()
	cfg.ContinueOnError = true
	m, _ := newManager(t, cfg,
		testutil.CreateFailingStage("A", "step A", nil),
		testutil.CreateSuccessfulStage("B", "step B", "A"),
		testutil.CreateSuccessfulStage("E", "step E"),
	)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["B"].GetStatus())
	assert.Equal(t, []string{"E"}, executed(t, resp))
	assert.True(t, resp.State.HasFailures())
}

func TestExecuteRetriesRetryableErrors(t *testing.T) {
	step := testutil.CreateRetryableStage("A", "step A", 2)
	m, handler := newManager(t, nil, step)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.Equal(t, 3, step.GetExecuteCalls())
	assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 2)
}

func TestExecuteRetriesExhausted(t *testing.T) {
	step := testutil.CreateRetryableStage("A", "step A", 10)
	m, _ := newManager(t, nil, step)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, step.GetExecuteCalls())
	assert.Equal(t, operations.StepStatusFailed, resp.Steps["A"].GetStatus())
	assert.Contains(t, err.Error(), "temporary failure")
}

func TestExecuteNonRetryableRunsOnce(t *testing.T) {
	step := testutil.NewStageBuilder("A", "step A").
		WithExecute(func(ctx context.Context, state *operations.OperationState) error {
			return operations.NewExecutionError("A", errors.New("bad input"), false)
		}).Build()
	m, _ := newManager(t, nil, step)

	_, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, step.GetExecuteCalls())
}

func TestExecuteValidationFailure(t *testing.T) {
	step := testutil.CreateValidationFailingStage("A", "step A", errors.New("grids missing"))
	m, _ := newManager(t, nil, step)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.Contains(t, err.Error(), "grids missing")
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["A"].GetStatus())
	assert.Equal(t, 0, step.GetExecuteCalls())
}

func TestExecuteSingleStep(t *testing.T) {
	m, _ := newManager(t, nil, testutil.CreateDiamondStages()...)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{
		Step:   "B",
		Inputs: map[string]interface{}{"executed": []string{"seed"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"seed", "B"}, executed(t, resp))
	assert.Len(t, resp.Steps, 1)
}

func TestExecuteUnknownStep(t *testing.T) {
	m, _ := newManager(t, nil, testutil.CreateSuccessfulStage("A", "step A"))

	resp, err := m.Execute(context.Background(), operations.OperationRequest{Step: "missing"})
	require.Error(t, err)
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
}

func TestExecuteCancelled(t *testing.T) {
	step := testutil.CreateSuccessfulStage("A", "step A")
	m, _ := newManager(t, nil, step)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := m.Execute(ctx, operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusCancelled, resp.Status)
	assert.Equal(t, 0, step.GetExecuteCalls())
}

func TestAnalysisStepsHaveNoDeadline(t *testing.T) {
	deadlines := make(map[string]bool)
	record := func(id string, deps ...string) *testutil.MockStage {
		return &testutil.MockStage{
			IDValue:           id,
			NameValue:         id,
			DependenciesValue: deps,
			ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
				_, ok := ctx.Deadline()
				deadlines[id] = ok
				return nil
			},
		}
	}
	m, _ := newManager(t, operations.NewConfig(),
		record(operations.StepIDNormalize),
		record(operations.StepIDExport, operations.StepIDNormalize),
	)

	_, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	assert.False(t, deadlines[operations.StepIDNormalize])
	assert.True(t, deadlines[operations.StepIDExport])
}

func TestGetStageTimeout(t *testing.T) {
	cfg := operations.NewConfig()
	assert.Equal(t, operations.DefaultExportTimeout, cfg.GetStageTimeout(operations.StepIDExport))
	for _, id := range []string{operations.StepIDIngest, operations.StepIDNormalize, operations.StepIDReconcile} {
		assert.Zero(t, cfg.GetStageTimeout(id), id)
	}
}
