package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"plaudit/internal/infrastructure"
)

// Manager orchestrates operation execution
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *PipelineTracer
	logger   *slog.Logger
}

// NewManager creates a new operation manager with dependency injection
func NewManager(registry *Registry, config *Config, tracer *PipelineTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer, _ = NewPipelineTracer(nil)
	}
	return &Manager{
		registry: registry,
		config:   config,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
	}
}

// RegisterStep registers a Step with the operation
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Execute runs the pipeline. The response's State carries every step's output.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if req.ID == "" {
		req.ID = "operation-" + infrastructure.GenerateTraceID()
	}

	state := NewOperationState(req.ID)
	for key, value := range req.Inputs {
		state.SetContext(key, value)
	}

	var steps []Step
	if req.Step != "" {
		step, err := m.registry.Get(req.Step)
		if err != nil {
			m.logOperationError(ctx, req.ID, err)
			state.Fail(err)
			return m.createResponse(state), err
		}
		steps = []Step{step}
	} else {
		var err error
		steps, err = m.registry.GetDependencyOrder()
		if err != nil {
			err = fmt.Errorf("failed to get dependency order: %w", err)
			m.logOperationError(ctx, req.ID, err)
			state.Fail(err)
			return m.createResponse(state), err
		}
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID)
	m.logOperationStart(ctx, req.ID, len(steps))
	state.Start()

	err := m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel()
	default:
		m.logOperationError(ctx, req.ID, err)
		state.Fail(err)
	}

	m.tracer.RecordOperationCompletion(ctx, span, state.Duration(), state.Status)
	m.logOperationComplete(ctx, req.ID, state.Duration(), state.Status)
	return m.createResponse(state), err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		select {
		case <-ctx.Done():
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return NewCancellationError(step.ID())
		default:
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			m.logger.InfoContext(ctx, "stage_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Int("step_number", i+1),
				slog.Int("total_steps", len(steps)))
			continue
		}

		if err := m.executeStage(ctx, state, step); err != nil {
			m.logStageError(ctx, state.ID, step.ID(), err)
			m.skipDependentStages(state, steps, step.ID())
			if !m.config.ContinueOnError {
				return err
			}
		}
	}
	return nil
}

// executeStage executes a single Step with retry logic
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	m.logStageStart(ctx, state.ID, step.ID())
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError("Step state not found", nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Skip(fmt.Sprintf("Dependencies not met: %v", err))
		return err
	}

	if err := step.Validate(state); err != nil {
		stepState.Skip(fmt.Sprintf("Validation failed: %v", err))
		return NewValidationError(step.ID(), err.Error())
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stageCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	retryConfig := m.config.RetryConfig
	if retryConfig.MaxAttempts < 1 {
		retryConfig.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		stepState.Start()
		spanCtx, span := m.tracer.TraceStageExecution(stageCtx, state.ID, step.ID())
		startTime := time.Now()
		err := step.Execute(spanCtx, state)
		duration := time.Since(startTime)
		m.tracer.RecordStageCompletion(spanCtx, span, step.ID(), duration, err)

		if err == nil {
			m.logStageComplete(ctx, state.ID, step.ID(), duration)
			stepState.Complete()
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt >= retryConfig.MaxAttempts {
			stepState.Fail(err)
			return WrapError(err, step.ID(), "")
		}

		delay := m.calculateRetryDelay(attempt, retryConfig)
		m.logger.WarnContext(ctx, "stage_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", retryConfig.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-stageCtx.Done():
			if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
				timeoutErr := NewTimeoutError(step.ID(), timeout.String())
				stepState.Fail(timeoutErr)
				return timeoutErr
			}
			stepState.Fail(stageCtx.Err())
			return WrapError(stageCtx.Err(), step.ID(), "")
		}
	}

	stepState.Fail(lastErr)
	return WrapError(lastErr, step.ID(), "")
}

// skipDependentStages marks all steps that depend on the failed Step as skipped
func (m *Manager) skipDependentStages(state *OperationState, steps []Step, failedStageID string) {
	for _, step := range steps {
		for _, dep := range step.GetDependencies() {
			if dep != failedStageID {
				continue
			}
			stepState := state.GetStage(step.ID())
			if stepState != nil && stepState.GetStatus() == StepStatusPending {
				stepState.Skip(fmt.Sprintf("Dependency %s failed", failedStageID))
				m.skipDependentStages(state, steps, step.ID())
			}
			break
		}
	}
}

// checkDependencies verifies that all dependencies are satisfied. A dependency
// outside the current run must have left its outputs in the state.
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			continue
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}

// calculateRetryDelay calculates the delay before next retry
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// createResponse creates a operation response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.Status,
		Duration: state.Duration(),
		Steps:    state.Steps,
		State:    state,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}
