package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"plaudit/internal/infrastructure"
)

// PipelineTracer provides OpenTelemetry instrumentation for pipeline runs
type PipelineTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewPipelineTracer creates a tracer backed by the run's providers. A nil
// providers value yields a no-op tracer without metrics.
func NewPipelineTracer(providers *infrastructure.OTelProviders) (*PipelineTracer, error) {
	if providers == nil {
		return &PipelineTracer{tracer: tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName)}, nil
	}
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	return &PipelineTracer{tracer: providers.Tracer, metrics: metrics}, nil
}

// Metrics returns the run counters; nil when the tracer has none.
func (pt *PipelineTracer) Metrics() *infrastructure.PipelineMetrics {
	if pt == nil {
		return nil
	}
	return pt.metrics
}

// TraceOperationExecution creates a span for the entire pipeline run
func (pt *PipelineTracer) TraceOperationExecution(ctx context.Context, operationID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("trace_id", infrastructure.GetTraceID(ctx)),
		),
	)
}

// TraceStageExecution creates a span for one step
func (pt *PipelineTracer) TraceStageExecution(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStageCompletion ends a step span and records its duration and outcome
func (pt *PipelineTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	pt.metrics.RecordStep(ctx, stepID, duration, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "step completed")
	}
	span.End()
}

// RecordOperationCompletion ends the run span
func (pt *PipelineTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, duration time.Duration, status OperationStatusValue) {
	span.SetAttributes(
		attribute.String("operation.status", string(status)),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)
	if status == OperationStatusCompleted {
		span.SetStatus(codes.Ok, "pipeline completed")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("pipeline finished with status %s", status))
	}
	span.End()
}
