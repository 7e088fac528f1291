package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"plaudit/internal/config"
	"plaudit/pkg/contracts"
)

// MeterName is the instrumentation scope of every tracer and meter.
const MeterName = "plaudit"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	TraceExporter  string // "stdout" or "none"
	EnableMetrics  bool
	// TraceOutput receives stdout spans; nil means os.Stdout.
	TraceOutput io.Writer
}

// OTelConfigFrom maps the telemetry section of the configuration.
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: contracts.Version,
		TraceExporter:  cfg.TraceExporter,
		EnableMetrics:  cfg.MetricsEnabled,
	}
}

// OTelProviders holds the OpenTelemetry providers of one run. Tracer and Meter
// are always usable; they are no-ops when the matching signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics. Providers are not installed
// globally; callers pass Tracer and Meter explicitly.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = &OTelConfig{ServiceName: config.AppName, ServiceVersion: contracts.Version, TraceExporter: "none"}
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.EnableMetrics {
		if err := initializeMetrics(cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

func initializeTracing(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.TraceExporter {
	case "", "none":
		return nil
	case "stdout":
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.TraceOutput != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.TraceOutput))
		}
		exporter, err := stdouttrace.New(opts...)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
}

// initializeMetrics backs the meter with a private Prometheus registry so the
// run's metrics can be dumped to a textfile at the end of the batch.
func initializeMetrics(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = registry
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	return nil
}

// WriteMetrics writes the collected metrics in Prometheus text format to path.
func (p *OTelProviders) WriteMetrics(path string) error {
	if p.Registry == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Shutdown flushes and shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// PipelineMetrics holds the run counters and histograms
type PipelineMetrics struct {
	SheetsIngested        metric.Int64Counter
	InvariantChecks       metric.Int64Counter
	ReconciliationEntries metric.Int64Counter
	FlagsEmitted          metric.Int64Counter
	StepExecutions        metric.Int64Counter
	StepDuration          metric.Float64Histogram
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	sheetsIngested, err := meter.Int64Counter(
		"plaudit_sheets_ingested",
		metric.WithDescription("Number of sheets read from input workbooks"),
	)
	if err != nil {
		return nil, err
	}

	invariantChecks, err := meter.Int64Counter(
		"plaudit_invariant_checks",
		metric.WithDescription("Normalization invariant checks by status"),
	)
	if err != nil {
		return nil, err
	}

	reconciliationEntries, err := meter.Int64Counter(
		"plaudit_reconciliation_entries",
		metric.WithDescription("Reconciliation entries by verdict"),
	)
	if err != nil {
		return nil, err
	}

	flagsEmitted, err := meter.Int64Counter(
		"plaudit_flags",
		metric.WithDescription("Flags emitted by materiality"),
	)
	if err != nil {
		return nil, err
	}

	stepExecutions, err := meter.Int64Counter(
		"plaudit_step_executions",
		metric.WithDescription("Pipeline step executions by status"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"plaudit_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		SheetsIngested:        sheetsIngested,
		InvariantChecks:       invariantChecks,
		ReconciliationEntries: reconciliationEntries,
		FlagsEmitted:          flagsEmitted,
		StepExecutions:        stepExecutions,
		StepDuration:          stepDuration,
	}, nil
}

// RecordStep records one step execution
func (m *PipelineMetrics) RecordStep(ctx context.Context, stepID string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.StepExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", stepID),
		attribute.String("status", status)))
	m.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("step", stepID)))
}

// CountSheets records sheets read from one source.
func (m *PipelineMetrics) CountSheets(ctx context.Context, source string, n int) {
	if m == nil {
		return
	}
	add(ctx, m.SheetsIngested, "source", source, n)
}

// CountChecks records invariant checks with one status.
func (m *PipelineMetrics) CountChecks(ctx context.Context, status string, n int) {
	if m == nil {
		return
	}
	add(ctx, m.InvariantChecks, "status", status, n)
}

// CountReconciliation records one reconciliation entry.
func (m *PipelineMetrics) CountReconciliation(ctx context.Context, verdict string) {
	if m == nil {
		return
	}
	add(ctx, m.ReconciliationEntries, "verdict", verdict, 1)
}

// CountFlag records one emitted flag.
func (m *PipelineMetrics) CountFlag(ctx context.Context, materiality string) {
	if m == nil {
		return
	}
	add(ctx, m.FlagsEmitted, "materiality", materiality, 1)
}

func add(ctx context.Context, counter metric.Int64Counter, key, value string, n int) {
	if n == 0 {
		return
	}
	counter.Add(ctx, int64(n), metric.WithAttributes(attribute.String(key, value)))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
