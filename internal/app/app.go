package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"plaudit/internal/anomaly"
	"plaudit/internal/config"
	"plaudit/internal/exporter"
	"plaudit/internal/flags"
	"plaudit/internal/infrastructure"
	"plaudit/internal/normalize"
	"plaudit/internal/operations"
	"plaudit/internal/reconcile"
	"plaudit/internal/schema"
	"plaudit/internal/validation"
	"plaudit/pkg/contracts"
	"plaudit/pkg/contracts/domain"
)

// shutdownTimeout bounds the final flush of telemetry providers.
const shutdownTimeout = 10 * time.Second

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Manager       *operations.Manager
}

// NewApplication wires the audit pipeline from a loaded configuration. A nil
// logger initializes the global logger from the logging section.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths := cfg.GetPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	validator := validation.NewFileValidator(logger)
	for _, dir := range []string{paths.QCDir, paths.AnalysisDir} {
		if err := validator.ValidateOutputDirectory(dir); err != nil {
			return nil, err
		}
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	tracer, err := operations.NewPipelineTracer(otelProviders)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline tracer: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Manager:       operations.NewManager(nil, operations.NewConfig(), tracer, logger),
	}

	if err := app.registerSteps(tracer.Metrics()); err != nil {
		return nil, fmt.Errorf("failed to register pipeline steps: %w", err)
	}
	return app, nil
}

// registerSteps builds the six audit steps from the configuration.
func (a *Application) registerSteps(metrics *infrastructure.PipelineMetrics) error {
	cfg, logger, layout := a.Config, a.Logger, a.Config.Layout
	classifyOpts, signalOpts := anomaly.OptionsFrom(cfg.Analysis, logger)

	steps := []operations.Step{
		operations.NewIngestStep(cfg.Inputs.Sources(), layout, metrics, logger),
		operations.NewNormalizeStep(layout, schema.OptionsFrom(cfg.Analysis),
			normalize.NewNormalizer(normalize.OptionsFrom(cfg, logger)), cfg.Workers, metrics, logger),
		operations.NewReconcileStep(layout, reconcile.NewReconciler(reconcile.OptionsFrom(cfg, logger)), metrics),
		operations.NewAnomalyStep(layout, classifyOpts, signalOpts),
		operations.NewFlagStep(flags.OptionsFrom(cfg.Analysis, logger), metrics),
		operations.NewExportStep(layout, exporter.NewWriter(a.Paths, logger)),
	}
	for _, step := range steps {
		if err := a.Manager.RegisterStep(step); err != nil {
			return err
		}
	}
	return a.Manager.GetRegistry().ValidateDependencies()
}

// Run executes the pipeline once and writes the run metrics. The response is
// returned even when the run fails.
func (a *Application) Run(ctx context.Context) (*operations.OperationResponse, error) {
	ctx = infrastructure.WithTraceID(ctx, infrastructure.GenerateTraceID())
	a.Logger.InfoContext(ctx, "audit run starting",
		slog.String("pnl_workbook", a.Config.Inputs.PnLWorkbook),
		slog.Int("workers", a.Config.Workers))

	resp, err := a.Manager.Execute(ctx, operations.OperationRequest{})
	if resp != nil {
		a.logSummary(ctx, resp)
	}

	if werr := a.OTelProviders.WriteMetrics(a.Paths.MetricsFile); werr != nil {
		a.Logger.WarnContext(ctx, "failed to write metrics", slog.String("error", werr.Error()))
	}
	return resp, err
}

// logSummary logs the counts a reviewer looks at first.
func (a *Application) logSummary(ctx context.Context, resp *operations.OperationResponse) {
	attrs := []any{
		slog.String("status", string(resp.Status)),
		slog.Duration("duration", resp.Duration),
		slog.Int("diagnostics", len(resp.State.GetDiagnostics())),
		slog.Bool("step_failures", resp.State.HasFailures()),
	}
	if register, err := operations.ContextValue[[]domain.Flag](resp.State, operations.ContextKeyFlags); err == nil {
		attrs = append(attrs, slog.Int("flags", len(register)))
	}
	a.Logger.InfoContext(ctx, "audit run finished", attrs...)
}

// Shutdown flushes telemetry.
func (a *Application) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		return err
	}
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}
