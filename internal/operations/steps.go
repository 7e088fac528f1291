package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"plaudit/internal/aggregates"
	"plaudit/internal/anomaly"
	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/internal/exporter"
	"plaudit/internal/flags"
	"plaudit/internal/infrastructure"
	"plaudit/internal/normalize"
	"plaudit/internal/reconcile"
	"plaudit/internal/schema"
	"plaudit/internal/workbook"
	"plaudit/pkg/contracts/domain"
)

// IngestStep reads every configured workbook into raw grids.
type IngestStep struct {
	BaseStage
	sources []config.Source
	layout  config.Layout
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewIngestStep creates the ingestion step.
func NewIngestStep(sources []config.Source, layout config.Layout, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *IngestStep {
	return &IngestStep{
		BaseStage: NewBaseStage(StepIDIngest, StepNameIngest, nil),
		sources:   sources,
		layout:    layout,
		metrics:   metrics,
		logger:    infrastructure.WithComponent(logger, StepIDIngest),
	}
}

// Validate requires at least one source.
func (s *IngestStep) Validate(state *OperationState) error {
	if len(s.sources) == 0 {
		return errors.New("no input workbooks configured")
	}
	return nil
}

// Execute reads the workbooks. Missing inputs are fatal.
func (s *IngestStep) Execute(ctx context.Context, state *OperationState) error {
	grids, diags, err := workbook.ReadAll(ctx, s.sources, s.layout, s.logger)
	if err != nil {
		if apperrors.IsFatal(err) {
			return NewFatalError("read inputs", err)
		}
		return NewExecutionError(s.ID(), err, false)
	}

	perSource := make(map[string]int)
	for _, g := range grids {
		perSource[g.Source]++
	}
	for source, n := range perSource {
		s.metrics.CountSheets(ctx, source, n)
	}

	state.AddDiagnostics(diags...)
	state.SetContext(ContextKeyGrids, grids)
	state.GetStage(s.ID()).SetMetadata("sheets", len(grids))
	return nil
}

// NormalizeStep runs schema inference and normalization for every sheet, one
// sheet per worker.
type NormalizeStep struct {
	BaseStage
	layout     config.Layout
	schemaOpts schema.Options
	normalizer *normalize.Normalizer
	workers    int
	metrics    *infrastructure.PipelineMetrics
	logger     *slog.Logger
}

// NewNormalizeStep creates the normalization step.
func NewNormalizeStep(layout config.Layout, schemaOpts schema.Options, normalizer *normalize.Normalizer,
	workers int, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *NormalizeStep {
	if workers < 1 {
		workers = 1
	}
	return &NormalizeStep{
		BaseStage:  NewBaseStage(StepIDNormalize, StepNameNormalize, []string{StepIDIngest}),
		layout:     layout,
		schemaOpts: schemaOpts,
		normalizer: normalizer,
		workers:    workers,
		metrics:    metrics,
		logger:     infrastructure.WithComponent(logger, StepIDNormalize),
	}
}

// Validate requires the ingested grids.
func (s *NormalizeStep) Validate(state *OperationState) error {
	_, err := ContextValue[[]domain.RawGrid](state, ContextKeyGrids)
	return err
}

// Execute normalizes the sheets concurrently. Results keep the ingestion order.
func (s *NormalizeStep) Execute(ctx context.Context, state *OperationState) error {
	grids, err := ContextValue[[]domain.RawGrid](state, ContextKeyGrids)
	if err != nil {
		return NewDependencyError(s.ID(), StepIDIngest, err.Error())
	}

	results := make([]exporter.SheetResult, len(grids))
	diags := make([][]domain.Diagnostic, len(grids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, grid := range grids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], diags[i] = s.normalizeSheet(gctx, grid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	tables := make(map[string]*domain.TypedTable, len(results))
	summaries := make([]domain.IngestionSummary, 0, len(results))
	for i, r := range results {
		summaries = append(summaries, r.Summary)
		state.AddDiagnostics(diags[i]...)
		if r.Table == nil {
			continue
		}
		tables[r.Table.SheetID] = r.Table
		for status, n := range r.Report.CountByStatus() {
			s.metrics.CountChecks(ctx, string(status), n)
		}
	}

	accounting := normalize.AccountRows(summaries)
	if accounting.Reconciled {
		s.logger.InfoContext(ctx, "row accounting reconciled",
			slog.Int("ingested", accounting.TotalIngested),
			slog.Int("original", accounting.TotalOriginal))
	} else {
		msg := fmt.Sprintf("rows ingested %d, expected %d", accounting.TotalIngested, accounting.Expected)
		s.logger.WarnContext(ctx, "row accounting mismatch", slog.String("detail", msg))
		state.AddDiagnostics(apperrors.NewInvariantViolation("", "", msg).Diagnostic())
	}

	state.SetContext(ContextKeySheets, results)
	state.SetContext(ContextKeyTables, tables)
	state.GetStage(s.ID()).SetMetadata("tables", len(tables))
	return nil
}

// normalizeSheet infers the schema and normalizes one grid. Empty sheets are
// summarized but produce no table.
func (s *NormalizeStep) normalizeSheet(ctx context.Context, grid domain.RawGrid) (exporter.SheetResult, []domain.Diagnostic) {
	if grid.RowCount() == 0 {
		s.logger.WarnContext(ctx, "empty sheet skipped", slog.String("sheet", grid.Sheet))
		return exporter.SheetResult{Summary: normalize.Summarize(grid, domain.HeaderPlacement{SheetID: grid.Sheet}, nil)}, nil
	}

	var spec *config.SheetSpec
	if sheetSpec, ok := s.layout.Sheet(grid.Sheet); ok {
		spec = &sheetSpec
	}

	placement, mappings, diags := schema.Infer(grid, spec, s.schemaOpts)
	table, report := s.normalizer.Normalize(ctx, grid, placement, mappings, spec)
	diags = append(diags, report.Diagnostics...)

	return exporter.SheetResult{
		Summary:  normalize.Summarize(grid, placement, mappings),
		Mappings: mappings,
		Table:    table,
		Report:   report,
	}, diags
}

// ReconcileStep builds the P&L overview and checks detail aggregates against
// the summary sheet.
type ReconcileStep struct {
	BaseStage
	layout     config.Layout
	reconciler *reconcile.Reconciler
	metrics    *infrastructure.PipelineMetrics
}

// NewReconcileStep creates the reconciliation step.
func NewReconcileStep(layout config.Layout, reconciler *reconcile.Reconciler, metrics *infrastructure.PipelineMetrics) *ReconcileStep {
	return &ReconcileStep{
		BaseStage:  NewBaseStage(StepIDReconcile, StepNameReconcile, []string{StepIDNormalize}),
		layout:     layout,
		reconciler: reconciler,
		metrics:    metrics,
	}
}

// Validate requires the typed tables.
func (s *ReconcileStep) Validate(state *OperationState) error {
	_, err := ContextValue[map[string]*domain.TypedTable](state, ContextKeyTables)
	return err
}

// Execute records the overview and one entry per configured check.
func (s *ReconcileStep) Execute(ctx context.Context, state *OperationState) error {
	tables, err := ContextValue[map[string]*domain.TypedTable](state, ContextKeyTables)
	if err != nil {
		return NewDependencyError(s.ID(), StepIDNormalize, err.Error())
	}

	var summary *domain.TypedTable
	if spec, ok := s.layout.ByRole(config.RoleSummary); ok {
		summary = tables[spec.Name]
	}

	overview := reconcile.BuildOverview(tables, s.layout)
	entries := s.reconciler.Reconcile(ctx, summary, tables, s.layout.Checks)
	state.AddDiagnostics(reconcile.Diagnostics(entries)...)

	for _, e := range entries {
		s.metrics.CountReconciliation(ctx, string(e.Verdict))
	}

	state.SetContext(ContextKeyOverview, overview)
	state.SetContext(ContextKeyReconciliation, entries)
	state.GetStage(s.ID()).SetMetadata("entries", len(entries))
	return nil
}

// AnomalyStep profiles negative values, classifies them and detects benchmark
// signals.
type AnomalyStep struct {
	BaseStage
	layout       config.Layout
	classifyOpts anomaly.ClassifyOptions
	signalOpts   anomaly.SignalOptions
}

// NewAnomalyStep creates the anomaly step.
func NewAnomalyStep(layout config.Layout, classifyOpts anomaly.ClassifyOptions, signalOpts anomaly.SignalOptions) *AnomalyStep {
	return &AnomalyStep{
		BaseStage:    NewBaseStage(StepIDAnomaly, StepNameAnomaly, []string{StepIDReconcile}),
		layout:       layout,
		classifyOpts: classifyOpts,
		signalOpts:   signalOpts,
	}
}

// Validate requires the tables and the overview.
func (s *AnomalyStep) Validate(state *OperationState) error {
	if _, err := ContextValue[map[string]*domain.TypedTable](state, ContextKeyTables); err != nil {
		return err
	}
	_, err := ContextValue[domain.PnLOverview](state, ContextKeyOverview)
	return err
}

// Execute profiles the layout's detail sheets in layout order.
func (s *AnomalyStep) Execute(ctx context.Context, state *OperationState) error {
	tables, err := ContextValue[map[string]*domain.TypedTable](state, ContextKeyTables)
	if err != nil {
		return NewDependencyError(s.ID(), StepIDNormalize, err.Error())
	}
	overview, err := ContextValue[domain.PnLOverview](state, ContextKeyOverview)
	if err != nil {
		return NewDependencyError(s.ID(), StepIDReconcile, err.Error())
	}

	var profiles []domain.TableProfile
	var patterns []domain.NegativePattern
	for _, spec := range s.layout.Sheets {
		t, ok := tables[spec.Name]
		if !ok || !spec.Profiled() {
			continue
		}
		p := anomaly.ProfileTable(t, spec)
		profiles = append(profiles, p)
		if pattern, ok := anomaly.Classify(p, s.classifyOpts); ok {
			patterns = append(patterns, pattern)
		}
	}

	var benchmarks anomaly.Benchmarks
	if spec, ok := s.layout.ByRole(config.RoleBenchmarks); ok {
		var diags []domain.Diagnostic
		benchmarks, diags = anomaly.LoadBenchmarks(tables[spec.Name], spec)
		state.AddDiagnostics(diags...)
	}

	signals, diags := anomaly.DetectSignals(ctx, tables, s.layout, overview, benchmarks, s.signalOpts)
	state.AddDiagnostics(diags...)

	state.SetContext(ContextKeyProfiles, profiles)
	state.SetContext(ContextKeyPatterns, patterns)
	state.SetContext(ContextKeyBenchmarks, benchmarks)
	state.SetContext(ContextKeySignals, signals)
	stepState := state.GetStage(s.ID())
	stepState.SetMetadata("patterns", len(patterns))
	stepState.SetMetadata("signals", len(signals))
	stepState.SetMetadata("benchmarks", benchmarks.Len())
	return nil
}

// FlagStep turns patterns and signals into the flag register.
type FlagStep struct {
	BaseStage
	opts    flags.Options
	metrics *infrastructure.PipelineMetrics
}

// NewFlagStep creates the flag step.
func NewFlagStep(opts flags.Options, metrics *infrastructure.PipelineMetrics) *FlagStep {
	return &FlagStep{
		BaseStage: NewBaseStage(StepIDFlags, StepNameFlags, []string{StepIDAnomaly}),
		opts:      opts,
		metrics:   metrics,
	}
}

// Validate requires the patterns and signals.
func (s *FlagStep) Validate(state *OperationState) error {
	if _, err := ContextValue[[]domain.NegativePattern](state, ContextKeyPatterns); err != nil {
		return err
	}
	_, err := ContextValue[[]domain.Signal](state, ContextKeySignals)
	return err
}

// Execute generates the register.
func (s *FlagStep) Execute(ctx context.Context, state *OperationState) error {
	patterns, err := ContextValue[[]domain.NegativePattern](state, ContextKeyPatterns)
	if err != nil {
		return NewDependencyError(s.ID(), StepIDAnomaly, err.Error())
	}
	signals, err := ContextValue[[]domain.Signal](state, ContextKeySignals)
	if err != nil {
		return NewDependencyError(s.ID(), StepIDAnomaly, err.Error())
	}

	register, err := flags.Generate(patterns, signals, s.opts)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	for _, f := range register {
		s.metrics.CountFlag(ctx, string(f.Materiality))
	}
	state.SetContext(ContextKeyFlags, register)
	state.GetStage(s.ID()).SetMetadata("flags", len(register))
	return nil
}

// ExportStep writes the QC artifacts, the flag register and the aggregates
// workbook.
type ExportStep struct {
	BaseStage
	layout config.Layout
	writer *exporter.Writer
}

// NewExportStep creates the export step.
func NewExportStep(layout config.Layout, writer *exporter.Writer) *ExportStep {
	return &ExportStep{
		BaseStage: NewBaseStage(StepIDExport, StepNameExport, []string{StepIDFlags}),
		layout:    layout,
		writer:    writer,
	}
}

// Validate requires the flag register.
func (s *ExportStep) Validate(state *OperationState) error {
	_, err := ContextValue[[]domain.Flag](state, ContextKeyFlags)
	return err
}

// Execute writes every artifact. Write failures are retried.
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	sheets, _ := ContextValue[[]exporter.SheetResult](state, ContextKeySheets)
	tables, _ := ContextValue[map[string]*domain.TypedTable](state, ContextKeyTables)
	entries, _ := ContextValue[[]domain.ReconciliationEntry](state, ContextKeyReconciliation)
	overview, _ := ContextValue[domain.PnLOverview](state, ContextKeyOverview)
	profiles, _ := ContextValue[[]domain.TableProfile](state, ContextKeyProfiles)
	benchmarks, _ := ContextValue[anomaly.Benchmarks](state, ContextKeyBenchmarks)
	register, err := ContextValue[[]domain.Flag](state, ContextKeyFlags)
	if err != nil {
		return NewDependencyError(s.ID(), StepIDFlags, err.Error())
	}

	artifacts, err := s.writer.WriteQC(ctx, exporter.QCResults{
		Sheets:         sheets,
		Reconciliation: entries,
		Diagnostics:    state.GetDiagnostics(),
	})
	if err != nil {
		return NewExecutionError(s.ID(), err, true)
	}

	path, err := s.writer.WriteFlagRegister(ctx, register)
	if err != nil {
		return NewExecutionError(s.ID(), err, true)
	}
	artifacts = append(artifacts, path)

	set := aggregates.Build(tables, s.layout, overview, profiles, benchmarks.All())
	path, err = s.writer.WriteAggregatesWorkbook(ctx, set.Tables())
	if err != nil {
		return NewExecutionError(s.ID(), err, true)
	}
	artifacts = append(artifacts, path)

	state.SetContext(ContextKeyArtifacts, artifacts)
	state.GetStage(s.ID()).SetMetadata("artifacts", len(artifacts))
	return nil
}
