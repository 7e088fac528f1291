package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"plaudit/internal/config"
	"plaudit/internal/normalize"
	"plaudit/pkg/contracts/domain"
)

// QC artifact file names.
const (
	FileIngestionSummary  = "01_sheet_ingestion_summary.csv"
	FileColumnMapping     = "02_column_name_mapping.csv"
	FileNullRates         = "03_null_rate_summary.csv"
	FileDataTypes         = "04_data_type_summary.csv"
	FileRuleLog           = "07_normalization_rules.csv"
	FileDtypeChanges      = "08_post_normalization_dtype_summary.csv"
	FileSumChecks         = "09_pre_post_sum_reconciliation.csv"
	FileInvariantChecks   = "10_invariant_checks.csv"
	FileCrossValidation   = "11_pnl_cross_validation.csv"
	FileDiagnostics       = "12_diagnostics.csv"
	FileFlagRegister      = "02_flag_register.csv"
	FileAggregateWorkbook = "03_supporting_aggregates.xlsx"
)

// SheetResult is everything ingestion and normalization produced for one sheet.
// Table and Report are nil for sheets that were not normalized.
type SheetResult struct {
	Summary  domain.IngestionSummary
	Mappings []domain.ColumnMapping
	Table    *domain.TypedTable
	Report   *domain.InvariantReport
}

// QCResults is the input of WriteQC.
type QCResults struct {
	Sheets         []SheetResult
	Reconciliation []domain.ReconciliationEntry
	Diagnostics    []domain.Diagnostic
}

type artifact struct {
	name    string
	headers []string
	records [][]string
}

// WriteQC writes every QC artifact into the QC directory and returns the
// written paths in artifact order.
func (w *Writer) WriteQC(ctx context.Context, results QCResults) ([]string, error) {
	w.warnHighNullRates(ctx, results.Sheets)

	artifacts := []artifact{
		{FileIngestionSummary, ingestionHeaders, ingestionRecords(results.Sheets)},
		{FileColumnMapping, mappingHeaders, mappingRecords(results.Sheets)},
		{FileNullRates, nullRateHeaders, nullRateRecords(results.Sheets)},
		{FileDataTypes, dataTypeHeaders, dataTypeRecords(results.Sheets)},
		{FileRuleLog, ruleLogHeaders, ruleLogRecords(results.Sheets)},
		{FileDtypeChanges, dtypeHeaders, dtypeRecords(results.Sheets)},
		{FileSumChecks, sumCheckHeaders, sumCheckRecords(results.Sheets)},
		{FileInvariantChecks, invariantHeaders, invariantRecords(results.Sheets)},
		{FileCrossValidation, crossValidationHeaders, crossValidationRecords(results.Reconciliation)},
		{FileDiagnostics, diagnosticHeaders, diagnosticRecords(results.Diagnostics)},
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		p, err := w.WriteCSV(ctx, qcPrefix+a.name, WriteOptions{Headers: a.headers, Records: a.records})
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", a.name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (w *Writer) warnHighNullRates(ctx context.Context, sheets []SheetResult) {
	for _, s := range sheets {
		if s.Table == nil {
			continue
		}
		for _, r := range normalize.NullRates(s.Table) {
			if r.RatePct > config.NullRateWarnPct {
				w.logger.WarnContext(ctx, "high null rate",
					slog.String("sheet", r.Sheet),
					slog.String("column", r.Column),
					slog.Float64("null_rate_pct", r.RatePct))
			}
		}
	}
}

var ingestionHeaders = []string{
	"source", "sheet", "original_rows", "original_cols", "detected_header_row", "data_start_row",
	"rows_ingested", "rows_dropped", "drop_reason", "normalized_cols", "low_confidence_header",
}

func ingestionRecords(sheets []SheetResult) [][]string {
	out := make([][]string, 0, len(sheets))
	for _, s := range sheets {
		m := s.Summary
		out = append(out, []string{
			m.Source, m.Sheet, formatInt(m.OriginalRowCount), formatInt(m.OriginalColCount),
			formatInt(m.DetectedHeaderRow), formatInt(m.DataStartRow), formatInt(m.RowsIngested),
			formatInt(m.RowsDropped), m.DropReason, formatInt(m.NormalizedColCount),
			formatBool(m.LowConfidenceHeader),
		})
	}
	return out
}

var mappingHeaders = []string{"sheet", "position", "original_name", "normalized_name", "transformed"}

func mappingRecords(sheets []SheetResult) [][]string {
	var out [][]string
	for _, s := range sheets {
		for _, m := range s.Mappings {
			out = append(out, []string{
				s.Summary.Sheet, formatInt(m.Position), m.OriginalLabel, m.NormalizedName, formatBool(m.Transformed()),
			})
		}
	}
	return out
}

var nullRateHeaders = []string{"sheet", "column", "null_count", "total_rows", "null_rate_pct"}

func nullRateRecords(sheets []SheetResult) [][]string {
	var out [][]string
	for _, s := range sheets {
		if s.Table == nil {
			continue
		}
		for _, r := range normalize.NullRates(s.Table) {
			out = append(out, []string{
				r.Sheet, r.Column, formatInt(r.NullCount), formatInt(r.TotalRows), formatFloat(r.RatePct),
			})
		}
	}
	return out
}

var dataTypeHeaders = []string{"sheet", "column", "type", "sample_value"}

func dataTypeRecords(sheets []SheetResult) [][]string {
	var out [][]string
	for _, s := range sheets {
		if s.Table == nil {
			continue
		}
		for _, info := range normalize.TypeSummary(s.Table) {
			out = append(out, []string{info.Sheet, info.Column, string(info.Type), info.Sample})
		}
	}
	return out
}

var ruleLogHeaders = []string{"sheet", "rule", "status", "reason"}

func ruleLogRecords(sheets []SheetResult) [][]string {
	var out [][]string
	for _, s := range sheets {
		if s.Report == nil {
			continue
		}
		for _, r := range s.Report.AppliedRules {
			out = append(out, []string{s.Report.Sheet, r, "applied", ""})
		}
		for _, r := range s.Report.SkippedRules {
			out = append(out, []string{s.Report.Sheet, r.Rule, "skipped", r.Reason})
		}
	}
	return out
}

var dtypeHeaders = []string{"sheet", "column", "pre_dtype", "post_dtype", "changed"}

func dtypeRecords(sheets []SheetResult) [][]string {
	var out [][]string
	for _, s := range sheets {
		if s.Report == nil {
			continue
		}
		for _, d := range s.Report.DtypeChanges {
			out = append(out, []string{d.Sheet, d.Column, d.PreType, d.PostType, formatBool(d.Changed)})
		}
	}
	return out
}

var sumCheckHeaders = []string{"sheet", "column", "pre_sum", "post_sum", "difference", "tolerance", "status"}

func sumCheckRecords(sheets []SheetResult) [][]string {
	var out [][]string
	for _, s := range sheets {
		if s.Report == nil {
			continue
		}
		for _, c := range s.Report.SumChecks {
			out = append(out, []string{
				c.Sheet, c.Column, formatDecimal(c.PreSum), formatDecimal(c.PostSum),
				formatDecimal(c.Difference), formatDecimal(c.Tolerance), string(c.Status),
			})
		}
	}
	return out
}

var invariantHeaders = []string{"sheet", "rule", "check", "column", "pre", "post", "status", "detail"}

func invariantRecords(sheets []SheetResult) [][]string {
	var out [][]string
	for _, s := range sheets {
		if s.Report == nil {
			continue
		}
		for _, c := range s.Report.Checks {
			out = append(out, []string{c.Sheet, c.Rule, c.Check, c.Column, c.Pre, c.Post, string(c.Status), c.Detail})
		}
	}
	return out
}

var crossValidationHeaders = []string{
	"category", "summary_label", "pnl_summary_value", "computed_value", "difference", "tolerance", "status", "note",
}

func crossValidationRecords(entries []domain.ReconciliationEntry) [][]string {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, []string{
			e.CheckName, e.SummaryLabel, formatOptionalDecimal(e.ReferenceValue), formatDecimal(e.ComputedValue),
			formatOptionalDecimal(e.AbsoluteDifference), formatDecimal(e.Tolerance), string(e.Verdict), e.Note,
		})
	}
	return out
}

var diagnosticHeaders = []string{"type", "sheet", "column", "message"}

func diagnosticRecords(diags []domain.Diagnostic) [][]string {
	out := make([][]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, []string{string(d.Type), d.Sheet, d.Column, d.Message})
	}
	return out
}
