// Package exporter writes the pipeline's artifacts.
//
// The package contains three components:
//
// Writer: Core CSV writing with headers and an optional UTF-8 BOM for Excel
// compatibility. Relative paths resolve against the QC or analysis directory.
//
// QC artifacts: WriteQC writes the ingestion summary, column name mapping,
// null rates, data types, rule log, dtype changes, sum checks, invariant checks,
// P&L cross-validation and diagnostics as numbered CSV files.
//
// Analysis artifacts: WriteFlagRegister writes the flag register CSV and
// WriteAggregatesWorkbook writes the supporting aggregates, one sheet per table.
//
// Example usage:
//
//	w := exporter.NewWriter(cfg.GetPaths(), logger)
//	files, err := w.WriteQC(ctx, results)
//	path, err := w.WriteFlagRegister(ctx, flags)
//	path, err = w.WriteAggregatesWorkbook(ctx, set.Tables())
package exporter
