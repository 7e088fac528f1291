// Package operations runs the audit pipeline as an ordered set of steps.
//
// A Manager executes registered steps in dependency order. Each step reads the
// outputs of earlier steps from the OperationState context and writes its own
// back under the ContextKey constants. Steps whose errors are marked retryable
// are retried with exponential backoff; a failed step skips everything that
// depends on it.
//
// The audit steps are, in order:
//
//	IngestStep     workbooks to raw grids
//	NormalizeStep  header inference, column naming and typed tables
//	ReconcileStep  P&L overview and summary reconciliation
//	AnomalyStep    negative-value profiles, patterns and benchmark signals
//	FlagStep       the flag register
//	ExportStep     QC CSVs, the flag register CSV and the aggregates workbook
//
// Example usage:
//
//	manager := operations.NewManager(nil, operations.NewConfig(), tracer, logger)
//	manager.RegisterStep(operations.NewIngestStep(sources, layout, metrics, logger))
//	...
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
package operations
