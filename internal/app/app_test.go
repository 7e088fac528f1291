package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaudit/internal/config"
	"plaudit/internal/exporter"
	"plaudit/internal/operations"
	"plaudit/internal/operations/testutil"
	"plaudit/internal/schema"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	pnl := filepath.Join(dir, "pnl.xlsx")
	require.NoError(t, testutil.WriteWorkbook(pnl, testutil.AuditGrids()))

	cfg := config.Default()
	cfg.Inputs = config.InputsConfig{PnLWorkbook: pnl}
	cfg.Output = config.OutputConfig{
		QCDir:       filepath.Join(dir, "qc"),
		AnalysisDir: filepath.Join(dir, "analysis"),
		MetricsFile: filepath.Join(dir, "metrics", "run.prom"),
	}
	cfg.Layout = testutil.AuditLayout()
	cfg.Logging.FilePath = ""
	require.NoError(t, cfg.Validate())
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewApplicationRequiresConfig(t *testing.T) {
	_, err := NewApplication(nil, discardLogger())
	assert.Error(t, err)
}

func stepIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestApplicationRun(t *testing.T) {
	cfg := testConfig(t)
	application, err := NewApplication(cfg, discardLogger())
	require.NoError(t, err)
	steps, err := application.Manager.GetRegistry().GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"ingest", "normalize", "reconcile", "anomaly", "flags", "export"}, stepIDs(steps))
	assert.DirExists(t, cfg.Output.QCDir)

	ctx := context.Background()
	resp, err := application.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)

	assert.FileExists(t, filepath.Join(cfg.Output.QCDir, exporter.FileIngestionSummary))
	assert.FileExists(t, filepath.Join(cfg.Output.AnalysisDir, exporter.FileFlagRegister))

	metrics, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "plaudit_sheets_ingested_total")
	assert.Contains(t, string(metrics), "plaudit_step_executions_total")

	require.NoError(t, application.Shutdown(ctx))
}

func TestApplicationRunMissingWorkbook(t *testing.T) {
	cfg := testConfig(t)
	cfg.Inputs.PnLWorkbook = filepath.Join(t.TempDir(), "absent.xlsx")

	application, err := NewApplication(cfg, discardLogger())
	require.NoError(t, err)

	resp, err := application.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeFatal, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.NoFileExists(t, filepath.Join(cfg.Output.AnalysisDir, exporter.FileFlagRegister))
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pnl.xlsx")
	require.NoError(t, testutil.WriteWorkbook(path, testutil.AuditGrids()))

	sheets, err := Inspect(context.Background(), path, testutil.AuditLayout(), schema.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, sheets, 3)

	revenue := sheets[1]
	assert.Equal(t, "RecurringRevenue", revenue.Sheet)
	assert.Equal(t, 1, revenue.Placement.HeaderRowIndex)
	assert.True(t, revenue.Placement.Configured)
	require.Len(t, revenue.Mappings, 3)
	assert.Equal(t, "Customer Name", revenue.Mappings[1].OriginalLabel)
	assert.Equal(t, "customer_name", revenue.Mappings[1].NormalizedName)

	_, err = Inspect(context.Background(), filepath.Join(t.TempDir(), "absent.xlsx"), config.Layout{}, schema.DefaultOptions())
	assert.Error(t, err)
}
