package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeOTelMetricsTextfile(t *testing.T) {
	var logs bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "plaudit-test",
		ServiceVersion: "test",
		TraceExporter:  "none",
		EnableMetrics:  true,
	}, NewLogger("info", &logs))
	require.NoError(t, err)
	require.NotNil(t, providers.Registry)

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.CountSheets(ctx, "pnl", 8)
	metrics.CountFlag(ctx, "High")
	metrics.CountFlag(ctx, "High")
	metrics.RecordStep(ctx, "normalize", 150*time.Millisecond, nil)
	metrics.RecordStep(ctx, "export", time.Millisecond, errors.New("disk full"))

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, providers.WriteMetrics(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "plaudit_sheets_ingested_total")
	assert.Contains(t, text, `source="pnl"`)
	assert.Contains(t, text, "plaudit_flags_total")
	assert.Contains(t, text, `status="failure"`)
	assert.Contains(t, text, "plaudit_step_duration_seconds")

	require.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTelStdoutTracing(t *testing.T) {
	var spans bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   "plaudit-test",
		TraceExporter: "stdout",
		TraceOutput:   &spans,
	}, NewLogger("error", &bytes.Buffer{}))
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "pipeline.test")
	RecordError(ctx, errors.New("sheet missing"))
	span.End()

	assert.Contains(t, spans.String(), "pipeline.test")
	assert.Contains(t, spans.String(), "sheet missing")
	assert.NoError(t, providers.WriteMetrics(filepath.Join(t.TempDir(), "none.prom")))
	require.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(nil, NewLogger("error", &bytes.Buffer{}))
	require.NoError(t, err)
	assert.Nil(t, providers.Registry)
	assert.NotNil(t, providers.Tracer)

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordStep(context.Background(), "ingest", time.Second, nil)

	path := filepath.Join(t.TempDir(), "skipped.prom")
	require.NoError(t, providers.WriteMetrics(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestInitializeOTelUnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "zipkin"}, NewLogger("error", &bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}
