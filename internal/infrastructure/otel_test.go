package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func TestInitializeTelemetry_WritesTextfile(t *testing.T) {
	ctx := context.Background()
	tel, err := InitializeTelemetry(ctx, TelemetryConfig{EnableMetrics: true, TraceExporter: "none"}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	tel.Metrics.FilesFetched.Add(ctx, 2)
	tel.Metrics.RecordRowsExcluded(ctx, "sale_price", 3)
	tel.Metrics.RecordFileSkipped(ctx, "STRUCTURE_NOT_FOUND")
	tel.Metrics.RecordStep(ctx, "dedupe", 15*time.Millisecond)

	path := filepath.Join(t.TempDir(), "etl.prom")
	require.NoError(t, tel.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "etl_files_fetched_total 2")
	assert.Contains(t, text, `etl_rows_excluded_total{reason="sale_price"} 3`)
	assert.Contains(t, text, `etl_files_skipped_total{reason="STRUCTURE_NOT_FOUND"} 1`)
	assert.Contains(t, text, "etl_step_duration_seconds")
}

func TestInitializeTelemetry_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	tel, err := InitializeTelemetry(ctx, TelemetryConfig{}, discardLogger())
	require.NoError(t, err)

	tel.Metrics.RowsRead.Add(ctx, 10)
	_, span := tel.StartSpan(ctx, "noop")
	EndSpan(span, errors.New("ignored"))

	path := filepath.Join(t.TempDir(), "etl.prom")
	require.NoError(t, tel.WriteTextfile(path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestInitializeTelemetry_StdoutTraces(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	tel, err := InitializeTelemetry(ctx, TelemetryConfig{TraceExporter: "stdout", TraceWriter: &buf}, discardLogger())
	require.NoError(t, err)

	_, span := tel.StartSpan(ctx, "cleaning")
	EndSpan(span, nil)
	require.NoError(t, tel.Shutdown(ctx))

	assert.Contains(t, buf.String(), `"Name":"cleaning"`)
}

func TestInitializeTelemetry_UnknownExporter(t *testing.T) {
	_, err := InitializeTelemetry(context.Background(), TelemetryConfig{TraceExporter: "otlp"}, discardLogger())
	assert.Error(t, err)
}
