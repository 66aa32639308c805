package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/app"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/infrastructure"
)

func setEnv(t *testing.T) string {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	parent := t.TempDir()
	t.Setenv("PARENT_DIR", parent)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ENABLED", "false")
	return parent
}

func TestRun_EmptyRawDirWritesHeaderOnlyOutput(t *testing.T) {
	parent := setEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)
	require.Equal(t, app.ExitOK, code, stderr.String())

	paths := config.NewPaths(parent)
	assert.FileExists(t, paths.GetProdPath(config.DefaultOutputName))
	assert.FileExists(t, paths.RunReportPath())
	assert.Contains(t, stdout.String(), "final rows:        0")
}

func TestRun_QuietSuppressesReport(t *testing.T) {
	setEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-quiet"}, &stdout, &stderr)
	require.Equal(t, app.ExitOK, code, stderr.String())
	assert.Empty(t, stdout.String())
}

func TestRun_MissingRulesFile(t *testing.T) {
	setEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-rules", "does-not-exist.yaml"}, &stdout, &stderr)
	assert.Equal(t, app.ExitConfig, code)
}

func TestRun_MissingParentDir(t *testing.T) {
	t.Setenv("PARENT_DIR", "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)
	assert.Equal(t, app.ExitConfig, code)
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, app.ExitConfig, run(context.Background(), []string{"-nope"}, &stdout, &stderr))
}
