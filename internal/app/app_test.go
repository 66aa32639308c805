package app

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/infrastructure"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/pipeline"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", apperrors.NewConfigError("bad", nil), ExitConfig},
		{"fatal io", apperrors.NewFatalIOError("disk", nil), ExitFatalIO},
		{"fetch", apperrors.NewFetchError("http://x", errors.New("down")), ExitRun},
		{"plain", errors.New("boom"), ExitRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestNew_MissingParentDir(t *testing.T) {
	t.Setenv("PARENT_DIR", "")
	_, err := New(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, ExitConfig, ExitCode(err))
}

func TestApplication_PipelineProcessesEmptyTree(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	parent := t.TempDir()
	t.Setenv("PARENT_DIR", parent)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_OUTPUT", "file")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("PUBLISH_DIR", t.TempDir())

	ctx := context.Background()
	a, err := New(ctx, "")
	require.NoError(t, err)
	defer a.Close(ctx)

	p, err := a.Pipeline(ctx)
	require.NoError(t, err)

	rep, err := p.Run(ctx, pipeline.RunOptions{Process: true})
	require.NoError(t, err)
	assert.Len(t, rep.PublishedTo, 1)

	paths := config.NewPaths(parent)
	assert.FileExists(t, paths.GetProdPath(config.DefaultOutputName))
	assert.FileExists(t, paths.RunReportPath())
	assert.FileExists(t, paths.MetricsPath())

	_, statErr := os.Stat(a.Config.Logging.File)
	assert.NoError(t, statErr)
}
