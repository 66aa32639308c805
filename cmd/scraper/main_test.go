package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/app"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/infrastructure"
)

func setEnv(t *testing.T, salesURL string) string {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	parent := t.TempDir()
	t.Setenv("PARENT_DIR", parent)
	t.Setenv("SALES_URL", salesURL)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("FETCH_RATE", "0")
	return parent
}

func TestRun_DownloadsListedFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/listing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<table><tr><td>nav</td></tr></table>
<table><tr><td><a href="/dl/2020_queens.xlsx">Queens</a></td><td><a href="/dl/readme.pdf">pdf</a></td></tr></table>`)
	})
	mux.HandleFunc("/dl/2020_queens.xlsx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "workbook-bytes")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	parent := setEnv(t, srv.URL+"/listing")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)
	require.Equal(t, app.ExitOK, code, stderr.String())

	raw := config.NewPaths(parent).RawDir
	assert.FileExists(t, filepath.Join(raw, "2020_queens.xlsx"))
	assert.NoFileExists(t, filepath.Join(raw, "readme.pdf"))
	assert.Contains(t, stdout.String(), "files fetched:     1")
}

func TestRun_ListingDownIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	setEnv(t, srv.URL+"/listing")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)
	assert.Equal(t, app.ExitRun, code)
	assert.Contains(t, stdout.String(), "error:")
}

func TestRun_InvalidPolicyFlag(t *testing.T) {
	setEnv(t, "http://example.com/listing")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-policy", "retry"}, &stdout, &stderr)
	assert.Equal(t, app.ExitConfig, code)
}
