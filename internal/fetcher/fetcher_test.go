package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/2019_bronx.xlsx":
			_, _ = w.Write([]byte("bronx-bytes"))
		case "/files/2019_queens.xls":
			_, _ = w.Write([]byte("queens-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFileName(t *testing.T) {
	name, err := FileName("https://www1.nyc.gov/assets/finance/downloads/pdf/rolling_sales/annualized-sales/2019/2019_bronx.xlsx?x=1")
	require.NoError(t, err)
	assert.Equal(t, "2019_bronx.xlsx", name)

	_, err = FileName("https://example.test/")
	assert.Error(t, err)
}

func TestDownload_WritesBytesAndCreatesDir(t *testing.T) {
	srv := newServer(t)
	dir := filepath.Join(t.TempDir(), "data", "raw")
	f := New(srv.Client(), Options{}, nil)

	path, err := f.Download(context.Background(), srv.URL+"/files/2019_bronx.xlsx", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2019_bronx.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bronx-bytes", string(data))

	// idempotent: a second download overwrites in place
	_, err = f.Download(context.Background(), srv.URL+"/files/2019_bronx.xlsx", dir)
	require.NoError(t, err)
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestDownload_NonSuccessKeepsPreviousFile(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	prev := filepath.Join(dir, "missing.xlsx")
	require.NoError(t, os.WriteFile(prev, []byte("previous"), 0o644))

	_, err := New(srv.Client(), Options{}, nil).Download(context.Background(), srv.URL+"/files/missing.xlsx", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFetch)

	data, _ := os.ReadFile(prev)
	assert.Equal(t, "previous", string(data))
}

func TestFetchAll_AbortPolicy(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	f := New(srv.Client(), Options{Parallel: 2, Policy: config.FetchPolicyAbort}, nil)

	res, err := f.FetchAll(context.Background(), []Job{
		{URL: srv.URL + "/files/2019_bronx.xlsx", Dir: dir},
		{URL: srv.URL + "/files/gone.xls", Dir: dir},
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFetch))
}

func TestFetchAll_SkipPolicyKeepsOrder(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	f := New(srv.Client(), Options{Parallel: 3, Policy: config.FetchPolicySkip}, nil)

	res, err := f.FetchAll(context.Background(), []Job{
		{URL: srv.URL + "/files/2019_queens.xls", Dir: dir},
		{URL: srv.URL + "/files/gone.xls", Dir: dir},
		{URL: srv.URL + "/files/2019_bronx.xlsx", Dir: filepath.Join(dir, "rolling_sales")},
		{URL: srv.URL + "/other/2019_queens.xls", Dir: dir},
	})
	require.NoError(t, err)

	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(dir, "2019_queens.xls"), res.Files[0].LocalPath)
	assert.Equal(t, domain.FormatLegacyXLS, res.Files[0].Format)
	assert.Equal(t, filepath.Join(dir, "rolling_sales", "2019_bronx.xlsx"), res.Files[1].LocalPath)
	assert.Equal(t, domain.FormatXLSX, res.Files[1].Format)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, string(apperrors.ErrTypeFetch), res.Skipped[0].ErrorType)
}

func TestFetchAll_BoundedParallelism(t *testing.T) {
	var inFlight, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	var jobs []Job
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		jobs = append(jobs, Job{URL: srv.URL + "/" + name + ".xlsx", Dir: dir})
	}

	res, err := New(srv.Client(), Options{Parallel: 2}, nil).FetchAll(context.Background(), jobs)
	require.NoError(t, err)
	assert.Len(t, res.Files, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}
