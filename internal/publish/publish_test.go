package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestPublisher_FSStore(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	csvPath := writeFile(t, src, "sales.csv", "borough\nManhattan\n")
	jsonPath := writeFile(t, src, "run_report.json", "{}")

	p := NewPublisher(NewFSStore(dest), "/nyc/latest/", nil)
	locs, err := p.Publish(context.Background(), []string{csvPath, jsonPath})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dest, "nyc", "latest", "sales.csv"),
		filepath.Join(dest, "nyc", "latest", "run_report.json"),
	}, locs)
	data, err := os.ReadFile(locs[0])
	require.NoError(t, err)
	assert.Equal(t, "borough\nManhattan\n", string(data))

	// Publishing again overwrites.
	writeFile(t, src, "sales.csv", "borough\nBronx\n")
	_, err = p.Publish(context.Background(), []string{csvPath})
	require.NoError(t, err)
	data, err = os.ReadFile(locs[0])
	require.NoError(t, err)
	assert.Equal(t, "borough\nBronx\n", string(data))
}

func TestPublisher_MissingFile(t *testing.T) {
	p := NewPublisher(NewFSStore(t.TempDir()), "", nil)
	_, err := p.Publish(context.Background(), []string{filepath.Join(t.TempDir(), "absent.csv")})
	assert.ErrorIs(t, err, apperrors.ErrFatalIO)
}

func TestSanitizeKey(t *testing.T) {
	for _, bad := range []string{"", " ", "/etc/passwd", "../x", "a/../../x"} {
		_, err := sanitizeKey(bad)
		assert.Error(t, err, bad)
	}
	got, err := sanitizeKey("a/./b.csv")
	require.NoError(t, err)
	assert.Equal(t, "a/b.csv", got)
}

func TestPublisher_Key(t *testing.T) {
	assert.Equal(t, "sales.csv", NewPublisher(nil, "", nil).Key("/tmp/x/sales.csv"))
	assert.Equal(t, "nyc/sales.csv", NewPublisher(nil, "nyc/", nil).Key("/tmp/x/sales.csv"))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.URL.Path] = string(body)
	f.types[r.URL.Path] = r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func TestS3Store_Put(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	fake := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	p, err := FromConfig(ctx, config.PublishConfig{
		Bucket:    "sales",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		PathStyle: true,
		Prefix:    "nyc",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)

	csvPath := writeFile(t, t.TempDir(), "nyc_property_sales.csv", "borough\nQueens\n")
	locs, err := p.Publish(ctx, []string{csvPath})
	require.NoError(t, err)

	assert.Equal(t, []string{"s3://sales/nyc/nyc_property_sales.csv"}, locs)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "borough\nQueens\n", fake.objects["/sales/nyc/nyc_property_sales.csv"])
	assert.True(t, strings.HasPrefix(fake.types["/sales/nyc/nyc_property_sales.csv"], "text/csv"))
}

func TestFromConfig_Disabled(t *testing.T) {
	p, err := FromConfig(context.Background(), config.PublishConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}
