package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

func TestDirValidator_ValidateWritable(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   bool
	}{
		{
			name: "existing directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "non-existent directory (should be created)",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "data", "stage")
			},
		},
		{
			name: "path blocked by a file",
			setupFunc: func(t *testing.T) string {
				blocker := filepath.Join(t.TempDir(), "prod")
				require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
				return filepath.Join(blocker, "out")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setupFunc(t)
			err := NewDirValidator(nil).ValidateWritable(dir)

			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrFatalIO)
				return
			}
			require.NoError(t, err)
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "probe file must be removed")
		})
	}
}

func TestDirValidator_ValidateAllStopsAtFirstFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	later := filepath.Join(base, "later")

	err := NewDirValidator(nil).ValidateAll(filepath.Join(base, "ok"), filepath.Join(blocker, "x"), later)
	assert.ErrorIs(t, err, apperrors.ErrFatalIO)
	assert.NoDirExists(t, later)
}
