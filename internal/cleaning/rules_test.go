package cleaning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

func TestDefaultRules(t *testing.T) {
	r, err := DefaultRules()
	require.NoError(t, err)

	assert.Equal(t, "2024.1", r.Version)
	assert.Equal(t, []string{"Bronx", "Brooklyn", "Manhattan", "Queens", "Staten Island"}, r.BoroughNames())
	assert.Equal(t, "CROWN HEIGHTS", r.NeighborhoodCodes["3019"])
	assert.Len(t, r.AddressCorrections, 3)

	c, ok := r.correctionFor("9 BARTLETT AVENUE, 0")
	require.True(t, ok)
	require.NotNil(t, c.YearBuilt)
	assert.Equal(t, 2018, *c.YearBuilt)
	assert.Nil(t, c.ZipCode)
}

func TestLoadRules_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "local-1"
boroughs:
  "1": Manhattan
neighborhood_codes:
  "3019": PROSPECT HEIGHTS
`), 0o644))

	r, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "local-1", r.Version)
	assert.Equal(t, "PROSPECT HEIGHTS", r.NeighborhoodCodes["3019"])
	assert.Empty(t, r.AddressCorrections)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing version", `boroughs: {"1": Manhattan}`},
		{"no boroughs", `version: "1"`},
		{"unknown key", "version: \"1\"\nboroughs: {\"1\": Manhattan}\nextra: true"},
		{"unknown zero fill column", "version: \"1\"\nboroughs: {\"1\": Manhattan}\nzero_fill_columns: [rooms]"},
		{"year out of range", "version: \"1\"\nboroughs: {\"1\": Manhattan}\naddress_corrections:\n  - address: A\n    year_built: 20180"},
		{"duplicate address", "version: \"1\"\nboroughs: {\"1\": Manhattan}\naddress_corrections:\n  - address: A\n  - address: A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
		})
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, apperrors.ErrConfig)
}
