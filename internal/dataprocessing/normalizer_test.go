package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/testutil"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	p, err := DefaultProfile()
	require.NoError(t, err)
	return NewNormalizer(p, nil)
}

func TestNormalizeFile_CanonicalColumnsRegardlessOfOffset(t *testing.T) {
	dir := t.TempDir()
	n := newTestNormalizer(t)
	row := testutil.SaleRow("3", "BEDFORD STUYVESANT", "01 ONE FAMILY DWELLINGS", "762 MARCY AVENUE, 1B", "", "11216", 1000, 1899, 500000, 43466)

	for _, preamble := range []int{3, 4} {
		path := filepath.Join(dir, "file.xlsx")
		testutil.WriteXLSX(t, path, testutil.SalesSheet("Brooklyn", preamble, row))

		tbl, st, err := n.NormalizeFile(path)
		require.NoError(t, err)

		assert.Equal(t, preamble, st.HeaderRow)
		assert.False(t, st.Fallback)
		assert.Equal(t, domain.UnifiedFields(), tbl.Columns())
		require.Equal(t, 1, tbl.Len())
		assert.Equal(t, "762 MARCY AVENUE, 1B", tbl.Value(0, domain.FieldAddress))
		assert.Equal(t, "500000", tbl.Value(0, domain.FieldSalePrice))
		assert.Equal(t, "43466", tbl.Value(0, domain.FieldSaleDate))
		assert.Equal(t, "1", tbl.Value(0, domain.FieldTaxClassAsOfFinalRoll))
		assert.Equal(t, "A1", tbl.Value(0, domain.FieldBuildingClassAsOfFinalRoll))
	}
}

func TestNormalizeFile_MissingColumnsAreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2019_bronx.xlsx")
	testutil.WriteXLSX(t, path, testutil.Sheet{Name: "Bronx", Rows: [][]any{
		{"BOROUGH", "ADDRESS", "SALE PRICE", "SALE DATE"},
		{"2", "1 MAIN ST", "100", "2019-01-02"},
	}})

	tbl, _, err := newTestNormalizer(t).NormalizeFile(path)
	require.NoError(t, err)

	assert.Equal(t, domain.UnifiedFields(), tbl.Columns())
	assert.Equal(t, "", tbl.Value(0, domain.FieldZipCode))
	assert.Equal(t, "1 MAIN ST", tbl.Value(0, domain.FieldAddress))
}

func TestNormalizeFile_ScansLaterSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollingsales_queens.xlsx")
	testutil.WriteXLSX(t, path,
		testutil.Sheet{Name: "Notes", Rows: [][]any{{"About this file"}}},
		testutil.SalesSheet("Queens", 4, testutil.SaleRow("4", "ASTORIA", "", "1 A ST", "", "11102", 0, 1930, 1, 43500)),
	)

	tbl, st, err := newTestNormalizer(t).NormalizeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Queens", st.Sheet)
	assert.Equal(t, 1, tbl.Len())
}

func TestNormalizeFile_LegacyOffsetFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2008_manhattan.xlsx")
	header := append([]any{"BORO"}, testutil.SalesHeader[1:]...)
	testutil.WriteXLSX(t, path, testutil.Sheet{Name: "Manhattan", Rows: [][]any{
		{"Manhattan"}, {"2008"}, {"note"},
		header,
		testutil.SaleRow("1", "CHELSEA", "", "1 W ST", "", "10011", 10, 1900, 5, 39500),
	}})
	p, err := ParseProfile([]byte(`
header_tokens: [BOROUGH]
required_columns: [sale_price, sale_date]
aliases: {boro: borough}
legacy_offsets:
  - {pattern: '2008', offset: 3}
`))
	require.NoError(t, err)

	tbl, st, err := NewNormalizer(p, nil).NormalizeFile(path)
	require.NoError(t, err)
	assert.True(t, st.Fallback)
	assert.Equal(t, 3, st.HeaderRow)
	assert.Equal(t, "1", tbl.Value(0, domain.FieldBorough))
}

func TestNormalizeFile_LegacyBinaryWorkbook(t *testing.T) {
	tbl, st, err := newTestNormalizer(t).NormalizeFile(filepath.Join("testdata", "2008_brooklyn.xls"))
	require.NoError(t, err)

	assert.Equal(t, "Brooklyn", st.Sheet)
	assert.Equal(t, 3, st.HeaderRow)
	assert.False(t, st.Fallback)
	assert.Equal(t, domain.UnifiedFields(), tbl.Columns())
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, "3", tbl.Value(0, domain.FieldBorough))
	assert.Equal(t, "762 MARCY AVENUE, 1B", tbl.Value(0, domain.FieldAddress))
	assert.Equal(t, "", tbl.Value(0, domain.FieldApartmentNumber))
	assert.Equal(t, "11216", tbl.Value(0, domain.FieldZipCode))
	assert.Equal(t, "1780", tbl.Value(0, domain.FieldBlock))
	assert.Equal(t, "1", tbl.Value(0, domain.FieldTaxClassAsOfFinalRoll))
	assert.Equal(t, "1000", tbl.Value(0, domain.FieldGrossSquareFeet))
	assert.Equal(t, "500000", tbl.Value(0, domain.FieldSalePrice))
	assert.Equal(t, "39479", tbl.Value(0, domain.FieldSaleDate), "date serial")

	assert.Equal(t, "9 BARTLETT AVENUE", tbl.Value(1, domain.FieldAddress))
	assert.Equal(t, "0", tbl.Value(1, domain.FieldGrossSquareFeet))
	assert.Equal(t, "3/15/08", tbl.Value(1, domain.FieldSaleDate), "text date")
}

func TestReadXLS_SkipsMissingRows(t *testing.T) {
	sheets, err := ReadXLS(filepath.Join("testdata", "2008_brooklyn.xls"))
	require.NoError(t, err)
	require.Len(t, sheets, 1)

	rows := sheets[0].Rows
	require.Len(t, rows, 6)
	assert.Equal(t, []any{"Brooklyn Annualized Sales Files 2008"}, rows[0])
	assert.Empty(t, rows[1])
	assert.Equal(t, "BOROUGH", rows[3][0])
	assert.Len(t, rows[3], 21)
}

func TestNormalizeFile_StructureNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.xlsx")
	testutil.WriteXLSX(t, path, testutil.Sheet{Name: "S", Rows: [][]any{{"nothing"}, {"here"}}})

	_, _, err := newTestNormalizer(t).NormalizeFile(path)
	assert.ErrorIs(t, err, apperrors.ErrStructureNotFound)
}

func TestNormalizeFile_HeaderWithoutRequiredColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.xlsx")
	testutil.WriteXLSX(t, path, testutil.Sheet{Name: "S", Rows: [][]any{{"BOROUGH", "ADDRESS"}, {"1", "x"}}})

	_, _, err := newTestNormalizer(t).NormalizeFile(path)
	assert.ErrorIs(t, err, apperrors.ErrStructureNotFound)
}

func TestReadWorkbook_Unsupported(t *testing.T) {
	_, err := ReadWorkbook("archive/2002_manhattan.ods")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
	assert.False(t, SupportedExtension(".ods"))
	assert.True(t, SupportedExtension(".XLS"))
}

func TestReadWorkbook_CorruptIsParsingError(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bad.xlsx", "bad.xls"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("definitely not a workbook"), 0o644))

		_, err := ReadWorkbook(path)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing), "%s: %v", name, err)
	}
}

func TestNormalizeDir_StagesAndSkips(t *testing.T) {
	root := t.TempDir()
	raw := filepath.Join(root, "raw")
	stage := filepath.Join(root, "stage")
	require.NoError(t, os.MkdirAll(stage, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stage, "stale.csv"), []byte("old"), 0o644))

	row := testutil.SaleRow("1", "CHELSEA", "", "1 W ST", "", "10011", 10, 1900, 5, 43500)
	testutil.WriteXLSX(t, filepath.Join(raw, "2019_manhattan.xlsx"), testutil.SalesSheet("M", 4, row))
	testutil.WriteXLSX(t, filepath.Join(raw, "rolling_sales", "rollingsales_manhattan.xlsx"), testutil.SalesSheet("M", 4, row, row))
	testutil.WriteXLSX(t, filepath.Join(raw, "readme.xlsx"), testutil.Sheet{Name: "S", Rows: [][]any{{"no header"}}})
	require.NoError(t, os.WriteFile(filepath.Join(raw, "index.pdf"), []byte("%PDF"), 0o644))

	res, err := newTestNormalizer(t).NormalizeDir(context.Background(), raw, stage)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Discovered)
	require.Len(t, res.Staged, 2)
	assert.Equal(t, "2019_manhattan.xlsx", res.Staged[0].Source)
	assert.Equal(t, filepath.Join(stage, "rolling_sales__rollingsales_manhattan.xlsx.csv"), res.Staged[1].StagePath)
	assert.Equal(t, 2, res.Staged[1].Rows)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "index.pdf", res.Skipped[0].Path)
	assert.Equal(t, string(apperrors.ErrTypeUnsupportedFormat), res.Skipped[0].ErrorType)
	assert.Equal(t, string(apperrors.ErrTypeStructureNotFound), res.Skipped[1].ErrorType)

	_, err = os.Stat(filepath.Join(stage, "stale.csv"))
	assert.True(t, os.IsNotExist(err))

	combined, err := ReadStageDir(stage)
	require.NoError(t, err)
	assert.Equal(t, domain.UnifiedFields(), combined.Columns())
	assert.Equal(t, 3, combined.Len())
}

func TestReadStageDir_Empty(t *testing.T) {
	tbl, err := ReadStageDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, domain.UnifiedFields(), tbl.Columns())
}

func TestStageFileName(t *testing.T) {
	assert.Equal(t, "2019_bronx.xls.csv", StageFileName("2019_bronx.xls"))
	assert.Equal(t, "rolling_sales__x.xlsx.csv", StageFileName("rolling_sales/x.xlsx"))
}
