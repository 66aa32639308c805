// Package testutil builds spreadsheet fixtures for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// SalesHeader is the column layout of a 2011+ annualized sales workbook.
var SalesHeader = []any{
	"BOROUGH", "NEIGHBORHOOD", "BUILDING CLASS CATEGORY", "TAX CLASS AT PRESENT",
	"BLOCK", "LOT", "EASE-MENT", "BUILDING CLASS AT PRESENT", "ADDRESS",
	"APARTMENT NUMBER", "ZIP CODE", "RESIDENTIAL UNITS", "COMMERCIAL UNITS",
	"TOTAL UNITS", "LAND SQUARE FEET", "GROSS SQUARE FEET", "YEAR BUILT",
	"TAX CLASS AT TIME OF SALE", "BUILDING CLASS AT TIME OF SALE", "SALE PRICE",
	"SALE DATE",
}

// Sheet is a named list of rows for WriteXLSX.
type Sheet struct {
	Name string
	Rows [][]any
}

// WriteXLSX writes a workbook with the given sheets to path.
func WriteXLSX(t testing.TB, path string, sheets ...Sheet) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sh.Name))
		} else {
			_, err := f.NewSheet(sh.Name)
			require.NoError(t, err)
		}
		for r, row := range sh.Rows {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := append([]any(nil), row...)
			require.NoError(t, f.SetSheetRow(sh.Name, cell, &values))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

// SalesSheet returns a sheet with preamble leading rows, the sales header, and
// the data rows.
func SalesSheet(name string, preamble int, rows ...[]any) Sheet {
	out := make([][]any, 0, preamble+1+len(rows))
	for i := 0; i < preamble; i++ {
		out = append(out, []any{fmt.Sprintf("Preamble line %d", i+1)})
	}
	out = append(out, SalesHeader)
	out = append(out, rows...)
	return Sheet{Name: name, Rows: out}
}

// SaleRow builds a data row in SalesHeader order.
func SaleRow(borough, neighborhood, category, address, apt, zip string, gsf, year, price, date any) []any {
	return []any{
		borough, neighborhood, category, "1",
		"1234", "56", "", "A1", address,
		apt, zip, "1", "0",
		"1", "2000", gsf, year,
		"1", "A1", price,
		date,
	}
}
