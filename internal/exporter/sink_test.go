package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

func canonicalRow(overrides map[string]any) table.Row {
	values := map[string]any{
		domain.FieldBorough:               "Brooklyn",
		domain.FieldNeighborhood:          "BEDFORD STUYVESANT",
		domain.FieldBuildingClassCategory: "01 ONE FAMILY HOMES",
		domain.FieldBlock:                 "1780",
		domain.FieldLot:                   "12",
		domain.FieldAddress:               "762 MARCY AVENUE",
		domain.FieldApartmentNumber:       "1B",
		domain.FieldZipCode:               int64(11216),
		domain.FieldResidentialUnits:      int64(1),
		domain.FieldCommercialUnits:       int64(0),
		domain.FieldTotalUnits:            int64(1),
		domain.FieldLandSquareFeet:        int64(2000),
		domain.FieldGrossSquareFeet:       int64(1000),
		domain.FieldYearBuilt:             int64(2018),
		domain.FieldSalePrice:             500000.0,
		domain.FieldSaleDate:              time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.FieldDollarPerSquareFoot:   500.0,
	}
	for k, v := range overrides {
		values[k] = v
	}
	row := make(table.Row, 0, len(domain.CanonicalFields()))
	for _, f := range domain.CanonicalFields() {
		row = append(row, values[f])
	}
	return row
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		column string
		value  any
		want   string
	}{
		{domain.FieldSaleDate, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), "2019-01-01"},
		{domain.FieldSalePrice, 500000.0, "500000"},
		{domain.FieldSalePrice, 1250000.5, "1250000.5"},
		{domain.FieldDollarPerSquareFoot, 500.0, "500.00"},
		{domain.FieldDollarPerSquareFoot, 333.33, "333.33"},
		{domain.FieldZipCode, int64(11216), "11216"},
		{domain.FieldAddress, "762 MARCY AVENUE", "762 MARCY AVENUE"},
		{domain.FieldApartmentNumber, nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCell(tt.column, tt.value), tt.column)
	}
}

func TestSink_WriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, "sales", []string{"csv"}, nil)
	in := table.New(domain.CanonicalFields(), []table.Row{
		canonicalRow(nil),
		canonicalRow(map[string]any{
			domain.FieldApartmentNumber:     nil,
			domain.FieldSalePrice:           nil,
			domain.FieldDollarPerSquareFoot: nil,
		}),
	})

	paths, err := sink.Write(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sales.csv")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	lines := splitLines(string(data))
	require.Len(t, lines, 3)
	assert.Equal(t, "borough,neighborhood,building_class_category,tax_class_as_of_final_roll,block,lot,"+
		"building_class_as_of_final_roll,address,apartment_number,zip_code,residential_units,commercial_units,"+
		"total_units,land_square_feet,gross_square_feet,year_built,tax_class_at_time_of_sale,"+
		"building_class_at_time_of_sale,sale_price,sale_date,dollar_per_square_foot", lines[0])
	assert.Equal(t, "Brooklyn,BEDFORD STUYVESANT,01 ONE FAMILY HOMES,,1780,12,,762 MARCY AVENUE,1B,"+
		"11216,1,0,1,2000,1000,2018,,,500000,2019-01-01,500.00", lines[1])

	back, err := ReadCanonicalCSV(paths[0])
	require.NoError(t, err)
	assert.Equal(t, in.Rows(), back.Rows())
}

func TestSink_Deterministic(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, "sales", nil, nil)
	in := table.New(domain.CanonicalFields(), []table.Row{canonicalRow(nil)})

	_, err := sink.Write(context.Background(), in)
	require.NoError(t, err)
	first, err := os.ReadFile(sink.CSVPath())
	require.NoError(t, err)

	_, err = sink.Write(context.Background(), in)
	require.NoError(t, err)
	second, err := os.ReadFile(sink.CSVPath())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSink_EmptyTableWritesHeaderOnly(t *testing.T) {
	sink := NewSink(t.TempDir(), "", nil, nil)
	_, err := sink.Write(context.Background(), table.Empty(domain.CanonicalFields()))
	require.NoError(t, err)

	assert.Equal(t, "nyc_property_sales.csv", filepath.Base(sink.CSVPath()))
	back, err := ReadCanonicalCSV(sink.CSVPath())
	require.NoError(t, err)
	assert.Zero(t, back.Len())
	assert.Equal(t, domain.CanonicalFields(), back.Columns())
}

func TestSink_WritesXLSXCopy(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, "sales", []string{"csv", "xlsx"}, nil)
	in := table.New(domain.CanonicalFields(), []table.Row{canonicalRow(nil)})

	paths, err := sink.Write(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	f, err := excelize.OpenFile(paths[1])
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.CanonicalFields(), rows[0])
	assert.Equal(t, "762 MARCY AVENUE", rows[1][7])
	assert.Equal(t, "500.00", rows[1][20])
}

func TestReadCanonicalCSV_RejectsUnknownColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("borough,rooms\nManhattan,3\n"), 0o644))

	_, err := ReadCanonicalCSV(path)
	assert.Error(t, err)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
