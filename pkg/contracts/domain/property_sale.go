package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Canonical field names. The first twenty make up the unified row every source
// vintage is mapped onto; DollarPerSquareFoot is derived during cleaning.
const (
	FieldBorough                    = "borough"
	FieldNeighborhood               = "neighborhood"
	FieldBuildingClassCategory      = "building_class_category"
	FieldTaxClassAsOfFinalRoll      = "tax_class_as_of_final_roll"
	FieldBlock                      = "block"
	FieldLot                        = "lot"
	FieldBuildingClassAsOfFinalRoll = "building_class_as_of_final_roll"
	FieldAddress                    = "address"
	FieldApartmentNumber            = "apartment_number"
	FieldZipCode                    = "zip_code"
	FieldResidentialUnits           = "residential_units"
	FieldCommercialUnits            = "commercial_units"
	FieldTotalUnits                 = "total_units"
	FieldLandSquareFeet             = "land_square_feet"
	FieldGrossSquareFeet            = "gross_square_feet"
	FieldYearBuilt                  = "year_built"
	FieldTaxClassAtTimeOfSale       = "tax_class_at_time_of_sale"
	FieldBuildingClassAtTimeOfSale  = "building_class_at_time_of_sale"
	FieldSalePrice                  = "sale_price"
	FieldSaleDate                   = "sale_date"

	FieldDollarPerSquareFoot = "dollar_per_square_foot"
)

// UnifiedFields returns the fixed field set of a UnifiedRow in canonical order.
func UnifiedFields() []string {
	return []string{
		FieldBorough,
		FieldNeighborhood,
		FieldBuildingClassCategory,
		FieldTaxClassAsOfFinalRoll,
		FieldBlock,
		FieldLot,
		FieldBuildingClassAsOfFinalRoll,
		FieldAddress,
		FieldApartmentNumber,
		FieldZipCode,
		FieldResidentialUnits,
		FieldCommercialUnits,
		FieldTotalUnits,
		FieldLandSquareFeet,
		FieldGrossSquareFeet,
		FieldYearBuilt,
		FieldTaxClassAtTimeOfSale,
		FieldBuildingClassAtTimeOfSale,
		FieldSalePrice,
		FieldSaleDate,
	}
}

// CanonicalFields returns the output column set: the unified fields followed by
// the derived dollar_per_square_foot.
func CanonicalFields() []string {
	return append(UnifiedFields(), FieldDollarPerSquareFoot)
}

// IsCanonicalField reports whether name belongs to the output column set.
func IsCanonicalField(name string) bool {
	for _, f := range CanonicalFields() {
		if f == name {
			return true
		}
	}
	return false
}

// SpreadsheetFormat identifies the binary layout of a downloaded source file.
type SpreadsheetFormat string

const (
	// FormatLegacyXLS is the BIFF workbook format used by the older archives.
	FormatLegacyXLS SpreadsheetFormat = "xls"
	// FormatXLSX is the zipped-XML workbook format.
	FormatXLSX SpreadsheetFormat = "xlsx"
	// FormatUnknown marks any extension no parsing engine is registered for.
	FormatUnknown SpreadsheetFormat = ""
)

// FormatFromPath maps a file extension to its spreadsheet format.
func FormatFromPath(path string) SpreadsheetFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		return FormatLegacyXLS
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// RawFileRecord describes one downloaded source spreadsheet. It is created by
// the fetcher and consumed by normalization.
type RawFileRecord struct {
	SourceURL string            `json:"source_url,omitempty"`
	LocalPath string            `json:"local_path"`
	Hint      string            `json:"hint,omitempty"`
	Format    SpreadsheetFormat `json:"original_format"`
}

// CanonicalRecord is one cleaned property sale. Nil pointers are nulls.
type CanonicalRecord struct {
	Borough                    string
	Neighborhood               string
	BuildingClassCategory      string
	TaxClassAsOfFinalRoll      string
	Block                      string
	Lot                        string
	BuildingClassAsOfFinalRoll string
	Address                    string
	ApartmentNumber            string
	ZipCode                    *int64
	ResidentialUnits           *int64
	CommercialUnits            *int64
	TotalUnits                 *int64
	LandSquareFeet             *int64
	GrossSquareFeet            *int64
	YearBuilt                  *int64
	TaxClassAtTimeOfSale       string
	BuildingClassAtTimeOfSale  string
	SalePrice                  *float64
	SaleDate                   time.Time
	DollarPerSquareFoot        *float64
}

// Values returns the record as positional values in CanonicalFields order,
// with nil for null cells.
func (r CanonicalRecord) Values() []any {
	return []any{
		nullString(r.Borough),
		nullString(r.Neighborhood),
		nullString(r.BuildingClassCategory),
		nullString(r.TaxClassAsOfFinalRoll),
		nullString(r.Block),
		nullString(r.Lot),
		nullString(r.BuildingClassAsOfFinalRoll),
		nullString(r.Address),
		nullString(r.ApartmentNumber),
		nullInt(r.ZipCode),
		nullInt(r.ResidentialUnits),
		nullInt(r.CommercialUnits),
		nullInt(r.TotalUnits),
		nullInt(r.LandSquareFeet),
		nullInt(r.GrossSquareFeet),
		nullInt(r.YearBuilt),
		nullString(r.TaxClassAtTimeOfSale),
		nullString(r.BuildingClassAtTimeOfSale),
		nullFloat(r.SalePrice),
		nullDate(r.SaleDate),
		nullFloat(r.DollarPerSquareFoot),
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
