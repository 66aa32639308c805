package exporter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// DateLayout is the canonical sale_date format.
const DateLayout = "2006-01-02"

// FormatCell renders one canonical cell as CSV text. Nulls are empty strings,
// dates are ISO-8601, dollar_per_square_foot has exactly two decimals and
// other reals use the shortest exact decimal form.
func FormatCell(column string, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return formatInt(x)
	case float64:
		if column == domain.FieldDollarPerSquareFoot {
			return formatFloat(x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// FormatRecords renders every row of t as CSV text.
func FormatRecords(t *table.Table) [][]string {
	cols := t.Columns()
	out := make([][]string, t.Len())
	for i, r := range t.Rows() {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = FormatCell(cols[j], v)
		}
		out[i] = rec
	}
	return out
}

// ParseCell reads canonical CSV text back into a typed cell.
func ParseCell(column, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch column {
	case domain.FieldZipCode, domain.FieldResidentialUnits, domain.FieldCommercialUnits,
		domain.FieldTotalUnits, domain.FieldLandSquareFeet, domain.FieldGrossSquareFeet,
		domain.FieldYearBuilt:
		return strconv.ParseInt(s, 10, 64)
	case domain.FieldSalePrice, domain.FieldDollarPerSquareFoot:
		return strconv.ParseFloat(s, 64)
	case domain.FieldSaleDate:
		return time.Parse(DateLayout, s)
	default:
		return s, nil
	}
}

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
