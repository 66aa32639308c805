package cleaning

import (
	"context"
	"fmt"
	"strings"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// Step IDs in execution order.
const (
	StepHeaderNormalization     = "header-normalization"
	StepDropBlankRows           = "drop-blank-rows"
	StepNeighborhoodTrim        = "neighborhood-trim"
	StepDedupe                  = "dedupe"
	StepNullFill                = "null-fill"
	StepValueCorrections        = "value-corrections"
	StepNeighborhoodCodes       = "neighborhood-codes"
	StepBoroughNames            = "borough-names"
	StepSplitAddress            = "split-address-apt"
	StepCoerceTypes             = "coerce-types"
	StepBuildingClassVocabulary = "building-class-vocabulary"
	StepDollarPerSquareFoot     = "dollar-per-sqft"
	StepDedupeCanonical         = "dedupe-canonical"
)

var integerFields = []string{
	domain.FieldZipCode,
	domain.FieldResidentialUnits,
	domain.FieldCommercialUnits,
	domain.FieldTotalUnits,
	domain.FieldLandSquareFeet,
	domain.FieldGrossSquareFeet,
	domain.FieldYearBuilt,
}

// DefaultSteps returns the built-in steps configured with rules, in run order.
func DefaultSteps(rules *Rules) []Step {
	return []Step{
		NewStep(StepHeaderNormalization, "Normalize headers", nil, normalizeHeaders),
		NewStep(StepDropBlankRows, "Drop blank rows",
			[]string{StepHeaderNormalization}, dropBlankRows),
		NewStep(StepNeighborhoodTrim, "Trim neighborhood names",
			[]string{StepHeaderNormalization}, trimNeighborhoods),
		NewStep(StepDedupe, "Remove duplicate rows",
			[]string{StepNeighborhoodTrim}, dedupe),
		NewStep(StepNullFill, "Fill missing unit and area counts",
			[]string{StepHeaderNormalization}, nullFill(rules)),
		NewStep(StepValueCorrections, "Apply address corrections",
			[]string{StepDedupe, StepNullFill}, applyCorrections(rules)),
		NewStep(StepNeighborhoodCodes, "Replace neighborhood codes",
			[]string{StepNeighborhoodTrim}, replaceNeighborhoodCodes(rules)),
		NewStep(StepBoroughNames, "Map borough codes to names",
			[]string{StepHeaderNormalization}, mapBoroughs(rules)),
		NewStep(StepSplitAddress, "Split apartment number from address",
			[]string{StepValueCorrections}, splitAddress),
		NewStep(StepCoerceTypes, "Coerce field types",
			[]string{StepNullFill, StepValueCorrections, StepSplitAddress, StepBoroughNames, StepNeighborhoodCodes},
			coerceTypes(rules)),
		NewStep(StepBuildingClassVocabulary, "Harmonize building class categories",
			[]string{StepCoerceTypes}, harmonizeBuildingClass(rules)),
		NewStep(StepDollarPerSquareFoot, "Derive price per square foot",
			[]string{StepCoerceTypes}, dollarPerSquareFoot),
		NewStep(StepDedupeCanonical, "Remove duplicate canonical rows",
			[]string{StepBuildingClassVocabulary, StepDollarPerSquareFoot}, dedupe),
	}
}

// NewDefaultRegistry returns a registry holding the built-in steps.
func NewDefaultRegistry(rules *Rules) *Registry {
	return NewRegistry().MustRegister(DefaultSteps(rules)...)
}

// normalizeHeaders lower-cases and underscores column names, drops fully empty
// columns outside the canonical set, and projects onto the unified fields.
func normalizeHeaders(_ context.Context, in *table.Table) (Result, error) {
	t := in.RenameColumns(table.ColumnKey)
	var empty []string
	for _, c := range t.Columns() {
		if !domain.IsCanonicalField(c) && t.ColumnIsNull(c) {
			empty = append(empty, c)
		}
	}
	t = t.DropColumns(empty...)

	cols := domain.UnifiedFields()
	if t.HasColumn(domain.FieldDollarPerSquareFoot) {
		cols = domain.CanonicalFields()
	}
	return Result{Table: t.Select(cols)}, nil
}

func dropBlankRows(_ context.Context, in *table.Table) (Result, error) {
	out := in.Filter(func(r table.Row) bool {
		for _, v := range r {
			if !table.IsNull(v) {
				return true
			}
		}
		return false
	})
	return Result{Table: out, Removed: in.Len() - out.Len()}, nil
}

func trimNeighborhoods(_ context.Context, in *table.Table) (Result, error) {
	return Result{Table: mapTextColumn(in, domain.FieldNeighborhood, strings.TrimSpace)}, nil
}

// dedupe keeps the first of each group of rows equal on every field.
func dedupe(_ context.Context, in *table.Table) (Result, error) {
	seen := make(map[string]bool, in.Len())
	out := in.Filter(func(r table.Row) bool {
		k := table.RowKey(r)
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
	return Result{Table: out, Removed: in.Len() - out.Len()}, nil
}

func nullFill(rules *Rules) StepFunc {
	return func(_ context.Context, in *table.Table) (Result, error) {
		t := in
		for _, col := range rules.ZeroFillColumns {
			idx, ok := t.ColumnIndex(col)
			if !ok {
				continue
			}
			// Only text cells are filled; a nil cell was set to null by coercion.
			t = t.Map(func(r table.Row) table.Row {
				if v, isText := table.Text(r[idx]); isText && rules.isMissing(v) {
					r[idx] = "0"
				}
				return r
			})
		}
		return Result{Table: t}, nil
	}
}

func applyCorrections(rules *Rules) StepFunc {
	return func(_ context.Context, in *table.Table) (Result, error) {
		addr, ok := in.ColumnIndex(domain.FieldAddress)
		if !ok || len(rules.AddressCorrections) == 0 {
			return Result{Table: in}, nil
		}
		year, hasYear := in.ColumnIndex(domain.FieldYearBuilt)
		zip, hasZip := in.ColumnIndex(domain.FieldZipCode)
		out := in.Map(func(r table.Row) table.Row {
			c, found := rules.correctionFor(cellString(r[addr]))
			if !found {
				return r
			}
			if c.YearBuilt != nil && hasYear {
				r[year] = fmt.Sprint(*c.YearBuilt)
			}
			if c.ZipCode != nil && hasZip {
				r[zip] = fmt.Sprintf("%05d", *c.ZipCode)
			}
			return r
		})
		return Result{Table: out}, nil
	}
}

func replaceNeighborhoodCodes(rules *Rules) StepFunc {
	return func(_ context.Context, in *table.Table) (Result, error) {
		idx, ok := in.ColumnIndex(domain.FieldNeighborhood)
		if !ok {
			return Result{Table: in}, nil
		}
		out := in.Map(func(r table.Row) table.Row {
			if name, found := rules.NeighborhoodCodes[codeKey(cellString(r[idx]))]; found {
				r[idx] = name
			}
			return r
		})
		return Result{Table: out}, nil
	}
}

// mapBoroughs replaces numeric borough codes with names. Codes with no entry
// are left unchanged and counted; values that are already names are skipped.
func mapBoroughs(rules *Rules) StepFunc {
	names := make(map[string]bool, len(rules.Boroughs))
	for _, n := range rules.Boroughs {
		names[n] = true
	}
	return func(_ context.Context, in *table.Table) (Result, error) {
		idx, ok := in.ColumnIndex(domain.FieldBorough)
		if !ok {
			return Result{Table: in}, nil
		}
		unmapped := make(map[string]int)
		out := in.Map(func(r table.Row) table.Row {
			code := cellString(r[idx])
			if code == "" || names[code] {
				return r
			}
			if name, found := rules.Boroughs[codeKey(code)]; found {
				r[idx] = name
				return r
			}
			unmapped[code]++
			return r
		})
		return Result{Table: out, Unmapped: unmapped}, nil
	}
}

// splitAddress moves everything after the first comma of an address into the
// apartment number. Commas left in apartment numbers are removed.
func splitAddress(_ context.Context, in *table.Table) (Result, error) {
	addr, ok := in.ColumnIndex(domain.FieldAddress)
	if !ok {
		return Result{Table: in}, nil
	}
	apt, hasApt := in.ColumnIndex(domain.FieldApartmentNumber)
	out := in.Map(func(r table.Row) table.Row {
		s, isText := table.Text(r[addr])
		if isText {
			if before, after, found := strings.Cut(s, ","); found {
				r[addr] = strings.TrimSpace(before)
				if hasApt {
					r[apt] = strings.TrimSpace(after)
				}
			}
		}
		if hasApt {
			if a, isText := table.Text(r[apt]); isText && strings.Contains(a, ",") {
				r[apt] = strings.TrimSpace(strings.ReplaceAll(a, ",", ""))
			}
		}
		return r
	})
	return Result{Table: out}, nil
}

// coerceTypes converts fields to their canonical types. A missing sale_price
// is null. A row whose sale_price is present but unreadable, or whose
// sale_date cannot be read, is excluded; other unreadable values become null.
func coerceTypes(rules *Rules) StepFunc {
	return func(_ context.Context, in *table.Table) (Result, error) {
		return coerceTable(rules, in), nil
	}
}

func coerceTable(rules *Rules, in *table.Table) Result {
	var excluded []Exclusion
	priceIdx, hasPrice := in.ColumnIndex(domain.FieldSalePrice)
	dateIdx, hasDate := in.ColumnIndex(domain.FieldSaleDate)

	intIdx := make(map[int]string)
	for _, f := range integerFields {
		if i, ok := in.ColumnIndex(f); ok {
			intIdx[i] = f
		}
	}
	dpsf, hasDPSF := in.ColumnIndex(domain.FieldDollarPerSquareFoot)

	rows := make([]table.Row, 0, in.Len())
	for _, r := range in.Rows() {
		// A nil price was already coerced to null by an earlier pass.
		if hasPrice && missingPrice(rules, r[priceIdx]) {
			r[priceIdx] = nil
		} else if hasPrice {
			price, err := parseFloat(r[priceIdx])
			if err != nil {
				excluded = append(excluded, exclusion(domain.FieldSalePrice, r[priceIdx], err))
				continue
			}
			if price > 0 {
				r[priceIdx] = price
			} else {
				r[priceIdx] = nil
			}
		}
		if hasDate {
			d, err := parseDate(r[dateIdx])
			if err != nil {
				excluded = append(excluded, exclusion(domain.FieldSaleDate, r[dateIdx], err))
				continue
			}
			r[dateIdx] = d
		}
		for i := range r {
			if i == priceIdx && hasPrice || i == dateIdx && hasDate {
				continue
			}
			if f, isInt := intIdx[i]; isInt {
				r[i] = coerceInt(f, r[i])
				continue
			}
			if hasDPSF && i == dpsf && r[i] != nil {
				if f, err := parseFloat(r[i]); err == nil {
					r[i] = f
				} else {
					r[i] = nil
				}
				continue
			}
			if s, isText := r[i].(string); isText {
				if s = strings.TrimSpace(s); s == "" {
					r[i] = nil
				} else {
					r[i] = s
				}
			} else if r[i] != nil {
				r[i] = cellString(r[i])
			}
		}
		rows = append(rows, r)
	}
	return Result{Table: table.New(in.Columns(), rows), Excluded: excluded}
}

func missingPrice(rules *Rules, v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	if rules == nil {
		return strings.TrimSpace(s) == ""
	}
	return rules.isMissing(s)
}

func coerceInt(field string, v any) any {
	if table.IsNull(v) {
		return nil
	}
	n, err := parseInt(v)
	if err != nil || n < 0 {
		return nil
	}
	if field == domain.FieldZipCode && (n < 1 || n > 99999) {
		return nil
	}
	return n
}

func exclusion(field string, v any, err error) Exclusion {
	return Exclusion{Field: field, Value: cellString(v), Reason: err.Error()}
}

// harmonizeBuildingClass collapses whitespace runs and maps known spelling
// variants onto one category label.
func harmonizeBuildingClass(rules *Rules) StepFunc {
	return func(_ context.Context, in *table.Table) (Result, error) {
		return Result{Table: mapTextColumn(in, domain.FieldBuildingClassCategory, func(s string) string {
			s = strings.Join(strings.Fields(s), " ")
			if to, found := rules.BuildingClassSynonyms[s]; found {
				return to
			}
			return s
		})}, nil
	}
}

// dollarPerSquareFoot derives sale_price / gross_square_feet rounded to cents.
// It is null when either input is null or the area is zero.
func dollarPerSquareFoot(_ context.Context, in *table.Table) (Result, error) {
	price, hasPrice := in.ColumnIndex(domain.FieldSalePrice)
	gsf, hasGSF := in.ColumnIndex(domain.FieldGrossSquareFeet)
	out := in.AddColumn(domain.FieldDollarPerSquareFoot, func(r table.Row) any {
		if !hasPrice || !hasGSF {
			return nil
		}
		p, okP := r[price].(float64)
		area, okA := r[gsf].(int64)
		if !okP || !okA || area == 0 {
			return nil
		}
		return roundCents(p / float64(area))
	})
	return Result{Table: out}, nil
}

func mapTextColumn(in *table.Table, column string, fn func(string) string) *table.Table {
	idx, ok := in.ColumnIndex(column)
	if !ok {
		return in
	}
	return in.Map(func(r table.Row) table.Row {
		if s, isText := table.Text(r[idx]); isText {
			r[idx] = fn(s)
		}
		return r
	})
}
