package cleaning

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules are the versioned correction tables the pipeline is configured with.
type Rules struct {
	Version               string              `yaml:"version" validate:"required"`
	Boroughs              map[string]string   `yaml:"boroughs" validate:"required,min=1,dive,keys,required,endkeys,required"`
	NeighborhoodCodes     map[string]string   `yaml:"neighborhood_codes" validate:"dive,keys,required,endkeys,required"`
	AddressCorrections    []AddressCorrection `yaml:"address_corrections" validate:"dive"`
	BuildingClassSynonyms map[string]string   `yaml:"building_class_synonyms" validate:"dive,keys,required,endkeys,required"`
	ZeroFillColumns       []string            `yaml:"zero_fill_columns"`
	MissingMarkers        []string            `yaml:"missing_markers"`
}

// AddressCorrection overrides fields of every row whose address matches exactly.
type AddressCorrection struct {
	Address   string `yaml:"address" validate:"required"`
	YearBuilt *int   `yaml:"year_built" validate:"omitempty,min=1600,max=2100"`
	ZipCode   *int   `yaml:"zip_code" validate:"omitempty,min=501,max=99999"`
}

var rulesValidator = validator.New()

// DefaultRules returns the embedded correction tables.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads correction tables from path, or the embedded ones when path
// is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError("read rules "+path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates YAML correction tables.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.UnmarshalStrict(data, &r); err != nil {
		return nil, apperrors.NewConfigError("decode rules", err)
	}
	if err := rulesValidator.Struct(&r); err != nil {
		return nil, apperrors.NewConfigError("invalid rules", err)
	}
	for _, c := range r.ZeroFillColumns {
		if !domain.IsCanonicalField(c) {
			return nil, apperrors.NewConfigError(fmt.Sprintf("zero fill names unknown column %q", c), nil)
		}
	}
	seen := make(map[string]bool)
	for _, c := range r.AddressCorrections {
		if seen[c.Address] {
			return nil, apperrors.NewConfigError(fmt.Sprintf("duplicate correction for %q", c.Address), nil)
		}
		seen[c.Address] = true
	}
	return &r, nil
}

// BoroughNames returns the mapped borough names, sorted.
func (r *Rules) BoroughNames() []string {
	names := make([]string, 0, len(r.Boroughs))
	for _, n := range r.Boroughs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// correctionFor returns the correction keyed by address, if any.
func (r *Rules) correctionFor(address string) (AddressCorrection, bool) {
	for _, c := range r.AddressCorrections {
		if c.Address == address {
			return c, true
		}
	}
	return AddressCorrection{}, false
}

func (r *Rules) isMissing(s string) bool {
	s = strings.TrimSpace(s)
	for _, m := range r.MissingMarkers {
		if s == m {
			return true
		}
	}
	return s == ""
}

// codeKey normalizes a numeric code cell so that "3", " 3 " and "3.0" match
// the same table entry.
func codeKey(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
