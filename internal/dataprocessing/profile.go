package dataprocessing

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

//go:embed profile.yaml
var defaultProfile []byte

// Profile is the data that drives structure detection and column mapping.
// New publication vintages are handled by editing the profile, not the code.
type Profile struct {
	Version         int               `yaml:"version"`
	HeaderTokens    []string          `yaml:"header_tokens"`
	RequiredColumns []string          `yaml:"required_columns"`
	Aliases         map[string]string `yaml:"aliases"`
	AliasPrefixes   []AliasPrefix     `yaml:"alias_prefixes"`
	LegacyOffsets   []LegacyOffset    `yaml:"legacy_offsets"`
}

// AliasPrefix maps every label starting with Prefix to Field.
type AliasPrefix struct {
	Prefix string `yaml:"prefix"`
	Field  string `yaml:"field"`
}

// LegacyOffset is a fixed header row for files whose name matches Pattern.
type LegacyOffset struct {
	Pattern string `yaml:"pattern"`
	Offset  int    `yaml:"offset"`

	re *regexp.Regexp
}

// DefaultProfile returns the embedded profile.
func DefaultProfile() (*Profile, error) {
	return ParseProfile(defaultProfile)
}

// LoadProfile reads a profile from path, or the embedded one when path is empty.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError("read profile "+path, err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, apperrors.NewConfigError("decode profile", err)
	}
	if len(p.HeaderTokens) == 0 {
		return nil, apperrors.NewConfigError("profile has no header tokens", nil)
	}
	for _, f := range p.RequiredColumns {
		if !domain.IsCanonicalField(f) {
			return nil, apperrors.NewConfigError(fmt.Sprintf("profile requires unknown column %q", f), nil)
		}
	}
	for label, f := range p.Aliases {
		if !domain.IsCanonicalField(f) {
			return nil, apperrors.NewConfigError(fmt.Sprintf("alias %q targets unknown column %q", label, f), nil)
		}
	}
	for i := range p.LegacyOffsets {
		re, err := regexp.Compile(p.LegacyOffsets[i].Pattern)
		if err != nil {
			return nil, apperrors.NewConfigError("compile legacy offset pattern", err)
		}
		if p.LegacyOffsets[i].Offset < 0 {
			return nil, apperrors.NewConfigError("legacy offset must not be negative", nil)
		}
		p.LegacyOffsets[i].re = re
	}
	return &p, nil
}

// ResolveColumn maps a raw header label to a unified field name, or "" when
// the label names no unified field.
func (p *Profile) ResolveColumn(label string) string {
	key := table.ColumnKey(label)
	if key == "" {
		return ""
	}
	if f, ok := p.Aliases[key]; ok {
		return f
	}
	for _, ap := range p.AliasPrefixes {
		if strings.HasPrefix(key, ap.Prefix) {
			return ap.Field
		}
	}
	if key != domain.FieldDollarPerSquareFoot && domain.IsCanonicalField(key) {
		return key
	}
	return ""
}

// LegacyOffsetFor returns the fallback header offset for a file name.
func (p *Profile) LegacyOffsetFor(fileName string) (int, bool) {
	for _, lo := range p.LegacyOffsets {
		if lo.re.MatchString(fileName) {
			return lo.Offset, true
		}
	}
	return 0, false
}
