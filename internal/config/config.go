package config

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

// Config represents the complete ETL configuration
type Config struct {
	ParentDir       string `envconfig:"PARENT_DIR" validate:"required"`
	SalesURL        string `envconfig:"SALES_URL" default:"https://www.nyc.gov/site/finance/property/property-annualized-sales-update.page" validate:"required,url"`
	SalesSkipTables int    `envconfig:"SALES_SKIP_TABLE" default:"1" validate:"min=0"`
	RollingSalesURL string `envconfig:"ROLLING_SALES_URL" validate:"omitempty,url"`
	BaseURL         string `envconfig:"BASE_URL" validate:"omitempty,url"`
	ListingMode     string `envconfig:"LISTING_MODE" default:"http" validate:"oneof=http browser"`

	RulesFile   string `envconfig:"RULES_FILE"`
	ProfileFile string `envconfig:"PROFILE_FILE"`

	OutputName    string   `envconfig:"OUTPUT_NAME" default:"nyc_property_sales.csv" validate:"required"`
	OutputFormats []string `envconfig:"OUTPUT_FORMATS" default:"csv" validate:"min=1,dive,oneof=csv xlsx"`

	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	TraceExporter  string `envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=none stdout"`

	Fetch   FetchConfig   `envconfig:"FETCH"`
	Logging LoggingConfig `envconfig:"LOG"`
	Publish PublishConfig `envconfig:"PUBLISH"`
	DB      DBConfig      `envconfig:"DB"`
}

// FetchConfig controls how source files are downloaded
type FetchConfig struct {
	Parallel int           `envconfig:"PARALLEL" default:"4" validate:"min=1,max=32"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"60s" validate:"gt=0"`
	Rate     float64       `envconfig:"RATE" default:"4" validate:"gte=0"`
	Policy   string        `envconfig:"POLICY" default:"abort" validate:"oneof=abort skip"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Output string `envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	File   string `envconfig:"FILE"`
}

// PublishConfig describes the optional destination the output is copied to
// after a run: an S3-compatible bucket, or a directory when Dir is set.
type PublishConfig struct {
	Dir       string `envconfig:"DIR"`
	Bucket    string `envconfig:"BUCKET"`
	Region    string `envconfig:"REGION" default:"us-east-1"`
	Endpoint  string `envconfig:"ENDPOINT" validate:"omitempty,url"`
	PathStyle bool   `envconfig:"PATH_STYLE"`
	Prefix    string `envconfig:"PREFIX"`
}

// Enabled reports whether publication is configured.
func (p PublishConfig) Enabled() bool {
	return p.Bucket != "" || p.Dir != ""
}

// DBConfig is read by the loader command only.
type DBConfig struct {
	Driver string `envconfig:"DRIVER" default:"sqlite" validate:"oneof=sqlite pgx"`
	DSN    string `envconfig:"DSN"`
	Table  string `envconfig:"TABLE" default:"property_sales" validate:"required,sqlident"`
}

// SourceConfig describes one listing page and which of its links to keep.
type SourceConfig struct {
	Name       string
	URL        string
	BaseURL    string
	SkipTables int
	// MaxTables limits how many tables after the skipped ones are scanned; 0 scans all.
	MaxTables  int
	Extensions []string
	// Subdir places downloads below the raw directory.
	Subdir string
}

// Load reads an optional env file, then the process environment, and validates
// the result. envFile may be empty, in which case ./.env is used when present.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" && FileExists(".env") {
		envFile = ".env"
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, apperrors.NewConfigError("load env file "+envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, apperrors.NewConfigError("read environment", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	validate   = newValidator()
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return identifier.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}
	if c.DB.Driver == "pgx" && c.DB.DSN == "" {
		return apperrors.NewConfigError("DB_DSN is required for the pgx driver", nil)
	}
	return nil
}

func (c *Config) normalize() {
	if c.ParentDir != "" {
		if abs, err := filepath.Abs(c.ParentDir); err == nil {
			c.ParentDir = abs
		}
	}
	for i, f := range c.OutputFormats {
		c.OutputFormats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(c.ParentDir, DefaultLogsDir, DefaultLogFile)
	}
}

// Paths returns the staging layout under PARENT_DIR.
func (c *Config) Paths() *Paths {
	return NewPaths(c.ParentDir)
}

// WantsFormat reports whether the sink should write the given output format.
func (c *Config) WantsFormat(format string) bool {
	for _, f := range c.OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Sources returns the listing pages to scrape in a fixed order: the annualized
// sales page first, then the rolling sales page when configured.
func (c *Config) Sources() []SourceConfig {
	sources := []SourceConfig{{
		Name:       "annualized",
		URL:        c.SalesURL,
		BaseURL:    c.BaseURL,
		SkipTables: c.SalesSkipTables,
		Extensions: []string{".xls", ".xlsx"},
	}}
	if c.RollingSalesURL != "" {
		sources = append(sources, SourceConfig{
			Name:       "rolling",
			URL:        c.RollingSalesURL,
			BaseURL:    c.BaseURL,
			MaxTables:  1,
			Extensions: []string{".xlsx"},
			Subdir:     DefaultRollingDir,
		})
	}
	return sources
}
