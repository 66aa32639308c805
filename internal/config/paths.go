package config

import (
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

// Paths contains every directory a run reads from or writes to.
// All of them hang off the configured parent directory.
type Paths struct {
	ParentDir  string
	DataDir    string
	RawDir     string
	RollingDir string
	StageDir   string
	ProdDir    string
	LogsDir    string
}

// NewPaths lays out the staging tree under parent:
//
//	parent/
//	  ├── data/
//	  │   ├── raw/                (downloaded originals)
//	  │   │   └── rolling_sales/  (rolling sales workbooks)
//	  │   ├── stage/              (per-file normalized CSV)
//	  │   └── prod/               (canonical table)
//	  └── logs/                   (logs, run report, metrics)
func NewPaths(parent string) *Paths {
	dataDir := filepath.Join(parent, DefaultDataDir)
	rawDir := filepath.Join(dataDir, DefaultRawDir)
	return &Paths{
		ParentDir:  parent,
		DataDir:    dataDir,
		RawDir:     rawDir,
		RollingDir: filepath.Join(rawDir, DefaultRollingDir),
		StageDir:   filepath.Join(dataDir, DefaultStageDir),
		ProdDir:    filepath.Join(dataDir, DefaultProdDir),
		LogsDir:    filepath.Join(parent, DefaultLogsDir),
	}
}

// EnsureDirectories creates every staging directory. A directory that cannot be
// created means the run cannot produce output, so the error is fatal.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.StageDir,
		p.ProdDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := EnsureDir(dir); err != nil {
			return err
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// EnsureDir creates dir and any missing parent, reusing it when it exists.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewFatalIOError("create directory "+dir, err).WithContext("directory", dir)
	}
	return nil
}

// GetRawPath returns the path of a downloaded file in the raw directory.
func (p *Paths) GetRawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetStagePath returns the path of a per-file stage table.
func (p *Paths) GetStagePath(filename string) string {
	return filepath.Join(p.StageDir, filename)
}

// GetProdPath returns the path of a production output file.
func (p *Paths) GetProdPath(filename string) string {
	return filepath.Join(p.ProdDir, filename)
}

// GetLogPath returns the path of a file in the logs directory.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// RunReportPath is where the JSON run report is written.
func (p *Paths) RunReportPath() string {
	return p.GetLogPath(RunReportFileName)
}

// MetricsPath is where the Prometheus textfile is written.
func (p *Paths) MetricsPath() string {
	return p.GetLogPath(MetricsFileName)
}

// LogPathResolution logs the resolved layout once at startup.
func (p *Paths) LogPathResolution() {
	slog.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("parent", p.ParentDir),
			slog.String("raw", p.RawDir),
			slog.String("rolling", p.RollingDir),
			slog.String("stage", p.StageDir),
			slog.String("prod", p.ProdDir),
			slog.String("logs", p.LogsDir),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
