// Package validation checks that the staging tree can be used before a run
// starts writing into it.
package validation

import (
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

// DirValidator probes staging directories.
type DirValidator struct {
	logger *slog.Logger
}

// NewDirValidator creates a new directory validator
func NewDirValidator(logger *slog.Logger) *DirValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirValidator{logger: logger}
}

// ValidateWritable creates dir when missing and checks a file can be created
// in it. Failure is FATAL_IO: a run that cannot write its outputs must not start.
func (v *DirValidator) ValidateWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewFatalIOError("create directory "+dir, err).WithContext("directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewFatalIOError("directory "+dir+" is not writable", err).WithContext("directory", dir)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("Directory validated", slog.String("directory", dir))
	return nil
}

// ValidateAll validates each directory in order and stops at the first failure.
func (v *DirValidator) ValidateAll(dirs ...string) error {
	for _, dir := range dirs {
		if err := v.ValidateWritable(filepath.Clean(dir)); err != nil {
			return err
		}
	}
	return nil
}
