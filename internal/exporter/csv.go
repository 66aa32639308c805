package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/files"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance. Relative paths are resolved
// against the production directory; paths may be nil when every path is
// absolute.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, replacing any file already at the path.
// The file only becomes visible once it is complete.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	return files.WriteAtomic(fullPath, func(out io.Writer) error {
		if options.BOMPrefix {
			if _, err := out.Write(utf8BOM); err != nil {
				return apperrors.NewFatalIOError("write BOM", err)
			}
		}

		writer := csv.NewWriter(out)
		if len(options.Headers) > 0 {
			if err := writer.Write(options.Headers); err != nil {
				return apperrors.NewFatalIOError("write headers", err)
			}
		}
		for i, record := range options.Records {
			if err := writer.Write(record); err != nil {
				return apperrors.NewFatalIOError(fmt.Sprintf("write record %d", i), err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return apperrors.NewFatalIOError("flush "+fullPath, err)
		}
		return nil
	})
}

// ReadCSV reads a CSV file written by WriteCSV and returns its header row and
// records. A leading UTF-8 BOM is ignored.
func ReadCSV(filePath string) ([]string, [][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	reader := csv.NewReader(skipBOM(f))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

func skipBOM(r io.Reader) io.Reader {
	buf := make([]byte, len(utf8BOM))
	n, _ := io.ReadFull(r, buf)
	if n == len(utf8BOM) && bytes.Equal(buf, utf8BOM) {
		return r
	}
	return io.MultiReader(bytes.NewReader(buf[:n]), r)
}

// resolvePath resolves a relative path against the production directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetProdPath(filePath)
}
