package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// Sink writes the canonical table to the production directory.
type Sink struct {
	dir     string
	name    string
	formats []string
	csv     *CSVWriter
	logger  *slog.Logger
}

// NewSink creates a sink writing <dir>/<name>.<format> for each format. Any
// extension on name is dropped. CSV is always written; formats may add xlsx.
func NewSink(dir, name string, formats []string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = config.DefaultOutputName
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return &Sink{
		dir:     dir,
		name:    name,
		formats: formats,
		csv:     NewCSVWriter(nil),
		logger:  logger,
	}
}

// CSVPath returns the path of the canonical CSV.
func (s *Sink) CSVPath() string {
	return filepath.Join(s.dir, s.name+".csv")
}

// XLSXPath returns the path of the spreadsheet copy.
func (s *Sink) XLSXPath() string {
	return filepath.Join(s.dir, s.name+".xlsx")
}

// Write replaces the sink outputs with t and returns the paths written. The
// CSV carries the canonical columns in order with a header row and no index.
func (s *Sink) Write(ctx context.Context, t *table.Table) ([]string, error) {
	t = t.Select(domain.CanonicalFields())

	if err := s.csv.WriteCSV(s.CSVPath(), WriteOptions{
		Headers: t.Columns(),
		Records: FormatRecords(t),
	}); err != nil {
		return nil, err
	}
	written := []string{s.CSVPath()}

	for _, f := range s.formats {
		if f != config.OutputFormatXLSX {
			continue
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := WriteXLSX(s.XLSXPath(), t); err != nil {
			return written, err
		}
		written = append(written, s.XLSXPath())
	}

	s.logger.InfoContext(ctx, "Wrote canonical output",
		slog.Int("rows", t.Len()),
		slog.Any("paths", written))
	return written, nil
}

// ReadCanonicalCSV reads a file written by Sink.Write back into a typed table.
func ReadCanonicalCSV(path string) (*table.Table, error) {
	headers, records, err := ReadCSV(path)
	if err != nil {
		return nil, apperrors.NewParsingError("read canonical csv", err)
	}
	if len(headers) == 0 {
		return table.Empty(domain.CanonicalFields()), nil
	}
	for _, h := range headers {
		if !domain.IsCanonicalField(h) {
			return nil, apperrors.NewParsingError(fmt.Sprintf("unexpected column %q in %s", h, path), nil)
		}
	}

	rows := make([]table.Row, len(records))
	for i, rec := range records {
		row := make(table.Row, len(headers))
		for j, h := range headers {
			if j >= len(rec) {
				break
			}
			v, err := ParseCell(h, rec[j])
			if err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("row %d column %s", i+2, h), err)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return table.New(headers, rows).Select(domain.CanonicalFields()), nil
}
