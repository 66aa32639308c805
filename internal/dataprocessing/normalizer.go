package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/exporter"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/files"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// Structure is where a file's data starts and how its columns map.
type Structure struct {
	Sheet     string
	HeaderRow int
	// Fallback is true when the header row came from the legacy offset table.
	Fallback bool
	Columns  map[string]int
}

// StagedFile is one source file written to the stage directory.
type StagedFile struct {
	Source    string
	StagePath string
	Structure Structure
	Rows      int
}

// NormalizeResult collects the outcome of normalizing a raw directory.
type NormalizeResult struct {
	Discovered int
	Staged     []StagedFile
	Skipped    []domain.SkippedFile
}

// Normalizer turns raw workbooks into text tables over the unified fields.
type Normalizer struct {
	profile *Profile
	logger  *slog.Logger
}

// NewNormalizer creates a Normalizer driven by profile.
func NewNormalizer(profile *Profile, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{profile: profile, logger: logger}
}

// MapColumns maps each unified field to the index of the header cell naming
// it. The first occurrence of a field wins.
func (n *Normalizer) MapColumns(header []any) map[string]int {
	cols := make(map[string]int)
	for j, cell := range header {
		text, ok := CellText(cell)
		if !ok {
			continue
		}
		field := n.profile.ResolveColumn(text)
		if field == "" {
			continue
		}
		if _, exists := cols[field]; !exists {
			cols[field] = j
		}
	}
	return cols
}

func (n *Normalizer) hasRequired(cols map[string]int) bool {
	for _, f := range n.profile.RequiredColumns {
		if _, ok := cols[f]; !ok {
			return false
		}
	}
	return true
}

// DetectStructure finds the header row of a workbook. Sheets are probed in
// order; when no sheet has a header token, the legacy offset for the file name
// is tried on each sheet. A header row that lacks the required columns does not
// count.
func (n *Normalizer) DetectStructure(path string, sheets []Sheet) (Structure, error) {
	for _, sh := range sheets {
		idx, ok := DetectHeaderRow(sh.Rows, n.profile.HeaderTokens)
		if !ok {
			continue
		}
		cols := n.MapColumns(sh.Rows[idx])
		if n.hasRequired(cols) {
			return Structure{Sheet: sh.Name, HeaderRow: idx, Columns: cols}, nil
		}
		n.logger.Warn("Header row lacks required columns",
			slog.String("file", path),
			slog.String("sheet", sh.Name),
			slog.Int("row", idx))
	}

	if offset, ok := n.profile.LegacyOffsetFor(filepath.Base(path)); ok {
		for _, sh := range sheets {
			if offset >= len(sh.Rows) {
				continue
			}
			cols := n.MapColumns(sh.Rows[offset])
			if n.hasRequired(cols) {
				return Structure{Sheet: sh.Name, HeaderRow: offset, Fallback: true, Columns: cols}, nil
			}
		}
	}

	return Structure{}, apperrors.NewStructureNotFoundError(path,
		fmt.Sprintf("no row starts with %s", strings.Join(n.profile.HeaderTokens, "/")))
}

// NormalizeFile reads one workbook and returns its data rows as a text table
// whose columns are exactly the unified fields in order. Fields the file does
// not carry are empty text.
func (n *Normalizer) NormalizeFile(path string) (*table.Table, Structure, error) {
	sheets, err := ReadWorkbook(path)
	if err != nil {
		return nil, Structure{}, err
	}
	st, err := n.DetectStructure(path, sheets)
	if err != nil {
		return nil, Structure{}, err
	}

	var rows [][]any
	for _, sh := range sheets {
		if sh.Name == st.Sheet {
			rows = sh.Rows
			break
		}
	}

	fields := domain.UnifiedFields()
	out := make([]table.Row, 0, len(rows)-st.HeaderRow-1)
	for _, raw := range rows[st.HeaderRow+1:] {
		row := make(table.Row, len(fields))
		for i, f := range fields {
			text := ""
			if j, ok := st.Columns[f]; ok && j < len(raw) {
				text = ValueText(raw[j])
			}
			row[i] = text
		}
		out = append(out, row)
	}
	return table.New(fields, out), st, nil
}

// StageFileName derives a stable stage file name from a path relative to the
// raw directory: "rolling_sales/x.xlsx" becomes "rolling_sales__x.xlsx.csv".
func StageFileName(relPath string) string {
	return strings.ReplaceAll(filepath.ToSlash(relPath), "/", "__") + ".csv"
}

// NormalizeDir normalizes every file under rawDir into stageDir, replacing the
// stage files of earlier runs. Per-file failures are logged and reported as
// skipped; only I/O failures on the stage directory abort.
func (n *Normalizer) NormalizeDir(ctx context.Context, rawDir, stageDir string) (*NormalizeResult, error) {
	found, err := files.NewDiscovery("").FindSourceFiles(rawDir)
	if err != nil {
		return nil, apperrors.NewFatalIOError("list raw directory", err)
	}
	if err := files.ClearDir(stageDir, ".csv"); err != nil {
		return nil, err
	}

	writer := exporter.NewCSVWriter(nil)
	res := &NormalizeResult{Discovered: len(found)}
	for _, f := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tbl, st, err := n.NormalizeFile(f.Path)
		if err != nil {
			if !apperrors.IsRecoverable(err) {
				return nil, err
			}
			t, _ := apperrors.TypeOf(err)
			n.logger.WarnContext(ctx, "Skipping source file",
				slog.String("file", f.RelPath),
				slog.String("error_type", string(t)),
				slog.String("error", err.Error()))
			res.Skipped = append(res.Skipped, domain.SkippedFile{
				Path:      f.RelPath,
				Reason:    err.Error(),
				ErrorType: string(t),
			})
			continue
		}

		stagePath := filepath.Join(stageDir, StageFileName(f.RelPath))
		if err := writer.WriteCSV(stagePath, exporter.WriteOptions{
			Headers: tbl.Columns(),
			Records: textRecords(tbl),
		}); err != nil {
			return nil, err
		}

		n.logger.InfoContext(ctx, "Normalized source file",
			slog.String("file", f.RelPath),
			slog.String("sheet", st.Sheet),
			slog.Int("header_row", st.HeaderRow),
			slog.Bool("legacy_offset", st.Fallback),
			slog.Int("rows", tbl.Len()))
		res.Staged = append(res.Staged, StagedFile{
			Source:    f.RelPath,
			StagePath: stagePath,
			Structure: st,
			Rows:      tbl.Len(),
		})
	}
	return res, nil
}

func textRecords(t *table.Table) [][]string {
	out := make([][]string, t.Len())
	for i, r := range t.Rows() {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = ValueText(v)
		}
		out[i] = rec
	}
	return out
}

// ReadStageDir concatenates every stage file in name order into one text table.
func ReadStageDir(stageDir string) (*table.Table, error) {
	found, err := files.NewDiscovery("").FindCSVFiles(stageDir)
	if err != nil {
		return nil, apperrors.NewFatalIOError("list stage directory", err)
	}

	tables := make([]*table.Table, 0, len(found))
	for _, f := range found {
		t, err := ReadStageFile(f.Path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return table.Empty(domain.UnifiedFields()), nil
	}
	out, err := table.Concat(tables...)
	if err != nil {
		return nil, apperrors.NewParsingError("combine stage files", err)
	}
	return out, nil
}

// ReadStageFile reads one stage CSV as a text table.
func ReadStageFile(path string) (*table.Table, error) {
	headers, records, err := exporter.ReadCSV(path)
	if err != nil {
		return nil, apperrors.NewParsingError("read stage file", err)
	}
	rows := make([]table.Row, len(records))
	for i, rec := range records {
		row := make(table.Row, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		rows[i] = row
	}
	return table.New(headers, rows), nil
}
