package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/files"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// WriteReport replaces the JSON run report at path.
func WriteReport(path string, rep *domain.RunReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return apperrors.NewFatalIOError("encode run report", err)
	}
	return files.WriteFileAtomic(path, append(data, '\n'))
}

// ReadReport reads a run report written by WriteReport.
func ReadReport(r io.Reader) (*domain.RunReport, error) {
	var rep domain.RunReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &rep, nil
}

// WriteSummary prints the human-readable completion report.
func WriteSummary(w io.Writer, rep *domain.RunReport) {
	fmt.Fprintf(w, "Run %s\n", rep.RunID)
	if rep.LinksFound > 0 || rep.FilesFetched > 0 {
		fmt.Fprintf(w, "  links found:       %d\n", rep.LinksFound)
		fmt.Fprintf(w, "  files fetched:     %d\n", rep.FilesFetched)
	}
	fmt.Fprintf(w, "  files processed:   %d of %d\n", rep.FilesProcessed, rep.FilesDiscovered)
	fmt.Fprintf(w, "  files skipped:     %d\n", len(rep.FilesSkipped))
	for _, s := range rep.FilesSkipped {
		fmt.Fprintf(w, "    - %s [%s] %s\n", s.Path, s.ErrorType, s.Reason)
	}
	fmt.Fprintf(w, "  rows read:         %d\n", rep.RowsRead)
	fmt.Fprintf(w, "  blank rows:        %d\n", rep.BlankRowsDropped)
	fmt.Fprintf(w, "  duplicates:        %d\n", rep.DuplicatesRemoved)
	fmt.Fprintf(w, "  rows excluded:     %d\n", rep.TotalRowsExcluded())
	for _, reason := range rep.ExclusionReasons() {
		fmt.Fprintf(w, "    - %s: %d\n", reason, rep.RowsExcluded[reason])
	}
	if len(rep.UnmappedBoroughs) > 0 {
		codes := make([]string, 0, len(rep.UnmappedBoroughs))
		for c := range rep.UnmappedBoroughs {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		fmt.Fprintf(w, "  unmapped boroughs:\n")
		for _, c := range codes {
			fmt.Fprintf(w, "    - %q: %d\n", c, rep.UnmappedBoroughs[c])
		}
	}
	fmt.Fprintf(w, "  final rows:        %d\n", rep.FinalRows)
	for _, p := range rep.OutputPaths {
		fmt.Fprintf(w, "  output:            %s\n", p)
	}
	for _, p := range rep.PublishedTo {
		fmt.Fprintf(w, "  published:         %s\n", p)
	}
	if rep.Error != "" {
		fmt.Fprintf(w, "  error:             %s\n", rep.Error)
	}
}
