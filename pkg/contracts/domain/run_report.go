package domain

import (
	"sort"
	"time"
)

// SkippedFile records a source file that was excluded from a run.
type SkippedFile struct {
	Path      string `json:"path"`
	Reason    string `json:"reason"`
	ErrorType string `json:"error_type"`
}

// ExcludedRow records a row removed by a required-field coercion failure.
type ExcludedRow struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// RunReport is the completion report of one pipeline run.
type RunReport struct {
	RunID             string         `json:"run_id"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
	RulesVersion      string         `json:"rules_version,omitempty"`
	ProfileVersion    int            `json:"profile_version,omitempty"`
	Sources           []string       `json:"sources,omitempty"`
	LinksFound        int            `json:"links_found"`
	FilesFetched      int            `json:"files_fetched"`
	FilesDiscovered   int            `json:"files_discovered"`
	FilesProcessed    int            `json:"files_processed"`
	FilesSkipped      []SkippedFile  `json:"files_skipped"`
	RowsRead          int            `json:"rows_read"`
	RowsExcluded      map[string]int `json:"rows_excluded"`
	ExcludedSamples   []ExcludedRow  `json:"excluded_samples,omitempty"`
	BlankRowsDropped  int            `json:"blank_rows_dropped"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	UnmappedBoroughs  map[string]int `json:"unmapped_boroughs,omitempty"`
	FinalRows         int            `json:"final_rows"`
	OutputPaths       []string       `json:"output_paths,omitempty"`
	PublishedTo       []string       `json:"published_to,omitempty"`
	Error             string         `json:"error,omitempty"`
}

// NewRunReport returns an empty report for the given run.
func NewRunReport(runID string, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:            runID,
		StartedAt:        startedAt,
		FilesSkipped:     []SkippedFile{},
		RowsExcluded:     make(map[string]int),
		UnmappedBoroughs: make(map[string]int),
	}
}

// TotalRowsExcluded sums the excluded-row counts over all reasons.
func (r *RunReport) TotalRowsExcluded() int {
	total := 0
	for _, n := range r.RowsExcluded {
		total += n
	}
	return total
}

// ExclusionReasons returns the excluded-row reasons in sorted order.
func (r *RunReport) ExclusionReasons() []string {
	reasons := make([]string, 0, len(r.RowsExcluded))
	for reason := range r.RowsExcluded {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
