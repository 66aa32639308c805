package cleaning

import (
	"context"
	"time"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
)

// Step is one pure transformation of the cleaning pipeline.
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Dependencies returns the IDs of steps that must run before this one
	Dependencies() []string

	// Apply transforms in and returns a new table; in is never modified
	Apply(ctx context.Context, in *table.Table) (Result, error)
}

// Result is the output of one step.
type Result struct {
	Table *table.Table
	// Removed counts rows dropped as blank or duplicate.
	Removed int
	// Excluded lists rows removed because a required field failed coercion.
	Excluded []Exclusion
	// Unmapped counts codes with no entry in a lookup table, by code.
	Unmapped map[string]int
}

// Exclusion describes one excluded row.
type Exclusion struct {
	Field  string
	Value  string
	Reason string
}

// StepFunc is the transformation a step performs.
type StepFunc func(ctx context.Context, in *table.Table) (Result, error)

type funcStep struct {
	id   string
	name string
	deps []string
	fn   StepFunc
}

// NewStep builds a Step from a function.
func NewStep(id, name string, deps []string, fn StepFunc) Step {
	return &funcStep{id: id, name: name, deps: deps, fn: fn}
}

func (s *funcStep) ID() string             { return s.id }
func (s *funcStep) Name() string           { return s.name }
func (s *funcStep) Dependencies() []string { return append([]string(nil), s.deps...) }

func (s *funcStep) Apply(ctx context.Context, in *table.Table) (Result, error) {
	return s.fn(ctx, in)
}

// StepStatus represents the outcome of a step in a run
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepReport records what one step did during a run.
type StepReport struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Removed  int           `json:"removed,omitempty"`
	Excluded int           `json:"excluded,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}
