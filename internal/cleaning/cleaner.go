package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/infrastructure"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
)

// maxExcludedSamples bounds the excluded rows kept for the run report.
const maxExcludedSamples = 20

// Report summarizes one cleaning run.
type Report struct {
	RulesVersion     string
	RowsIn           int
	RowsOut          int
	BlankRowsDropped int
	Duplicates       int
	Excluded         map[string]int
	ExcludedSamples  []Exclusion
	UnmappedBoroughs map[string]int
	Steps            []StepReport
}

// Cleaner runs the registered steps in order over a unified table.
type Cleaner struct {
	registry  *Registry
	rules     *Rules
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
}

// NewCleaner creates a cleaner for the built-in steps. telemetry may be nil.
func NewCleaner(rules *Rules, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Cleaner {
	return NewCleanerWithRegistry(NewDefaultRegistry(rules), rules, logger, telemetry)
}

// NewCleanerWithRegistry creates a cleaner for an explicit step set.
func NewCleanerWithRegistry(reg *Registry, rules *Rules, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		registry:  reg,
		rules:     rules,
		logger:    infrastructure.WithComponent(logger, "cleaning"),
		telemetry: telemetry,
	}
}

// Steps returns the step IDs in run order.
func (c *Cleaner) Steps() []string {
	return c.registry.ListIDs()
}

// Run applies every step to in and returns the cleaned table. in is not
// modified. A step error aborts the run.
func (c *Cleaner) Run(ctx context.Context, in *table.Table) (*table.Table, *Report, error) {
	rep := &Report{
		RowsIn:           in.Len(),
		Excluded:         make(map[string]int),
		UnmappedBoroughs: make(map[string]int),
	}
	if c.rules != nil {
		rep.RulesVersion = c.rules.Version
	}

	current := in
	for _, step := range c.registry.List() {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		next, sr, err := c.apply(ctx, step, current, rep)
		rep.Steps = append(rep.Steps, sr)
		if err != nil {
			return nil, rep, err
		}
		current = next
	}
	rep.RowsOut = current.Len()

	c.logger.InfoContext(ctx, "Cleaning complete",
		slog.Int("rows_in", rep.RowsIn),
		slog.Int("rows_out", rep.RowsOut),
		slog.Int("blank_rows", rep.BlankRowsDropped),
		slog.Int("duplicates", rep.Duplicates),
		slog.Int("excluded", rep.TotalExcluded()),
		slog.String("rules_version", rep.RulesVersion))
	return current, rep, nil
}

func (c *Cleaner) apply(ctx context.Context, step Step, in *table.Table, rep *Report) (*table.Table, StepReport, error) {
	sr := StepReport{ID: step.ID(), Name: step.Name(), Status: StepStatusPending, RowsIn: in.Len()}

	spanCtx := ctx
	var end func(error)
	if c.telemetry != nil {
		sctx, span := c.telemetry.StartSpan(ctx, "cleaning."+step.ID(),
			attribute.String("step", step.ID()),
			attribute.Int("rows_in", in.Len()))
		spanCtx = sctx
		end = func(err error) { infrastructure.EndSpan(span, err) }
	}

	start := time.Now()
	res, err := step.Apply(spanCtx, in)
	sr.Duration = time.Since(start)
	if err == nil && res.Table == nil {
		err = fmt.Errorf("step %s returned no table", step.ID())
	}
	if end != nil {
		end(err)
	}
	if err != nil {
		sr.Status = StepStatusFailed
		sr.Error = err.Error()
		c.logger.ErrorContext(ctx, "Cleaning step failed",
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		return nil, sr, fmt.Errorf("cleaning step %s: %w", step.ID(), err)
	}

	sr.Status = StepStatusCompleted
	sr.RowsOut = res.Table.Len()
	sr.Removed = res.Removed
	sr.Excluded = len(res.Excluded)

	switch step.ID() {
	case StepDropBlankRows:
		rep.BlankRowsDropped += res.Removed
	default:
		rep.Duplicates += res.Removed
	}
	for _, ex := range res.Excluded {
		rep.Excluded[ex.Field]++
		if len(rep.ExcludedSamples) < maxExcludedSamples {
			rep.ExcludedSamples = append(rep.ExcludedSamples, ex)
		}
	}
	for code, n := range res.Unmapped {
		rep.UnmappedBoroughs[code] += n
	}

	if c.telemetry != nil && c.telemetry.Metrics != nil {
		c.telemetry.Metrics.RecordStep(ctx, step.ID(), sr.Duration)
		counts := countByField(res.Excluded)
		for _, field := range sortedKeys(counts) {
			c.telemetry.Metrics.RecordRowsExcluded(ctx, field, counts[field])
		}
	}

	c.logger.DebugContext(ctx, "Cleaning step completed",
		slog.String("step", step.ID()),
		slog.Int("rows_in", sr.RowsIn),
		slog.Int("rows_out", sr.RowsOut),
		slog.Duration("duration", sr.Duration))
	for _, code := range sortedKeys(res.Unmapped) {
		c.logger.WarnContext(ctx, "Unmapped borough code",
			slog.String("code", code),
			slog.Int("rows", res.Unmapped[code]))
	}
	return res.Table, sr, nil
}

// TotalExcluded sums the excluded-row counts over all fields.
func (r *Report) TotalExcluded() int {
	total := 0
	for _, n := range r.Excluded {
		total += n
	}
	return total
}

func countByField(ex []Exclusion) map[string]int {
	out := make(map[string]int)
	for _, e := range ex {
		out[e.Field]++
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
