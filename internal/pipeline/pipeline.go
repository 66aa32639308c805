package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/cleaning"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/dataprocessing"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/exporter"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/fetcher"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/infrastructure"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/locator"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/publish"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/validation"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// Deps are optional collaborators. Zero values are built from configuration.
type Deps struct {
	Logger     *slog.Logger
	Telemetry  *infrastructure.Telemetry
	Page       locator.PageSource
	HTTPClient *http.Client
	Publisher  *publish.Publisher
	Rules      *cleaning.Rules
	Profile    *dataprocessing.Profile
}

// RunOptions selects the phases of a run.
type RunOptions struct {
	Fetch   bool
	Process bool
}

// Pipeline wires the ETL components for one configuration.
type Pipeline struct {
	cfg        *config.Config
	paths      *config.Paths
	locator    *locator.Locator
	fetcher    *fetcher.Fetcher
	normalizer *dataprocessing.Normalizer
	cleaner    *cleaning.Cleaner
	sink       *exporter.Sink
	publisher  *publish.Publisher
	telemetry  *infrastructure.Telemetry
	rules      *cleaning.Rules
	profile    *dataprocessing.Profile
	logger     *slog.Logger
}

// New builds a pipeline. Correction rules and the ingest profile are loaded
// here, so a bad rules file fails before anything is downloaded.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	logger := deps.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	rules := deps.Rules
	if rules == nil {
		r, err := cleaning.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = r
	}
	profile := deps.Profile
	if profile == nil {
		p, err := dataprocessing.LoadProfile(cfg.ProfileFile)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	page := deps.Page
	if page == nil {
		page = locator.NewPageSource(cfg)
	}
	client := deps.HTTPClient
	if client == nil {
		client = infrastructure.NewHTTPClient(cfg.Fetch.Timeout)
	}

	paths := cfg.Paths()
	return &Pipeline{
		cfg:     cfg,
		paths:   paths,
		locator: locator.New(page, infrastructure.WithComponent(logger, "locator")),
		fetcher: fetcher.New(client, fetcher.Options{
			Parallel:  cfg.Fetch.Parallel,
			Rate:      cfg.Fetch.Rate,
			Policy:    cfg.Fetch.Policy,
			UserAgent: config.DefaultUserAgent,
		}, infrastructure.WithComponent(logger, "fetcher")),
		normalizer: dataprocessing.NewNormalizer(profile, infrastructure.WithComponent(logger, "normalizer")),
		cleaner:    cleaning.NewCleaner(rules, logger, deps.Telemetry),
		sink:       exporter.NewSink(paths.ProdDir, cfg.OutputName, cfg.OutputFormats, infrastructure.WithComponent(logger, "sink")),
		publisher:  deps.Publisher,
		telemetry:  deps.Telemetry,
		rules:      rules,
		profile:    profile,
		logger:     infrastructure.WithComponent(logger, "pipeline"),
	}, nil
}

// Paths returns the staging layout the pipeline works in.
func (p *Pipeline) Paths() *config.Paths {
	return p.paths
}

// Run executes the selected phases and returns the completion report. The
// report, and the metrics textfile when metrics are enabled, are written even
// when a phase fails; the phase error is returned alongside the report.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*domain.RunReport, error) {
	ctx, runID := infrastructure.EnsureRunID(ctx)
	rep := domain.NewRunReport(runID, time.Now().UTC())
	rep.RulesVersion = p.rules.Version
	rep.ProfileVersion = p.profile.Version

	p.logger.InfoContext(ctx, "Run starting",
		slog.Bool("fetch", opts.Fetch),
		slog.Bool("process", opts.Process),
		slog.String("parent_dir", p.paths.ParentDir))

	err := p.run(ctx, opts, rep)
	rep.FinishedAt = time.Now().UTC()
	if err != nil {
		rep.Error = err.Error()
		p.logger.ErrorContext(ctx, "Run failed", slog.String("error", err.Error()))
	}

	if werr := WriteReport(p.paths.RunReportPath(), rep); werr != nil {
		p.logger.ErrorContext(ctx, "Failed to write run report", slog.String("error", werr.Error()))
		if err == nil {
			err = werr
		}
	}
	if p.telemetry != nil {
		if werr := p.telemetry.WriteTextfile(p.paths.MetricsPath()); werr != nil {
			p.logger.WarnContext(ctx, "Failed to write metrics", slog.String("error", werr.Error()))
		}
	}

	if err == nil {
		p.logger.InfoContext(ctx, "Run complete",
			slog.Int("files_processed", rep.FilesProcessed),
			slog.Int("files_skipped", len(rep.FilesSkipped)),
			slog.Int("rows_excluded", rep.TotalRowsExcluded()),
			slog.Int("final_rows", rep.FinalRows),
			slog.Duration("duration", rep.FinishedAt.Sub(rep.StartedAt)))
	}
	return rep, err
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions, rep *domain.RunReport) error {
	if err := p.paths.EnsureDirectories(); err != nil {
		return err
	}
	dirs := validation.NewDirValidator(p.logger)
	if err := dirs.ValidateAll(p.paths.RawDir, p.paths.StageDir, p.paths.ProdDir, p.paths.LogsDir); err != nil {
		return err
	}
	if opts.Fetch {
		if err := p.Fetch(ctx, rep); err != nil {
			return err
		}
	}
	if opts.Process {
		if err := p.Process(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}

// Fetch locates every configured source and downloads its files into the raw
// directory. A listing page that cannot be read aborts before any download.
func (p *Pipeline) Fetch(ctx context.Context, rep *domain.RunReport) (err error) {
	ctx, end := p.span(ctx, "pipeline.fetch")
	defer func() { end(err) }()

	sources := p.cfg.Sources()
	for _, src := range sources {
		rep.Sources = append(rep.Sources, src.URL)
	}

	links, err := p.locator.LocateAll(ctx, sources)
	if err != nil {
		return err
	}
	rep.LinksFound = len(links)
	if len(links) == 0 {
		p.logger.WarnContext(ctx, "No spreadsheet links found on the listing pages")
		return nil
	}

	jobs := make([]fetcher.Job, len(links))
	for i, l := range links {
		dir := p.paths.RawDir
		if l.Source.Subdir != "" {
			dir = filepath.Join(p.paths.RawDir, l.Source.Subdir)
		}
		jobs[i] = fetcher.Job{URL: l.URL, Dir: dir}
	}

	res, err := p.fetcher.FetchAll(ctx, jobs)
	if err != nil {
		return err
	}
	rep.FilesFetched = len(res.Files)
	rep.FilesSkipped = append(rep.FilesSkipped, res.Skipped...)

	if m := p.metrics(); m != nil {
		m.FilesFetched.Add(ctx, int64(len(res.Files)))
		for _, s := range res.Skipped {
			m.RecordFileSkipped(ctx, s.ErrorType)
		}
	}
	return nil
}

// Process normalizes the raw directory, cleans the unified table and writes
// the canonical output. Files that cannot be normalized are skipped.
func (p *Pipeline) Process(ctx context.Context, rep *domain.RunReport) (err error) {
	ctx, end := p.span(ctx, "pipeline.process")
	defer func() { end(err) }()

	nres, err := p.normalizer.NormalizeDir(ctx, p.paths.RawDir, p.paths.StageDir)
	if err != nil {
		return err
	}
	rep.FilesDiscovered = nres.Discovered
	rep.FilesProcessed = len(nres.Staged)
	rep.FilesSkipped = append(rep.FilesSkipped, nres.Skipped...)
	if m := p.metrics(); m != nil {
		for _, s := range nres.Skipped {
			m.RecordFileSkipped(ctx, s.ErrorType)
		}
	}

	unified, err := dataprocessing.ReadStageDir(p.paths.StageDir)
	if err != nil {
		return err
	}
	rep.RowsRead = unified.Len()
	if m := p.metrics(); m != nil {
		m.RowsRead.Add(ctx, int64(unified.Len()))
	}
	p.logger.InfoContext(ctx, "Unified table assembled",
		slog.Int("files", len(nres.Staged)),
		slog.Int("rows", unified.Len()))

	cleaned, crep, err := p.cleaner.Run(ctx, unified)
	if crep != nil {
		applyCleaningReport(rep, crep)
	}
	if err != nil {
		return err
	}

	written, err := p.sink.Write(ctx, cleaned)
	if err != nil {
		return err
	}
	rep.OutputPaths = written
	rep.FinalRows = cleaned.Len()
	if m := p.metrics(); m != nil {
		m.RowsWritten.Add(ctx, int64(cleaned.Len()))
	}

	if p.publisher != nil {
		locations, err := p.publisher.Publish(ctx, written)
		rep.PublishedTo = locations
		if err != nil {
			return err
		}
	}
	return nil
}

// ExclusionReason is the run report key for rows excluded because field
// failed required coercion, e.g. "ROW_COERCION:sale_date".
func ExclusionReason(field string) string {
	return string(apperrors.ErrTypeRowCoercion) + ":" + field
}

func applyCleaningReport(rep *domain.RunReport, crep *cleaning.Report) {
	for field, n := range crep.Excluded {
		rep.RowsExcluded[ExclusionReason(field)] += n
	}
	for _, ex := range crep.ExcludedSamples {
		rep.ExcludedSamples = append(rep.ExcludedSamples, domain.ExcludedRow{
			Field:  ex.Field,
			Value:  ex.Value,
			Reason: ex.Reason,
		})
	}
	rep.BlankRowsDropped = crep.BlankRowsDropped
	rep.DuplicatesRemoved = crep.Duplicates
	for code, n := range crep.UnmappedBoroughs {
		rep.UnmappedBoroughs[code] += n
	}
}

func (p *Pipeline) metrics() *infrastructure.ETLMetrics {
	if p.telemetry == nil {
		return nil
	}
	return p.telemetry.Metrics
}

// span starts a phase span when tracing is configured. The returned func ends
// it, recording err.
func (p *Pipeline) span(ctx context.Context, name string) (context.Context, func(error)) {
	if p.telemetry == nil {
		return ctx, func(error) {}
	}
	sctx, span := p.telemetry.StartSpan(ctx, name,
		attribute.String("run_id", infrastructure.GetRunID(ctx)))
	return sctx, func(err error) { infrastructure.EndSpan(span, err) }
}
