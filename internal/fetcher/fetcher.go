// Package fetcher downloads source spreadsheets into the raw staging directory.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/files"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

// Job is one URL and the directory its file lands in.
type Job struct {
	URL string
	Dir string
}

// Options controls fan-out, politeness and failure handling.
type Options struct {
	// Parallel bounds the number of concurrent downloads.
	Parallel int
	// Rate is the request rate limit per second; 0 disables limiting.
	Rate float64
	// Policy is config.FetchPolicyAbort or config.FetchPolicySkip.
	Policy    string
	UserAgent string
}

// Result is the outcome of a batch.
type Result struct {
	Files   []domain.RawFileRecord
	Skipped []domain.SkippedFile
}

// Fetcher downloads files over HTTP.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

// New creates a Fetcher.
func New(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.Policy == "" {
		opts.Policy = config.FetchPolicyAbort
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	return &Fetcher{client: client, limiter: limiter, opts: opts, logger: logger}
}

// FileName derives the local file name of a download URL from its path.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in %s", rawURL)
	}
	return name, nil
}

// Download writes the body of rawURL, unmodified, to a file in dir named after
// the URL path and returns its path. dir is created when absent. The previous
// file, if any, is replaced only once the full body has arrived.
func (f *Fetcher) Download(ctx context.Context, rawURL, dir string) (string, error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", apperrors.NewFetchError(rawURL, err)
	}
	if err := config.EnsureDir(dir); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)

	if err := f.limiter.Wait(ctx); err != nil {
		return "", apperrors.NewFetchError(rawURL, err)
	}

	f.logger.DebugContext(ctx, "Starting file download",
		slog.String("url", rawURL),
		slog.String("destination", dest))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.NewFetchError(rawURL, err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.ErrorContext(ctx, "HTTP GET failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()))
		return "", apperrors.NewFetchError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.ErrorContext(ctx, "Bad HTTP status",
			slog.String("url", rawURL),
			slog.Int("status_code", resp.StatusCode))
		return "", apperrors.NewFetchError(rawURL, fmt.Errorf("bad status: %s", resp.Status)).
			WithContext("status", resp.StatusCode)
	}

	var written int64
	err = files.WriteAtomic(dest, func(w io.Writer) error {
		n, copyErr := io.Copy(w, resp.Body)
		written = n
		if copyErr != nil {
			return apperrors.NewFetchError(rawURL, copyErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	f.logger.InfoContext(ctx, "Downloaded file",
		slog.String("url", rawURL),
		slog.String("path", dest),
		slog.Int64("bytes", written))
	return dest, nil
}

// FetchAll downloads every job with at most Parallel downloads in flight.
// Under the abort policy the first failure cancels the batch and is returned.
// Under the skip policy failures are logged and reported in Result.Skipped.
// Result.Files keeps the job order. Jobs resolving to a destination already
// claimed by an earlier job are dropped.
func (f *Fetcher) FetchAll(ctx context.Context, jobs []Job) (*Result, error) {
	jobs = f.uniqueDestinations(ctx, jobs)

	paths := make([]string, len(jobs))
	failures := make([]error, len(jobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Parallel)
	for i, job := range jobs {
		g.Go(func() error {
			p, err := f.Download(gctx, job.URL, job.Dir)
			if err == nil {
				paths[i] = p
				return nil
			}
			if f.opts.Policy == config.FetchPolicySkip && !apperrors.IsType(err, apperrors.ErrTypeFatalIO) {
				f.logger.WarnContext(gctx, "Skipping file after fetch failure",
					slog.String("url", job.URL),
					slog.String("error", err.Error()))
				mu.Lock()
				failures[i] = err
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i, job := range jobs {
		if failures[i] != nil {
			t, _ := apperrors.TypeOf(failures[i])
			res.Skipped = append(res.Skipped, domain.SkippedFile{
				Path:      job.URL,
				Reason:    failures[i].Error(),
				ErrorType: string(t),
			})
			continue
		}
		res.Files = append(res.Files, domain.RawFileRecord{
			SourceURL: job.URL,
			LocalPath: paths[i],
			Format:    domain.FormatFromPath(paths[i]),
		})
	}
	return res, nil
}

func (f *Fetcher) uniqueDestinations(ctx context.Context, jobs []Job) []Job {
	seen := make(map[string]bool, len(jobs))
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		name, err := FileName(job.URL)
		if err == nil {
			dest := filepath.Join(job.Dir, name)
			if seen[dest] {
				f.logger.WarnContext(ctx, "Dropping link with duplicate destination",
					slog.String("url", job.URL),
					slog.String("destination", dest))
				continue
			}
			seen[dest] = true
		}
		out = append(out, job)
	}
	return out
}
