// Command scraper locates the sales spreadsheets on the configured listing
// pages and downloads them into the raw staging directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/app"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "PANIC RECOVERED: %v\n%s\n", r, debug.Stack())
			if logger != nil {
				logger.Error("Scraper panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			code = app.ExitRun
		}
	}()

	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", "optional .env file (defaults to ./.env when present)")
	mode := fs.String("mode", "", "listing retrieval: http | browser (overrides LISTING_MODE)")
	policy := fs.String("policy", "", "per-file fetch failure policy: abort | skip (overrides FETCH_POLICY)")
	if err := fs.Parse(args); err != nil {
		return app.ExitConfig
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	if *mode != "" {
		cfg.ListingMode = *mode
	}
	if *policy != "" {
		cfg.Fetch.Policy = *policy
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}

	a, err := app.NewWithConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	defer a.Close(context.Background())
	logger = a.Logger

	logger.InfoContext(ctx, "Scraper starting",
		slog.String("sales_url", cfg.SalesURL),
		slog.String("rolling_sales_url", cfg.RollingSalesURL),
		slog.String("mode", cfg.ListingMode),
		slog.String("policy", cfg.Fetch.Policy),
		slog.Int("parallel", cfg.Fetch.Parallel))

	p, err := a.Pipeline(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}

	rep, err := p.Run(ctx, pipeline.RunOptions{Fetch: true})
	pipeline.WriteSummary(stdout, rep)
	return app.ExitCode(err)
}
