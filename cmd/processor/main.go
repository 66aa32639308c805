// Command processor normalizes the downloaded sales spreadsheets, cleans them
// into the canonical table and writes it to the production directory. With
// -fetch it downloads the sources first, performing a whole run.
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
				logger.Error("Processor panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			code = app.ExitRun
		}
	}()

	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", "optional .env file (defaults to ./.env when present)")
	fetch := fs.Bool("fetch", false, "download the sources before processing")
	rules := fs.String("rules", "", "correction rules YAML (overrides RULES_FILE)")
	profile := fs.String("profile", "", "ingest profile YAML (overrides PROFILE_FILE)")
	quiet := fs.Bool("quiet", false, "do not print the completion report")
	if err := fs.Parse(args); err != nil {
		return app.ExitConfig
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	if *rules != "" {
		cfg.RulesFile = *rules
	}
	if *profile != "" {
		cfg.ProfileFile = *profile
	}

	a, err := app.NewWithConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	defer a.Close(context.Background())
	logger = a.Logger

	logger.InfoContext(ctx, "Processor starting",
		slog.Bool("fetch", *fetch),
		slog.String("rules_file", cfg.RulesFile),
		slog.String("profile_file", cfg.ProfileFile),
		slog.Any("output_formats", cfg.OutputFormats))

	p, err := a.Pipeline(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}

	rep, err := p.Run(ctx, pipeline.RunOptions{Fetch: *fetch, Process: true})
	if !*quiet {
		pipeline.WriteSummary(stdout, rep)
	}
	return app.ExitCode(err)
}
