// Command loader copies the canonical sales table into a SQLite or Postgres
// table, replacing whatever the table held before.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/app"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/exporter"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/loader"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loader", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", "optional .env file (defaults to ./.env when present)")
	in := fs.String("in", "", "canonical CSV to load (defaults to the production output)")
	driver := fs.String("driver", "", "database driver: sqlite | pgx (overrides DB_DRIVER)")
	dsn := fs.String("dsn", "", "data source name (overrides DB_DSN)")
	tableName := fs.String("table", "", "destination table (overrides DB_TABLE)")
	if err := fs.Parse(args); err != nil {
		return app.ExitConfig
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	if *driver != "" {
		cfg.DB.Driver = *driver
	}
	if *dsn != "" {
		cfg.DB.DSN = *dsn
	}
	if *tableName != "" {
		cfg.DB.Table = *tableName
	}
	if cfg.DB.DSN == "" && cfg.DB.Driver == loader.DriverSQLite {
		cfg.DB.DSN = cfg.Paths().GetProdPath("property_sales.db")
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

	if *in == "" {
		*in = exporter.NewSink(cfg.Paths().ProdDir, cfg.OutputName, nil, nil).CSVPath()
	}
	n, err := load(ctx, cfg.DB, *in, a.Logger)
	if err != nil {
		a.Logger.ErrorContext(ctx, "Load failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	fmt.Fprintf(stdout, "Loaded %d rows from %s into %s\n", n, *in, cfg.DB.Table)
	return app.ExitOK
}

func load(ctx context.Context, db config.DBConfig, path string, logger *slog.Logger) (int, error) {
	if !config.FileExists(path) {
		return 0, apperrors.NewFatalIOError("canonical table not found: "+path, nil)
	}
	t, err := exporter.ReadCanonicalCSV(path)
	if err != nil {
		return 0, err
	}

	l, err := loader.Open(ctx, db, logger)
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Load(ctx, t)
}
