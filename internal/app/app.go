package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/infrastructure"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/pipeline"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/publish"
)

// VERSION is reported in telemetry resources and startup logs.
const VERSION = "1.0.0"

// Process exit codes shared by the commands.
const (
	ExitOK      = 0
	ExitRun     = 1
	ExitConfig  = 2
	ExitFatalIO = 3
)

// Application holds what a command needs for one process lifetime.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
}

// New loads configuration and initializes logging and telemetry.
func New(ctx context.Context, envFile string) (*Application, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes logging and telemetry for an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, apperrors.NewFatalIOError("initialize logger", err)
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", VERSION))

	tel, err := infrastructure.InitializeTelemetry(ctx, infrastructure.TelemetryConfig{
		ServiceName:    config.AppName,
		ServiceVersion: VERSION,
		EnableMetrics:  cfg.MetricsEnabled,
		TraceExporter:  cfg.TraceExporter,
	}, logger)
	if err != nil {
		return nil, apperrors.NewConfigError("initialize telemetry", err)
	}

	return &Application{Config: cfg, Logger: logger, Telemetry: tel}, nil
}

// Pipeline builds the ETL pipeline, including the configured publisher.
func (a *Application) Pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	pub, err := publish.FromConfig(ctx, a.Config.Publish, infrastructure.WithComponent(a.Logger, "publish"))
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(a.Config, pipeline.Deps{
		Logger:    a.Logger,
		Telemetry: a.Telemetry,
		Publisher: pub,
	})
	if err != nil {
		return nil, err
	}
	p.Paths().LogPathResolution()
	return p, nil
}

// Close flushes telemetry and closes the log file.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case apperrors.IsType(err, apperrors.ErrTypeConfig):
		return ExitConfig
	case apperrors.IsType(err, apperrors.ErrTypeFatalIO):
		return ExitFatalIO
	default:
		return ExitRun
	}
}
