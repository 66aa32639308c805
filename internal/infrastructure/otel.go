package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "nyc-property-sales-etl"
	ServiceVersion = "1.0.0"
	MeterName      = "github.com/JoshuaAcosta/NYC-property-sales-etl"
)

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	EnableMetrics  bool
	TraceExporter  string // "stdout", "none"
	// TraceWriter receives stdout spans; os.Stderr when nil.
	TraceWriter io.Writer
}

// Telemetry holds the providers for one process. Metrics are gathered into a
// private registry and flushed to a textfile; there is no HTTP endpoint.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Registry       *promclient.Registry
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *ETLMetrics
}

// ETLMetrics are the counters and histograms a run records.
type ETLMetrics struct {
	FilesFetched metric.Int64Counter
	FilesSkipped metric.Int64Counter
	RowsRead     metric.Int64Counter
	RowsExcluded metric.Int64Counter
	RowsWritten  metric.Int64Counter
	StepDuration metric.Float64Histogram
}

// InitializeTelemetry sets up metrics and tracing. With both disabled it returns
// no-op providers so callers never check for nil.
func InitializeTelemetry(ctx context.Context, cfg TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = ServiceVersion
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	t := &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
	}

	if err := t.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.EnableMetrics {
		if err := t.initializeMetrics(cfg, res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	m, err := CreateETLMetrics(t.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	t.Metrics = m

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))
	return t, nil
}

func (t *Telemetry) initializeTracing(cfg TelemetryConfig, res *resource.Resource) error {
	switch cfg.TraceExporter {
	case "", "none":
		return nil
	case "stdout":
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
		)
		t.TracerProvider = tp
		t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
}

func (t *Telemetry) initializeMetrics(cfg TelemetryConfig, res *resource.Resource) error {
	reg := promclient.NewRegistry()
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(reg),
		prometheus.WithoutTargetInfo(),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Registry = reg
	t.MeterProvider = mp
	t.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	return nil
}

// CreateETLMetrics creates the run instruments on meter.
func CreateETLMetrics(meter metric.Meter) (*ETLMetrics, error) {
	filesFetched, err := meter.Int64Counter(
		"etl_files_fetched",
		metric.WithDescription("Source files downloaded"),
	)
	if err != nil {
		return nil, err
	}

	filesSkipped, err := meter.Int64Counter(
		"etl_files_skipped",
		metric.WithDescription("Source files excluded from a run, by reason"),
	)
	if err != nil {
		return nil, err
	}

	rowsRead, err := meter.Int64Counter(
		"etl_rows_read",
		metric.WithDescription("Rows read from normalized source files"),
	)
	if err != nil {
		return nil, err
	}

	rowsExcluded, err := meter.Int64Counter(
		"etl_rows_excluded",
		metric.WithDescription("Rows excluded by required-field coercion, by reason"),
	)
	if err != nil {
		return nil, err
	}

	rowsWritten, err := meter.Int64Counter(
		"etl_rows_written",
		metric.WithDescription("Rows written to the canonical table"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"etl_step_duration_seconds",
		metric.WithDescription("Cleaning step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ETLMetrics{
		FilesFetched: filesFetched,
		FilesSkipped: filesSkipped,
		RowsRead:     rowsRead,
		RowsExcluded: rowsExcluded,
		RowsWritten:  rowsWritten,
		StepDuration: stepDuration,
	}, nil
}

// RecordStep records a cleaning step duration.
func (m *ETLMetrics) RecordStep(ctx context.Context, step string, d time.Duration) {
	m.StepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("step", step)))
}

// RecordFileSkipped counts a file excluded for reason.
func (m *ETLMetrics) RecordFileSkipped(ctx context.Context, reason string) {
	m.FilesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRowsExcluded counts rows excluded for reason.
func (m *ETLMetrics) RecordRowsExcluded(ctx context.Context, reason string, n int) {
	m.RowsExcluded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// StartSpan starts a span on the telemetry tracer.
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// WriteTextfile writes the gathered metrics in Prometheus textfile format.
// It is a no-op when metrics are disabled.
func (t *Telemetry) WriteTextfile(path string) error {
	if t.Registry == nil {
		return nil
	}
	if err := promclient.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}
	return nil
}
