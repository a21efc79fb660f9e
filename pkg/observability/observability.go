// Package observability provides OpenTelemetry tracing and metrics for event
// signing and verification.
//
// Every tracked operation records rate, errors and duration. Verification
// runs additionally count verified and rejected events. Telemetry is off by
// default; a disabled Provider is backed by no-op providers so callers never
// branch on it.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
)

const instrumentationName = "github.com/Mindburn-Labs/nostrevent"

// Config configures the OpenTelemetry pipelines.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string  // gRPC host:port
	SampleRate     float64 // fraction of root spans kept
	BatchTimeout   time.Duration
	ExportInterval time.Duration
	Enabled        bool
	Insecure       bool // plaintext gRPC
}

// DefaultConfig returns defaults with telemetry switched off.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "nostrevent",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		ExportInterval: 15 * time.Second,
	}
}

// instruments are the metric instruments shared by all operations.
type instruments struct {
	operations metric.Int64Counter
	errors     metric.Int64Counter
	duration   metric.Float64Histogram
	active     metric.Int64UpDownCounter
	verified   metric.Int64Counter
	rejected   metric.Int64Counter
}

func newInstruments(m metric.Meter) (instruments, error) {
	var (
		in   instruments
		err  error
		errs error
	)
	in.operations, err = m.Int64Counter("nostrevent.operations.total",
		metric.WithDescription("Sign and verify operations started"),
		metric.WithUnit("{operation}"))
	errs = multierr.Append(errs, err)

	in.errors, err = m.Int64Counter("nostrevent.errors.total",
		metric.WithDescription("Operations that returned an error"),
		metric.WithUnit("{error}"))
	errs = multierr.Append(errs, err)

	in.duration, err = m.Float64Histogram("nostrevent.operation.duration",
		metric.WithDescription("Operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.01, 0.1, 1))
	errs = multierr.Append(errs, err)

	in.active, err = m.Int64UpDownCounter("nostrevent.operations.active",
		metric.WithDescription("Operations in flight"),
		metric.WithUnit("{operation}"))
	errs = multierr.Append(errs, err)

	in.verified, err = m.Int64Counter("nostrevent.events.verified",
		metric.WithDescription("Events whose id and signature both hold"),
		metric.WithUnit("{event}"))
	errs = multierr.Append(errs, err)

	in.rejected, err = m.Int64Counter("nostrevent.events.rejected",
		metric.WithDescription("Events that failed a verification check"),
		metric.WithUnit("{event}"))
	errs = multierr.Append(errs, err)

	return in, errs
}

// Provider hands out the tracer and meter used by the event packages.
type Provider struct {
	config   *Config
	tracer   trace.Tracer
	meter    metric.Meter
	inst     instruments
	shutdown []func(context.Context) error
	logger   *slog.Logger
}

// New builds a provider exporting over OTLP gRPC. With Enabled false every
// instrument is a no-op and nothing is exported.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger := slog.Default().With("component", "observability")

	if !config.Enabled {
		logger.DebugContext(ctx, "telemetry disabled")
		p, err := newProvider(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider(), config.ServiceVersion)
		if err != nil {
			return nil, err
		}
		p.config = config
		return p, nil
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, config, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, config, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p, err := newProvider(tp, mp, config.ServiceVersion)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	p.config = config
	p.shutdown = []func(context.Context) error{tp.Shutdown, mp.Shutdown}

	logger.InfoContext(ctx, "telemetry enabled",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint,
		"sample_rate", config.SampleRate,
	)
	return p, nil
}

// NewWithProviders instruments against providers owned by the caller.
// Shutdown leaves them running.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Provider, error) {
	p, err := newProvider(tp, mp, "")
	if err != nil {
		return nil, err
	}
	p.config = DefaultConfig()
	return p, nil
}

func newProvider(tp trace.TracerProvider, mp metric.MeterProvider, version string) (*Provider, error) {
	p := &Provider{
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(version)),
		meter:  mp.Meter(instrumentationName, metric.WithInstrumentationVersion(version)),
		logger: slog.Default().With("component", "observability"),
	}
	inst, err := newInstruments(p.meter)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}
	p.inst = inst
	return p, nil
}

func newTracerProvider(ctx context.Context, config *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.OTLPEndpoint)}
	if config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(config.BatchTimeout)),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(config.SampleRate))),
	), nil
}

func newMeterProvider(ctx context.Context, config *Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	interval := config.ExportInterval
	if interval <= 0 {
		interval = DefaultConfig().ExportInterval
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	), nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes and stops the pipelines created by New.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs error
	for _, fn := range p.shutdown {
		errs = multierr.Append(errs, fn(ctx))
	}
	if errs != nil {
		p.logger.ErrorContext(ctx, "telemetry shutdown", "error", errs)
	}
	return errs
}

func (p *Provider) Tracer() trace.Tracer { return p.tracer }

func (p *Provider) Meter() metric.Meter { return p.meter }

// StartSpan starts an internal span.
func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, opts...)
}

func (p *Provider) RecordOperation(ctx context.Context, attrs ...attribute.KeyValue) {
	p.inst.operations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordError counts a failed operation, tagged with the Go type of err.
func (p *Provider) RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	tagged := append(attrs[:len(attrs):len(attrs)], attribute.String("error.type", fmt.Sprintf("%T", err)))
	p.inst.errors.Add(ctx, 1, metric.WithAttributes(tagged...))
}

func (p *Provider) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	p.inst.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// RecordVerification counts one verified or rejected event. reason names the
// first failed check and is ignored when verified is true.
func (p *Provider) RecordVerification(ctx context.Context, verified bool, reason string) {
	if verified {
		p.inst.verified.Add(ctx, 1)
		return
	}
	p.inst.rejected.Add(ctx, 1, metric.WithAttributes(AttrRejectReason.String(reason)))
}

// TrackOperation opens a span named name and counts the operation. spanAttrs
// are set on the span only; metrics carry just the operation name so their
// cardinality stays bounded. The returned func ends both; pass it the
// operation's error.
func (p *Provider) TrackOperation(ctx context.Context, name string, spanAttrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	op := AttrOperation.String(name)
	set := metric.WithAttributes(op)

	ctx, span := p.StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(spanAttrs[:len(spanAttrs):len(spanAttrs)], op)...),
	)
	p.inst.active.Add(ctx, 1, set)
	p.RecordOperation(ctx, op)

	return ctx, func(err error) {
		p.inst.active.Add(ctx, -1, set)
		p.RecordDuration(ctx, time.Since(start), op)
		if err != nil {
			SetSpanStatus(ctx, err)
			p.RecordError(ctx, err, op)
		}
		span.End()
	}
}
