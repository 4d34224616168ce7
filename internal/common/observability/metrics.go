// Package observability sets up the OpenTelemetry meter and tracer providers.
// Metrics go out through the Prometheus exporter and are served on /metrics
// next to the promauto collectors.
package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	runCounter     otelmetric.Int64Counter
	runDuration    otelmetric.Float64Histogram
	runResultCount otelmetric.Int64Histogram
}

type options struct {
	registerer     promclient.Registerer
	spanProcessors []sdktrace.SpanProcessor
	setGlobal      bool
}

type Option func(*options)

// WithRegisterer registers the exporter's collector somewhere other than the
// default Prometheus registry.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithSpanProcessor attaches a span processor, for example a batch exporter.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// WithoutGlobal keeps the providers out of the otel globals.
func WithoutGlobal() Option {
	return func(o *options) { o.setGlobal = false }
}

func New(serviceName string, opts ...Option) *Observability {
	o := options{registerer: promclient.DefaultRegisterer, setGlobal: true}
	for _, opt := range opts {
		opt(&o)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)

	obs := &Observability{
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(serviceName),
	}
	if o.setGlobal {
		otel.SetTracerProvider(tracerProvider)
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(o.registerer))
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return obs
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	if o.setGlobal {
		otel.SetMeterProvider(provider)
	}

	meter := provider.Meter(serviceName)
	obs.meterProvider = provider
	obs.meter = meter

	obs.runCounter, _ = meter.Int64Counter(
		"recommendation.runs",
		otelmetric.WithDescription("Recommendation runs by outcome"),
	)
	obs.runDuration, _ = meter.Float64Histogram(
		"recommendation.duration",
		otelmetric.WithDescription("Recommendation run duration"),
		otelmetric.WithUnit("ms"),
	)
	obs.runResultCount, _ = meter.Int64Histogram(
		"recommendation.results",
		otelmetric.WithDescription("Books returned per recommendation run"),
	)

	return obs
}

// Tracer returns the service tracer. It is a no-op tracer until a span
// processor is attached.
func (o *Observability) Tracer() trace.Tracer {
	return o.tracer
}

// RecordRecommendation records one finished engine run.
func (o *Observability) RecordRecommendation(ctx context.Context, status string, duration time.Duration, results int) {
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if o.runResultCount != nil {
		o.runResultCount.Record(ctx, int64(results), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
