// Package telemetry sets up OpenTelemetry metrics exported in the Prometheus
// text format and the tracer provider used by the application spans.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Options configures New.
type Options struct {
	ServiceName string
	// SpanWriter receives finished spans as JSON. Nil keeps spans in process
	// only: they are recorded but not exported.
	SpanWriter io.Writer
}

// Telemetry owns the meter and tracer providers and the registry the meters
// export into.
type Telemetry struct {
	registry *prometheus.Registry
	meters   *sdkmetric.MeterProvider
	tracers  *sdktrace.TracerProvider
}

// New creates a dedicated registry with the Go and process collectors, an
// otel meter provider that exports into it and an sdk tracer provider.
func New(opts Options) (*Telemetry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if opts.SpanWriter != nil {
		spans, err := stdouttrace.New(stdouttrace.WithWriter(opts.SpanWriter))
		if err != nil {
			return nil, fmt.Errorf("could not create span exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(spans))
	}

	return &Telemetry{
		registry: reg,
		meters:   sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp), sdkmetric.WithResource(res)),
		tracers:  sdktrace.NewTracerProvider(tpOpts...),
	}, nil
}

func (t *Telemetry) MeterProvider() metric.MeterProvider { return t.meters }

func (t *Telemetry) TracerProvider() trace.TracerProvider { return t.tracers }

// Handler serves the registry for scraping.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

// Shutdown flushes pending spans and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.tracers.Shutdown(ctx), t.meters.Shutdown(ctx))
}
