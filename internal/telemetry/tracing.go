// Package telemetry configures the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type Options struct {
	ServiceName string
	Exporter    string
	// Endpoint is host:port of an OTLP/HTTP collector.
	Endpoint string
	Insecure bool
	// Writer receives stdout spans; defaults to os.Stdout.
	Writer io.Writer
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Setup installs a global tracer provider for the chosen exporter. With
// ExporterNone the global no-op provider is left in place.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return func(context.Context) error { return nil }, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", opts.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterOTLP:
		var o []otlptracehttp.Option
		if opts.Endpoint != "" {
			o = append(o, otlptracehttp.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			o = append(o, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, o...)
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}
}
