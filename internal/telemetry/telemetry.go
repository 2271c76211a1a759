// Package telemetry sets up the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Options controls tracer setup.
type Options struct {
	ServiceName string
	Version     string
	// Stdout exports spans as JSON to Writer.
	Stdout bool
	Pretty bool
	Writer io.Writer
}

// Init installs a global tracer provider and returns its shutdown func.
// Without an exporter spans are sampled out, so instrumentation stays cheap.
func Init(opts Options) (func(context.Context) error, error) {
	res := resource.NewSchemaless(
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.Version),
	)
	popts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if opts.Stdout {
		eopts := []stdouttrace.Option{}
		if opts.Pretty {
			eopts = append(eopts, stdouttrace.WithPrettyPrint())
		}
		if opts.Writer != nil {
			eopts = append(eopts, stdouttrace.WithWriter(opts.Writer))
		}
		exp, err := stdouttrace.New(eopts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		popts = append(popts, sdktrace.WithBatcher(exp))
	} else {
		popts = append(popts, sdktrace.WithSampler(sdktrace.NeverSample()))
	}
	tp := sdktrace.NewTracerProvider(popts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// HTTPMiddleware instruments inbound HTTP handlers.
func HTTPMiddleware(operation string) func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware(operation)
}

// InstrumentClient wraps client's transport so outbound calls get spans and
// trace headers. A nil client gets a fresh one.
func InstrumentClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = otelhttp.NewTransport(base)
	return client
}
