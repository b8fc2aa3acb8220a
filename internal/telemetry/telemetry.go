// Package telemetry installs the global OpenTelemetry tracer provider.
//
// Tracing is off unless an OTLP endpoint is configured through the standard
// OTEL_EXPORTER_OTLP_* variables. Spans are exported over gRPC.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Endpoint variables that enable tracing.
const (
	EnvEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTracesEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Enabled reports whether environ configures an OTLP endpoint.
func Enabled(environ []string) bool {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}

		if key == EnvEndpoint || key == EnvTracesEndpoint {
			return true
		}
	}

	return false
}

// Setup installs a batching OTLP/gRPC tracer provider when [Enabled]. The
// exporter reads the remaining OTEL_* variables itself. When tracing is off
// the global no-op provider stays in place and the returned function does
// nothing.
func Setup(ctx context.Context, environ []string, service, version string) (ShutdownFunc, error) {
	if !Enabled(environ) {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", service),
			attribute.String("service.version", version),
		)),
	)

	otel.SetTracerProvider(tp)

	slog.DebugContext(ctx, "tracing enabled", slog.String("service", service))

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}

		return nil
	}, nil
}
