package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name reported to any configured
// OpenTelemetry SDK/exporter.
const tracerName = "github.com/naviscope/naviscope/internal/engine"

func tracer() trace.Tracer { return otel.Tracer(tracerName) }

// startSpan opens a span around a build phase. Callers defer span.End().
// With no SDK configured (the common case for unit tests and the shell
// consumer) this is a cheap no-op recorder.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer().Start(ctx, name)
}
