package app

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestShutdownTracing(t *testing.T) {
	// Tracing disabled leaves no provider behind; shutdown must be a no-op.
	a := &App{}
	a.shutdownTracing(context.Background())

	a.tracerProvider = sdktrace.NewTracerProvider()
	a.shutdownTracing(context.Background())
	// Shutdown is idempotent on an already stopped provider.
	a.shutdownTracing(context.Background())
}
