package oteltrace

import (
	"context"

	"github.com/pasar-rakyat/kantin/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a TraceCtx backed by the globally configured otel tracer
// provider. Without an SDK provider installed this degrades to no-op spans.
func New(name string) observability.TraceCtx {
	if name == "" {
		name = "kantin"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
