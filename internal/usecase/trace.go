package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("squares-pool/internal/usecase")

// passthroughSpan is handed out when no span is created; End on it is a
// no-op, so call sites can defer unconditionally.
var passthroughSpan = trace.SpanFromContext(context.Background())

// startUsecaseSpan opens a child span only under a valid parent. Service
// calls without an incoming trace (the scheduler tick, tests) stay
// span-free instead of producing orphan roots.
func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if name == "" || !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, passthroughSpan
	}
	return usecaseTracer.Start(ctx, name)
}
