package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts the span enclosing a whole run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, runID string, tests int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "hitgraph run",
		trace.WithAttributes(
			attribute.String("hitgraph.run_id", runID),
			attribute.Int("hitgraph.tests", tests),
		),
	)
}

// StartTestSpan starts the span for one test execution.
func StartTestSpan(ctx context.Context, tracer trace.Tracer, id, suite string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, id)
	span.SetAttributes(attribute.String("hitgraph.test", id))
	if suite != "" {
		span.SetAttributes(attribute.String("hitgraph.suite", suite))
	}
	return ctx, span
}

// EndSpan finishes a span with the final state, recording err if set.
func EndSpan(span trace.Span, state string, err error) {
	span.SetAttributes(attribute.String("hitgraph.state", state))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into outgoing headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
