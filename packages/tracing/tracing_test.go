package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/config"
	"github.com/abdul-hamid-achik/hitgraph/packages/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func attr(span tracetest.SpanStub, key string) string {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_WithEndpoint(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:    "localhost:4318",
		ServiceName: "test-service",
		SampleRate:  1.0,
		Insecure:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.True(t, p.Enabled())
}

func TestInit_InvalidSampleRate(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:   "localhost:4318",
		SampleRate: 1.5,
	})
	assert.Error(t, err)
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
}

func TestTestSpans(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	ctx, run := tracing.StartRunSpan(context.Background(), tracer, "run-1", 2)
	_, ok := tracing.StartTestSpan(ctx, tracer, "Users::Create", "Users")
	tracing.EndSpan(ok, "success", nil)
	_, bad := tracing.StartTestSpan(ctx, tracer, "Users::Fetch", "Users")
	tracing.EndSpan(bad, "failure", errors.New("boom"))
	run.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	assert.Equal(t, "Users::Create", spans[0].Name)
	assert.Equal(t, "success", attr(spans[0], "hitgraph.state"))
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, spans[2].SpanContext.SpanID(), spans[0].Parent.SpanID())

	assert.Equal(t, "Users", attr(spans[1], "hitgraph.suite"))
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Description)
	require.Len(t, spans[1].Events, 1)

	assert.Equal(t, "hitgraph run", spans[2].Name)
	assert.Equal(t, "run-1", attr(spans[2], "hitgraph.run_id"))
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := setupTestTracer(t)
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	ctx, span := tracer.Start(context.Background(), "parent")
	defer span.End()

	headers := http.Header{}
	tracing.InjectHTTPHeaders(ctx, headers)
	assert.NotEmpty(t, headers.Get("traceparent"))
}
