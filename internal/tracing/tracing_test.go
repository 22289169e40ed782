package tracing

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInit_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if p.Enabled() {
		t.Error("expected export disabled without endpoint")
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSampler(t *testing.T) {
	rec := tracetest.NewSpanRecorder()

	tests := []struct {
		rate    float64
		sampled bool
	}{
		{rate: 1, sampled: true},
		{rate: 2, sampled: true},
		{rate: 0, sampled: false},
		{rate: -1, sampled: false},
	}
	for _, tt := range tests {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(Sampler(tt.rate)),
			sdktrace.WithSpanProcessor(rec),
		)
		_, span := tp.Tracer("test").Start(context.Background(), "op")
		if got := span.SpanContext().IsSampled(); got != tt.sampled {
			t.Errorf("rate %v: sampled = %v, expected %v", tt.rate, got, tt.sampled)
		}
		span.End()
		_ = tp.Shutdown(context.Background())
	}
}

func TestSampler_RespectsParent(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(Sampler(0)))
	defer tp.Shutdown(context.Background())

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)

	_, span := tp.Tracer("test").Start(ctx, "child")
	defer span.End()
	if !span.SpanContext().IsSampled() {
		t.Error("expected sampled parent to force sampling")
	}
}
