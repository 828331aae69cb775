package telemetry

import (
	"context"
	"testing"
)

func TestEnabled(t *testing.T) {
	t.Setenv("PROCESS_WRAPPER_OTEL_ENABLED", "")
	if Enabled() {
		t.Error("Enabled() = true with empty env, want false")
	}

	t.Setenv("PROCESS_WRAPPER_OTEL_ENABLED", "1")
	if Enabled() {
		t.Error("Enabled() = true for \"1\", only \"true\" enables telemetry")
	}

	t.Setenv("PROCESS_WRAPPER_OTEL_ENABLED", "true")
	if !Enabled() {
		t.Error("Enabled() = false, want true")
	}
}

func TestInitDisabledInstallsNoop(t *testing.T) {
	t.Setenv("PROCESS_WRAPPER_OTEL_ENABLED", "")

	if err := Init(context.Background(), "process_wrapper", "test"); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	defer Shutdown(context.Background())

	_, span := Tracer("").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("expected a no-op span with an invalid span context")
	}
	span.End()

	counter, err := Meter("").Int64Counter("test.counter")
	if err != nil {
		t.Fatalf("Int64Counter() returned error: %v", err)
	}
	counter.Add(context.Background(), 1)
}

func TestInitEnabledRecordsSpans(t *testing.T) {
	t.Setenv("PROCESS_WRAPPER_OTEL_ENABLED", "true")
	t.Setenv("PROCESS_WRAPPER_OTEL_STDOUT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	ctx := context.Background()
	if err := Init(ctx, "process_wrapper", "test"); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	defer Shutdown(ctx)

	_, span := Tracer("").Start(ctx, "recorded")
	if !span.SpanContext().IsValid() {
		t.Error("expected a sampled span with a valid span context")
	}
	span.End()
}
