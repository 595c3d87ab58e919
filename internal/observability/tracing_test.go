package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestApplyTracingEnvOverrides(t *testing.T) {
	t.Setenv("GEOAR_TRACING_ENABLED", "TRUE")
	t.Setenv("GEOAR_TRACING_EXPORTER", "OTLP")
	t.Setenv("GEOAR_TRACING_SERVICE_NAME", "bridge-test")
	t.Setenv("GEOAR_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("GEOAR_TRACING_SAMPLE_RATIO", "0.25")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled {
		t.Fatalf("Enabled = false, want true")
	}
	if cfg.Exporter != "otlp" || cfg.ServiceName != "bridge-test" || cfg.Endpoint != "collector:4317" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.SampleRatio != 0.25 {
		t.Fatalf("SampleRatio = %v, want 0.25", cfg.SampleRatio)
	}
}

func TestApplyTracingEnvIgnoresBadRatio(t *testing.T) {
	t.Setenv("GEOAR_TRACING_SAMPLE_RATIO", "1.5")

	cfg := ApplyTracingEnv(TracingConfig{SampleRatio: 0.5})
	if cfg.SampleRatio != 0.5 {
		t.Fatalf("SampleRatio = %v, want 0.5", cfg.SampleRatio)
	}
	if cfg.Exporter != "stdout" || cfg.ServiceName != DefaultServiceName {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	shutdown, err := InitTracing(ctx, TracingConfig{
		Enabled:     true,
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	t.Cleanup(func() { _, _ = InitTracing(ctx, TracingConfig{}, nil) })

	_, span := otel.Tracer(TracerName).Start(ctx, "session.start")
	span.End()
	ShutdownWithTimeout(ctx, shutdown, nil)

	if !strings.Contains(buf.String(), "session.start") {
		t.Fatalf("expected exported span in output, got %q", buf.String())
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
