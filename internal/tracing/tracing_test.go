package tracing

import (
	"context"
	"testing"

	"github.com/flemzord/catbot/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), config.TracingConfig{}, "catbot", "dev")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestNewProvider_ExportsSpans(t *testing.T) {
	t.Parallel()

	exp := tracetest.NewInMemoryExporter()
	tp := NewProvider(config.TracingConfig{}, exp, "catbot", "2.1.0")

	_, span := tp.Tracer("test").Start(context.Background(), "router.process")
	span.SetAttributes(attribute.String("matrix.event_id", "$e"))
	span.End()

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "router.process" {
		t.Errorf("name = %q", spans[0].Name)
	}
	found := false
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.version" && kv.Value.AsString() == "2.1.0" {
			found = true
		}
	}
	if !found {
		t.Error("service.version missing from resource")
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewProvider_SampleRatio(t *testing.T) {
	t.Parallel()

	exp := tracetest.NewInMemoryExporter()
	tp := NewProvider(config.TracingConfig{SampleRatio: 1e-12}, exp, "catbot", "dev")
	for range 20 {
		_, span := tp.Tracer("test").Start(context.Background(), "router.process")
		span.End()
	}
	_ = tp.ForceFlush(context.Background())
	if n := len(exp.GetSpans()); n > 1 {
		t.Errorf("sampled %d of 20 spans at a near-zero ratio", n)
	}
}

func TestExporterOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  config.TracingConfig
		want int
	}{
		{config.TracingConfig{Endpoint: "localhost:4318"}, 1},
		{config.TracingConfig{Endpoint: "http://localhost:4318", Insecure: true}, 2},
		{config.TracingConfig{Endpoint: "https://otel.example.org/v1/traces"}, 1},
	}
	for _, tc := range tests {
		if got := len(exporterOptions(tc.cfg)); got != tc.want {
			t.Errorf("exporterOptions(%q) = %d options, want %d", tc.cfg.Endpoint, got, tc.want)
		}
	}
}
