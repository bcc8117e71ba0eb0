package tracing

import (
	"context"
	"testing"
	"time"
)

func shutdownProvider(t *testing.T, p *Provider) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{ServiceName: "calendar-api", Enabled: false})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got %v", err)
	}
	if provider.IsEnabled() {
		t.Error("expected tracing to be disabled")
	}
	// Disabled provider is still safe to use.
	shutdownProvider(t, provider)
	if provider.Tracer("events") == nil {
		t.Error("expected a no-op tracer from a disabled provider")
	}
}

func TestNewProvider_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing service name", Config{Enabled: true, SamplingRate: 0.1}},
		{"negative sampling rate", Config{ServiceName: "calendar-api", Enabled: true, SamplingRate: -0.1}},
		{"sampling rate over 1", Config{ServiceName: "calendar-api", Enabled: true, SamplingRate: 1.5}},
		{"unsupported exporter", Config{ServiceName: "calendar-api", Enabled: true, SamplingRate: 0.1, ExporterType: "jaeger"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(tt.cfg); err == nil {
				t.Errorf("expected config error for %+v", tt.cfg)
			}
		})
	}
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name         string
		exporterType string
		samplingRate float64
		endpoint     string
	}{
		{"otlp-http sampled", "otlp-http", 0.1, "localhost:4318"},
		{"otlp-grpc always", "otlp-grpc", 1.0, "localhost:4317"},
		{"default exporter never", "", 0.0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(Config{
				ServiceName:  "calendar-api",
				Enabled:      true,
				Environment:  "test",
				ExporterType: tt.exporterType,
				OTLPEndpoint: tt.endpoint,
				SamplingRate: tt.samplingRate,
				InsecureMode: true,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !provider.IsEnabled() {
				t.Error("expected tracing to be enabled")
			}
			shutdownProvider(t, provider)
		})
	}
}

func TestProvider_TracerCreatesSpans(t *testing.T) {
	provider, err := NewProvider(Config{
		ServiceName:  "calendar-api",
		Enabled:      true,
		Environment:  "test",
		SamplingRate: 1.0,
		InsecureMode: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer shutdownProvider(t, provider)

	_, span := provider.Tracer("events").Start(context.Background(), "expand recurrence")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	span.End()
}

func TestProvider_ShutdownZeroValue(t *testing.T) {
	shutdownProvider(t, &Provider{})
}
