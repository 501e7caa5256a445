package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/peerkit/component"
)

func TestServiceHealthAggregation(t *testing.T) {
	tests := []struct {
		name  string
		input []component.HealthStatus
		want  component.HealthStatus
	}{
		{"all healthy", []component.HealthStatus{component.StatusHealthy, component.StatusHealthy}, component.StatusHealthy},
		{"degraded", []component.HealthStatus{component.StatusHealthy, component.StatusDegraded}, component.StatusDegraded},
		{"unhealthy wins", []component.HealthStatus{component.StatusUnhealthy, component.StatusDegraded}, component.StatusUnhealthy},
		{"no components", nil, component.StatusHealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hs []component.Health
			for i, s := range tc.input {
				hs = append(hs, component.Health{Name: string(rune('a' + i)), Status: s})
			}
			sh := NewServiceHealth("peer-registry", "1.0.0", hs)
			if sh.Status != tc.want {
				t.Errorf("expected %s, got %s", tc.want, sh.Status)
			}
			if sh.Healthy() != (tc.want != component.StatusUnhealthy) {
				t.Errorf("Healthy() mismatch for %s", sh.Status)
			}
			if len(sh.Components) != len(tc.input) {
				t.Errorf("expected %d components, got %d", len(tc.input), len(sh.Components))
			}
		})
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, "svc", "1", "development")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown failed: %v", err)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.MetricInterval != 15*time.Second || cfg.SampleRate != 1.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestMetricsOnGlobalNoopMeter(t *testing.T) {
	m, err := NewMetrics(Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	ctx := context.Background()
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, "GET", "/health", 200, time.Millisecond)
	m.RecordReplication(ctx, "http://a/eureka/", "ok", time.Millisecond)
}

func TestEndSpanWithError(t *testing.T) {
	_, span := noop.NewTracerProvider().Tracer("t").Start(context.Background(), SpanPeersUpdate)
	EndSpan(span, errors.New("boom"))

	ctx, span := StartSpan(context.Background(), SpanPeersResolve)
	SetSpanAttributes(ctx)
	EndSpan(span, nil)
}
