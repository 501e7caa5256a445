package peers

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/peerkit/observability"
)

const meterName = "github.com/kbukum/peerkit/peers"

// Update results recorded on peers.topology.updates.
const (
	resultApplied   = "applied"
	resultUnchanged = "unchanged"
	resultFailed    = "failed"
)

type setMetrics struct {
	updates metric.Int64Counter
	active  metric.Int64UpDownCounter
}

// newSetMetrics falls back to no-op instruments if creation fails.
func newSetMetrics() *setMetrics {
	meter := observability.Meter(meterName)
	m := &setMetrics{}
	var err error
	if m.updates, err = meter.Int64Counter("peers.topology.updates",
		metric.WithDescription("Peer set updates by result")); err != nil {
		return &setMetrics{}
	}
	if m.active, err = meter.Int64UpDownCounter("peers.active",
		metric.WithDescription("Peer nodes currently in the set")); err != nil {
		return &setMetrics{}
	}
	return m
}

func (m *setMetrics) recordUpdate(ctx context.Context, result string, delta int) {
	if m.updates != nil {
		m.updates.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
	if m.active != nil && delta != 0 {
		m.active.Add(ctx, int64(delta))
	}
}
