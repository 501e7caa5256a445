package observability

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// Config configures the OTLP exporters.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP host:port.
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
	// SampleRate is the trace sampling ratio (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ApplyDefaults fills in development-friendly defaults.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = 15 * time.Second
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Shutdown flushes and stops the installed providers.
type Shutdown func(ctx context.Context) error

// Setup installs the meter and tracer providers. When cfg is disabled it
// returns a no-op Shutdown.
func Setup(ctx context.Context, cfg Config, service, version, environment string) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	cfg.ApplyDefaults()

	mp, err := InitMeter(ctx, MeterConfig{
		ServiceName: service, ServiceVersion: version, Environment: environment,
		Endpoint: cfg.Endpoint, Insecure: cfg.Insecure, Interval: cfg.MetricInterval,
	})
	if err != nil {
		return nil, err
	}
	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName: service, ServiceVersion: version, Environment: environment,
		Endpoint: cfg.Endpoint, Insecure: cfg.Insecure, SampleRate: cfg.SampleRate,
	})
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	return func(ctx context.Context) error {
		return multierr.Combine(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
