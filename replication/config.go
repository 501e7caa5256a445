package replication

import (
	"time"

	"github.com/kbukum/peerkit/resilience"
)

// Config tunes the outbound replication transport.
type Config struct {
	// Timeout bounds one batch request. Defaults to 5s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// MaxConcurrent caps in-flight batches per peer. Defaults to 8.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`

	Retry          resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = resilience.DefaultRetryConfig()
	}
	if c.CircuitBreaker.MaxFailures <= 0 {
		c.CircuitBreaker = resilience.DefaultCircuitBreakerConfig("replication")
	}
}
