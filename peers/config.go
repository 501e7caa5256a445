package peers

import (
	"time"

	"github.com/kbukum/peerkit/validation"
)

// Topology modes.
const (
	ModeStatic   = "static"
	ModeReactive = "reactive"
)

// DefaultRefreshInterval is the periodic re-resolution interval of the
// reactive provider.
const DefaultRefreshInterval = 10 * time.Minute

// Config selects and tunes the topology provider.
type Config struct {
	// Mode is "static" (resolved once at start) or "reactive" (follows
	// configuration changes).
	Mode string `yaml:"mode" mapstructure:"mode" validate:"oneof=static reactive"`

	// RefreshInterval re-resolves peers periodically in reactive mode.
	// Zero uses the default; negative disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeReactive
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
