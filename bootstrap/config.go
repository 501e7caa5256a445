package bootstrap

import (
	"github.com/kbukum/peerkit/config"
)

// Config is the constraint for application configuration types. A struct
// embedding config.ServiceConfig satisfies it through promoted methods,
// provided it also declares its own ApplyDefaults and Validate when it has
// more sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
