package main

import (
	"github.com/kbukum/peerkit/config"
	"github.com/kbukum/peerkit/observability"
	"github.com/kbukum/peerkit/peers"
	"github.com/kbukum/peerkit/replication"
	"github.com/kbukum/peerkit/server"
	"github.com/kbukum/peerkit/validation"
)

// AppConfig is the peer-registry service configuration. The eureka.*
// properties live in the same file but are read live through
// config.Environment, not through this struct.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Peering       peers.Config         `yaml:"peering" mapstructure:"peering"`
	Replication   replication.Config   `yaml:"replication" mapstructure:"replication"`
	Etcd          config.EtcdConfig    `yaml:"etcd" mapstructure:"etcd"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Peering.ApplyDefaults()
	c.Replication.ApplyDefaults()
	c.Etcd.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the service section, then every tagged field of the
// nested sections in one pass.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}
