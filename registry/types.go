package registry

import (
	"context"
	"strings"
)

// Status is the reported state of an instance.
type Status string

const (
	StatusUp           Status = "UP"
	StatusDown         Status = "DOWN"
	StatusStarting     Status = "STARTING"
	StatusOutOfService Status = "OUT_OF_SERVICE"
	StatusUnknown      Status = "UNKNOWN"
)

// Statuses lists every valid Status.
var Statuses = []string{
	string(StatusUp), string(StatusDown), string(StatusStarting),
	string(StatusOutOfService), string(StatusUnknown),
}

// Instance is one registered application instance.
type Instance struct {
	ID          string            `json:"instanceId"`
	App         string            `json:"app"`
	HostName    string            `json:"hostName"`
	IPAddr      string            `json:"ipAddr,omitempty"`
	Port        int               `json:"port,omitempty"`
	Status      Status            `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	LastUpdated int64             `json:"lastUpdatedTimestamp,omitempty"`
}

// Application groups the instances of one app name.
type Application struct {
	Name      string     `json:"name"`
	Instances []Instance `json:"instance"`
}

// Action is a replicated registry mutation.
type Action string

const (
	ActionRegister     Action = "Register"
	ActionCancel       Action = "Cancel"
	ActionHeartbeat    Action = "Heartbeat"
	ActionStatusUpdate Action = "StatusUpdate"
)

// Registry is the local registry each peer node keeps a reference to.
type Registry interface {
	Register(ctx context.Context, inst Instance, isReplication bool) error
	Cancel(ctx context.Context, app, id string, isReplication bool) error
	Renew(ctx context.Context, app, id string, isReplication bool) error
	StatusUpdate(ctx context.Context, app, id string, status Status, isReplication bool) error
	Get(app, id string) (Instance, bool)
	Applications() []Application
}

// Replicator forwards a local mutation to peers.
type Replicator interface {
	Replicate(ctx context.Context, action Action, inst Instance) error
}

// NormalizeApp returns the canonical, upper-case application name.
func NormalizeApp(app string) string {
	return strings.ToUpper(strings.TrimSpace(app))
}
