package observability

import (
	"github.com/kbukum/peerkit/component"
)

// ServiceHealth is the overall health of the server and its components.
type ServiceHealth struct {
	Service    string                 `json:"service"`
	Status     component.HealthStatus `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Components []component.Health     `json:"components,omitempty"`
}

// NewServiceHealth aggregates component results. Any unhealthy component
// makes the service unhealthy; otherwise any degraded one degrades it.
func NewServiceHealth(service, version string, components []component.Health) *ServiceHealth {
	sh := &ServiceHealth{Service: service, Status: component.StatusHealthy, Version: version}
	for _, h := range components {
		sh.Add(h)
	}
	return sh
}

// Add appends one component result and updates the overall status.
func (sh *ServiceHealth) Add(h component.Health) {
	sh.Components = append(sh.Components, h)
	switch h.Status {
	case component.StatusUnhealthy:
		sh.Status = component.StatusUnhealthy
	case component.StatusDegraded:
		if sh.Status != component.StatusUnhealthy {
			sh.Status = component.StatusDegraded
		}
	}
}

// Healthy reports whether no component is unhealthy.
func (sh *ServiceHealth) Healthy() bool {
	return sh.Status != component.StatusUnhealthy
}
