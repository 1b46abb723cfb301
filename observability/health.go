package observability

import "context"

// HealthStatus is the state of a component.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes one component, such as a provisioning endpoint.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecker is implemented by clients that can probe their backend.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// HealthFromError maps a probe result to a Health. A nil error is up;
// degraded reports a reachable backend that refused the probe.
func HealthFromError(name string, err error, degraded bool, details map[string]string) Health {
	h := Health{Name: name, Status: HealthStatusUp, Details: details}
	switch {
	case err == nil:
	case degraded:
		h.Status = HealthStatusDegraded
		h.Message = err.Error()
	default:
		h.Status = HealthStatusDown
		h.Message = err.Error()
	}
	return h
}

// ServiceHealth aggregates component health.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent appends ch; down wins over degraded, degraded over up.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}
