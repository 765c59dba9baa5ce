package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is anything that can report liveness with a round trip.
// *pgxpool.Pool satisfies it directly; Redis is wrapped with PingFunc.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker manages health checks for the service
type HealthChecker struct {
	required map[string]Pinger
	optional map[string]Pinger
	timeout  time.Duration
}

// NewHealthChecker creates a new HealthChecker.
// db may be nil when the service runs without a database.
func NewHealthChecker(db Pinger) *HealthChecker {
	h := &HealthChecker{
		required: make(map[string]Pinger),
		optional: make(map[string]Pinger),
		timeout:  2 * time.Second,
	}
	if db != nil {
		h.required["database"] = db
	}
	return h
}

// AddOptional registers a dependency whose failure degrades but does not fail health.
// The callback deduper falls back to memory, so Redis is registered this way.
func (h *HealthChecker) AddOptional(name string, p Pinger) {
	h.optional[name] = p
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	checks := make(map[string]string)
	overallStatus := "healthy"

	if len(h.required) == 0 {
		checks["database"] = "not configured"
	}

	for name, p := range h.required {
		if err := h.ping(ctx, p); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks[name] = "healthy"
		}
	}

	for name, p := range h.optional {
		if err := h.ping(ctx, p); err != nil {
			checks[name] = "degraded: " + err.Error()
			if overallStatus == "healthy" {
				overallStatus = "degraded"
			}
		} else {
			checks[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

func (h *HealthChecker) ping(ctx context.Context, p Pinger) error {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return p.Ping(pingCtx)
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(status)
	}
}
