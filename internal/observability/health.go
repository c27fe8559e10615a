package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const serviceName = "voice-command-gateway"

// Version is reported by the health endpoints; set at build time with -ldflags
var Version = "dev"

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Timestamp    string                      `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Optional  bool   `json:"optional,omitempty"`
}

// HealthCheckFunc probes one dependency
type HealthCheckFunc func(ctx context.Context) error

// HealthCheck is a named dependency probe. A failing optional check (a
// provider with a fallback) marks the service degraded but still ready.
type HealthCheck struct {
	Name     string
	Check    HealthCheckFunc
	Optional bool
}

// HealthCheckHandler handles liveness requests
func HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, HealthStatus{
			Status:    "healthy",
			Service:   serviceName,
			Version:   Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessHandler runs every check concurrently and reports 503 if a
// required one fails
func ReadinessHandler(timeout time.Duration, checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			mu           sync.Mutex
			wg           sync.WaitGroup
			dependencies = make(map[string]DependencyStatus, len(checks))
			ready        = true
			degraded     = false
		)

		for _, hc := range checks {
			wg.Add(1)
			go func(hc HealthCheck) {
				defer wg.Done()

				start := time.Now()
				err := hc.Check(ctx)
				dep := DependencyStatus{
					Status:    "healthy",
					LatencyMs: time.Since(start).Milliseconds(),
					Optional:  hc.Optional,
				}
				if err != nil {
					dep.Status = "unhealthy"
					dep.Message = err.Error()
				}

				mu.Lock()
				defer mu.Unlock()
				dependencies[hc.Name] = dep
				if err != nil {
					if hc.Optional {
						degraded = true
					} else {
						ready = false
					}
				}
			}(hc)
		}
		wg.Wait()

		status := HealthStatus{
			Status:       "ready",
			Service:      serviceName,
			Version:      Version,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Dependencies: dependencies,
		}

		code := http.StatusOK
		switch {
		case !ready:
			status.Status = "not_ready"
			code = http.StatusServiceUnavailable
		case degraded:
			status.Status = "degraded"
		}
		writeStatus(w, code, status)
	}
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
