package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker defines interface for health checking
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Check(ctx context.Context) error { return f(ctx) }

// HealthStatus is the body of /health and /health/ready.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    float64                `json:"uptimeSeconds"`
	Checks    map[string]CheckStatus `json:"checks"`
}

type CheckStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Health runs the named dependency checks behind the health endpoints.
// A failing optional check degrades the report without failing readiness.
type Health struct {
	Version  string
	Checks   map[string]HealthChecker
	Optional map[string]bool
	Timeout  time.Duration
	Started  time.Time
}

func NewHealth(version string) *Health {
	return &Health{
		Version:  version,
		Checks:   map[string]HealthChecker{},
		Optional: map[string]bool{},
		Timeout:  5 * time.Second,
		Started:  time.Now(),
	}
}

// Add registers a required check.
func (h *Health) Add(name string, c HealthChecker) { h.Checks[name] = c }

// AddOptional registers a check that only degrades the report.
func (h *Health) AddOptional(name string, c HealthChecker) {
	h.Checks[name] = c
	h.Optional[name] = true
}

// Run executes every check concurrently under the health timeout.
func (h *Health) Run(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]CheckStatus, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		i, name := i, name
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckStatus{Status: StatusHealthy, Optional: h.Optional[name]}
			if err := h.Checks[name].Check(ctx); err != nil {
				res.Status = StatusUnhealthy
				res.Message = err.Error()
			}
			results[i] = res
		}()
	}
	wg.Wait()

	report := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   h.Version,
		Uptime:    time.Since(h.Started).Seconds(),
		Checks:    make(map[string]CheckStatus, len(names)),
	}
	for i, name := range names {
		res := results[i]
		report.Checks[name] = res
		switch {
		case res.Status == StatusHealthy:
		case res.Optional:
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		default:
			report.Status = StatusUnhealthy
		}
	}
	return report
}

// Handler serves the full report; 503 only when a required check fails.
func (h *Health) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Run(r.Context())
		writeHealth(w, report, report.Status != StatusUnhealthy)
	}
}

// ReadyHandler reports whether the catalog and ticket counter can serve
// traffic.
func (h *Health) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Run(r.Context())
		ready := report.Status != StatusUnhealthy
		if ready {
			report.Status = "ready"
		} else {
			report.Status = "not_ready"
		}
		writeHealth(w, report, ready)
	}
}

func writeHealth(w http.ResponseWriter, report HealthStatus, ok bool) {
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}

// LivenessHandler answers as long as the process serves HTTP.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
