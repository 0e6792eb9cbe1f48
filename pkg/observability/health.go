package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthStatus is the overall health state
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is the outcome of a single dependency check
type CheckResult struct {
	Name     string       `json:"name"`
	Status   HealthStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Duration string       `json:"duration"`
}

// HealthReport is the body of the health endpoint
type HealthReport struct {
	Status HealthStatus  `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// HealthChecker runs dependency probes for the health endpoint
type HealthChecker struct {
	mu      sync.Mutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewHealthChecker creates a checker with a per-probe timeout
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
	}
}

// Register adds a named dependency probe
func (h *HealthChecker) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RegisterRedis probes a redis client with PING
func (h *HealthChecker) RegisterRedis(client *redis.Client) {
	h.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// RegisterHTTP probes an HTTP URL expecting a non-5xx answer
func (h *HealthChecker) RegisterHTTP(name, url string) {
	h.Register(name, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	})
}

// Run executes all probes and aggregates the report
func (h *HealthChecker) Run(ctx context.Context) HealthReport {
	h.mu.Lock()
	names := make([]string, 0, len(h.checks))
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, check := range h.checks {
		names = append(names, name)
		checks[name] = check
	}
	h.mu.Unlock()

	report := HealthReport{Status: StatusHealthy}
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
		start := time.Now()
		err := checks[name](probeCtx)
		cancel()

		result := CheckResult{
			Name:     name,
			Status:   StatusHealthy,
			Duration: time.Since(start).String(),
		}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Error = err.Error()
			report.Status = StatusDegraded
		}
		report.Checks = append(report.Checks, result)
	}
	return report
}

// Handler serves the aggregated health report as JSON
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := h.Run(r.Context())

		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(report)
	})
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
