package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the admin gateway
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	ActiveSessions     prometheus.Gauge
	LoginsTotal        *prometheus.CounterVec
	LogoutsTotal       prometheus.Counter
	RevocationsTotal   prometheus.Counter
	BootstrapsTotal    *prometheus.CounterVec
	VerificationsTotal *prometheus.CounterVec
	VerifyDuration     prometheus.Histogram

	// Proxy metrics
	ProxiedRequestsTotal *prometheus.CounterVec

	// Rate limit metrics
	LoginThrottledTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all gateway metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_gateway_http_requests_total",
				Help: "Total HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admin_gateway_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "admin_gateway_active_sessions",
			Help: "Live authenticated admin sessions",
		}),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_gateway_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		LogoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_gateway_logouts_total",
			Help: "Explicit logouts",
		}),
		RevocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_gateway_revocations_total",
			Help: "Sessions terminated by backend revocation",
		}),
		BootstrapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_gateway_bootstraps_total",
				Help: "Session bootstraps by outcome",
			},
			[]string{"outcome"},
		),
		VerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_gateway_verifications_total",
				Help: "Identity verification calls by result",
			},
			[]string{"result"},
		),
		VerifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "admin_gateway_verify_duration_seconds",
			Help:    "Identity verification call duration",
			Buckets: prometheus.DefBuckets,
		}),
		ProxiedRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_gateway_proxied_requests_total",
				Help: "Requests proxied to the platform backend by resource and status",
			},
			[]string{"resource", "status"},
		),
		LoginThrottledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_gateway_login_throttled_total",
			Help: "Login attempts rejected by the rate limiter",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveSessions,
		m.LoginsTotal,
		m.LogoutsTotal,
		m.RevocationsTotal,
		m.BootstrapsTotal,
		m.VerificationsTotal,
		m.VerifyDuration,
		m.ProxiedRequestsTotal,
		m.LoginThrottledTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request counting and timing.
// path should be the route pattern, not the raw URL, to bound cardinality.
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
