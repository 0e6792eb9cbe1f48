// Package observability provides structured logging, Prometheus metrics, and
// health checks for the admin gateway.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("component", "session").Info("manager started")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(nil)
//	metrics.LoginsTotal.WithLabelValues("success").Inc()
//	metrics.ActiveSessions.Set(float64(live))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(5 * time.Second)
//	checker.RegisterRedis(redisClient)
//	checker.RegisterHTTP("backend", cfg.BackendURL+"/healthz")
//	mux.Handle("/healthz", checker.Handler())
package observability
