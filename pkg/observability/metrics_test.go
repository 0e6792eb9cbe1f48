package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.LoginsTotal.WithLabelValues("success").Inc()
	m.ActiveSessions.Set(3)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["admin_gateway_logins_total"])
	assert.True(t, names["admin_gateway_active_sessions"])
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(nil)
	m.RevocationsTotal.Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "admin_gateway_revocations_total 1"))
}

func TestInstrumentHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	handler := m.InstrumentHandler("/login", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	families, err := registry.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() != "admin_gateway_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == "401" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "request counter must record the 401 status label")
}
