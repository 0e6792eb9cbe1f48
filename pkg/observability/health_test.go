package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckerAllHealthy(t *testing.T) {
	checker := NewHealthChecker(time.Second)
	checker.Register("ok", func(ctx context.Context) error { return nil })

	report := checker.Run(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, StatusHealthy, report.Checks[0].Status)
}

func TestHealthCheckerDegraded(t *testing.T) {
	checker := NewHealthChecker(time.Second)
	checker.Register("ok", func(ctx context.Context) error { return nil })
	checker.Register("bad", func(ctx context.Context) error { return errors.New("down") })

	report := checker.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Checks, 2)
}

func TestHealthCheckerRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewHealthChecker(time.Second)
	checker.RegisterRedis(client)

	report := checker.Run(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
}

func TestHealthCheckerHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewHealthChecker(time.Second)
	checker.RegisterHTTP("backend", srv.URL)

	report := checker.Run(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
}

func TestHealthCheckerHandler(t *testing.T) {
	checker := NewHealthChecker(time.Second)
	checker.Register("ok", func(ctx context.Context) error { return nil })

	w := httptest.NewRecorder()
	checker.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, StatusHealthy, report.Status)
}
