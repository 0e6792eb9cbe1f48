package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyForward(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotCookie, gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotCookie = r.Header.Get("Cookie")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items":[],"total":0}`))
	}))
	defer backend.Close()

	p, err := NewProxy(backend.URL, 5*time.Second, nil, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost,
		"/finance/api/tax-configuration?page=2&limit=25",
		strings.NewReader(`{"rate":0.21}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "admin_session_token", Value: "tok"})

	rec := httptest.NewRecorder()
	p.Forward(rec, req, "tax-configuration", "tok-abc")

	assert.Equal(t, "/tax-configuration", gotPath)
	assert.Equal(t, "page=2&limit=25", gotQuery, "pagination passes through untouched")
	assert.Equal(t, "Bearer tok-abc", gotAuth)
	assert.Empty(t, gotCookie, "session cookie never reaches the backend")
	assert.Equal(t, `{"rate":0.21}`, gotBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestProxyForwardRelaysBackendError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"holiday already exists"}`))
	}))
	defer backend.Close()

	p, err := NewProxy(backend.URL, 5*time.Second, nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodPost, "/ops/api/holidays", nil), "holidays", "tok")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"holiday already exists"}`, rec.Body.String(),
		"backend error bodies pass through verbatim")
}

func TestProxyForwardBackendDown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	p, err := NewProxy(backend.URL, time.Second, nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "/ops/api/holidays", nil), "holidays", "tok")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"backend unavailable"}`, rec.Body.String())
}

func TestProxyForwardNestedResource(t *testing.T) {
	var gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	p, err := NewProxy(backend.URL, 5*time.Second, nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "/support/api/verification-tokens/email", nil),
		"verification-tokens/email", "tok")

	assert.Equal(t, "/verification-tokens/email", gotPath)
}
