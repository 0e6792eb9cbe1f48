package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
)

func TestClientVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"admin":{"id":"a1","email":"ops@example.com","role":"ops"}}`))
	}))
	defer srv.Close()

	ident, err := NewClient(srv.URL).Verify(context.Background(), "tok-1")
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "a1", ident.ID)
	assert.Equal(t, roles.RoleOps, ident.Role)
}

func TestClientVerifyNotAdmin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"admin":null}`))
	}))
	defer srv.Close()

	ident, err := NewClient(srv.URL).Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, ident)
}

func TestClientVerifyClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "plain unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":"invalid token"}`,
			wantErr: ErrUnauthorized,
		},
		{
			name:    "unauthorized empty body",
			status:  http.StatusUnauthorized,
			body:    ``,
			wantErr: ErrUnauthorized,
		},
		{
			name:    "structured revocation code",
			status:  http.StatusUnauthorized,
			body:    `{"error":"session terminated by administrator","code":"session_revoked"}`,
			wantErr: ErrRevoked,
		},
		{
			name:    "legacy revoked substring",
			status:  http.StatusUnauthorized,
			body:    `{"error":"session has been revoked"}`,
			wantErr: ErrRevoked,
		},
		{
			name:    "forbidden treated as unauthorized",
			status:  http.StatusForbidden,
			body:    `{"error":"not an admin"}`,
			wantErr: ErrUnauthorized,
		},
		{
			name:    "server error is unavailable",
			status:  http.StatusInternalServerError,
			body:    `{"error":"boom"}`,
			wantErr: ErrUnavailable,
		},
		{
			name:    "bad gateway is unavailable",
			status:  http.StatusBadGateway,
			body:    ``,
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ident, err := NewClient(srv.URL).Verify(context.Background(), "tok")
			assert.Nil(t, ident)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClientVerifyNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := NewClient(srv.URL).Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientVerifyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	client := NewClient(srv.URL, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := client.Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClientVerifyMalformed2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Verify(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
