package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, wantUser, wantPass string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.Form.Get("grant_type"))

		if r.Form.Get("username") != wantUser || r.Form.Get("password") != wantPass {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at-123",
			"refresh_token": "rt-456",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	}))
}

func TestConfigured(t *testing.T) {
	c, err := NewClient(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.False(t, c.Configured())

	c, err = NewClient(context.Background(), Config{TokenURL: "http://localhost/token"}, nil)
	require.NoError(t, err)
	assert.True(t, c.Configured())
}

func TestSignIn(t *testing.T) {
	srv := newTokenServer(t, "admin@example.com", "secret")
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{
		TokenURL: srv.URL + "/token",
		ClientID: "admin-gateway",
	}, nil)
	require.NoError(t, err)

	sess, err := c.SignIn(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "at-123", sess.AccessToken)
	assert.Equal(t, "rt-456", sess.RefreshToken)
	assert.Equal(t, "bearer", strings.ToLower(sess.TokenType))
	assert.NotNil(t, sess.Raw)
}

func TestSignInBadCredentials(t *testing.T) {
	srv := newTokenServer(t, "admin@example.com", "secret")
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{TokenURL: srv.URL + "/token"}, nil)
	require.NoError(t, err)

	sess, err := c.SignIn(context.Background(), "admin@example.com", "wrong")
	assert.Error(t, err)
	assert.Nil(t, sess)
}

func TestSignInNotConfigured(t *testing.T) {
	c, err := NewClient(context.Background(), Config{}, nil)
	require.NoError(t, err)

	_, err = c.SignIn(context.Background(), "a@example.com", "pw")
	assert.Error(t, err)
}

func TestSignOut(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{
		TokenURL:     "http://localhost/token",
		RevokeURL:    srv.URL + "/revoke",
		ClientID:     "admin-gateway",
		ClientSecret: "cs",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, c.SignOut(context.Background(), "at-123"))
	assert.Equal(t, "at-123", gotForm.Get("token"))
	assert.Equal(t, "access_token", gotForm.Get("token_type_hint"))
	assert.Equal(t, "admin-gateway", gotForm.Get("client_id"))
}

func TestSignOutRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{
		TokenURL:  "http://localhost/token",
		RevokeURL: srv.URL + "/revoke",
	}, nil)
	require.NoError(t, err)

	assert.Error(t, c.SignOut(context.Background(), "at-123"))
}

func TestSignOutNoRevokeURL(t *testing.T) {
	c, err := NewClient(context.Background(), Config{TokenURL: "http://localhost/token"}, nil)
	require.NoError(t, err)

	assert.NoError(t, c.SignOut(context.Background(), "at-123"))
	assert.NoError(t, c.SignOut(context.Background(), ""))
}

var upgrader = websocket.Upgrader{}

func TestSubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		messages := []string{
			`{"event":"INITIAL_SESSION","access_token":"cached"}`,
			`not json`,
			`{"event":"TOKEN_REFRESHED","access_token":"fresh-tok"}`,
			`{"event":"SIGNED_OUT"}`,
		}
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := NewClient(ctx, Config{
		TokenURL:  "http://localhost/token",
		EventsURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}, nil)
	require.NoError(t, err)

	events := c.Subscribe(ctx)
	require.NotNil(t, events)

	var got []Event
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events", len(got))
		}
	}

	assert.Equal(t, EventInitialSession, got[0].Type)
	assert.Equal(t, EventTokenRefreshed, got[1].Type)
	assert.Equal(t, "fresh-tok", got[1].Token)
	assert.Equal(t, EventSignedOut, got[2].Type)
}

func TestSubscribeNoEventsURL(t *testing.T) {
	c, err := NewClient(context.Background(), Config{TokenURL: "http://localhost/token"}, nil)
	require.NoError(t, err)
	assert.Nil(t, c.Subscribe(context.Background()))
}
