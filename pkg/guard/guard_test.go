package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/identity"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/session"
)

func authSnapshot(role roles.Role) session.Snapshot {
	return session.Snapshot{
		State:    session.StateAuthenticated,
		Session:  &session.Session{Token: "tok"},
		Identity: &identity.Identity{ID: "a1", Role: role},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		snap     session.Snapshot
		prefix   string
		required []roles.Role
		want     Decision
	}{
		{
			name:   "bootstrapping holds even with bad prefix",
			snap:   session.Snapshot{State: session.StateBootstrapping},
			prefix: "nope",
			want:   RenderLoading,
		},
		{
			name:   "unauthenticated goes to login regardless of prefix validity",
			snap:   session.Snapshot{State: session.StateUnauthenticated},
			prefix: "nope",
			want:   RedirectLogin,
		},
		{
			name:   "unauthenticated with valid prefix still goes to login",
			snap:   session.Snapshot{State: session.StateUnauthenticated},
			prefix: "finance",
			want:   RedirectLogin,
		},
		{
			name: "authenticated state without identity is not authenticated",
			snap: session.Snapshot{
				State:   session.StateAuthenticated,
				Session: &session.Session{Token: "tok"},
			},
			prefix: "finance",
			want:   RedirectLogin,
		},
		{
			name:   "unknown prefix goes to not-found",
			snap:   authSnapshot(roles.RoleFinance),
			prefix: "warehouse",
			want:   RedirectNotFound,
		},
		{
			name:   "support identity on admin prefix goes to own dashboard",
			snap:   authSnapshot(roles.RoleSupport),
			prefix: "admin",
			want:   RedirectOwnDashboard,
		},
		{
			name:     "role not in required set goes to not-found",
			snap:     authSnapshot(roles.RoleOps),
			prefix:   "ops",
			required: []roles.Role{roles.RoleFinance},
			want:     RedirectNotFound,
		},
		{
			name:     "super_admin satisfies any required set",
			snap:     authSnapshot(roles.RoleSuperAdmin),
			prefix:   "admin",
			required: []roles.Role{roles.RoleFinance},
			want:     Render,
		},
		{
			name:   "matching prefix with no requirement renders",
			snap:   authSnapshot(roles.RoleFinance),
			prefix: "finance",
			want:   Render,
		},
		{
			name:     "matching prefix with satisfied requirement renders",
			snap:     authSnapshot(roles.RoleSupport),
			prefix:   "support",
			required: []roles.Role{roles.RoleSupport, roles.RoleOps},
			want:     Render,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.snap, tt.prefix, tt.required))
		})
	}
}

func TestOwnDashboard(t *testing.T) {
	assert.Equal(t, "/support/dashboard", OwnDashboard(&identity.Identity{Role: roles.RoleSupport}))
	assert.Equal(t, "/admin/dashboard", OwnDashboard(&identity.Identity{Role: roles.RoleSuperAdmin}))
	assert.Equal(t, "/login", OwnDashboard(nil))
}

func newGuardedRouter(snap session.Snapshot, required []roles.Role) *mux.Router {
	mw := &Middleware{
		Resolve:  func(r *http.Request) session.Snapshot { return snap },
		Required: func(r *http.Request) []roles.Role { return required },
	}

	router := mux.NewRouter()
	router.PathPrefix("/{rolePrefix}/").Handler(mw.Handler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))
	return router
}

func TestMiddlewareRedirects(t *testing.T) {
	tests := []struct {
		name         string
		snap         session.Snapshot
		path         string
		wantStatus   int
		wantLocation string
	}{
		{
			name:         "unauthenticated to login",
			snap:         session.Snapshot{State: session.StateUnauthenticated},
			path:         "/finance/dashboard",
			wantStatus:   http.StatusFound,
			wantLocation: "/login",
		},
		{
			name:         "wrong role to own dashboard",
			snap:         authSnapshot(roles.RoleSupport),
			path:         "/admin/dashboard",
			wantStatus:   http.StatusFound,
			wantLocation: "/support/dashboard",
		},
		{
			name:         "unknown prefix to not-found",
			snap:         authSnapshot(roles.RoleSupport),
			path:         "/warehouse/dashboard",
			wantStatus:   http.StatusFound,
			wantLocation: "/404",
		},
		{
			name:       "matching role renders",
			snap:       authSnapshot(roles.RoleFinance),
			path:       "/finance/dashboard",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newGuardedRouter(tt.snap, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestMiddlewareLoading(t *testing.T) {
	router := newGuardedRouter(session.Snapshot{State: session.StateBootstrapping}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/finance/dashboard", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":"loading"}`, rec.Body.String())
}

func TestMiddlewareRequiredRoles(t *testing.T) {
	router := newGuardedRouter(authSnapshot(roles.RoleOps), []roles.Role{roles.RoleFinance})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/api/tax-configuration", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/404", rec.Header().Get("Location"))
}
