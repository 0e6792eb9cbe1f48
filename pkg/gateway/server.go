package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/audit"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/guard"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/httputil"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/routes"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/session"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/tokenstore"
)

// Server is the admin console gateway
type Server struct {
	registry *session.Registry

	// newManager builds a manager over a per-exchange token store; used for
	// login flows so cookie writes land on the live response
	newManager func(store tokenstore.Store) *session.Manager

	policy  *routes.Policy
	proxy   *Proxy
	limiter *LoginLimiter
	audit   audit.Recorder

	cookieTTLDays int
	secureCookies bool
	trustProxy    bool

	logger  *observability.Logger
	metrics *observability.Metrics
}

// ServerConfig wires a Server's collaborators
type ServerConfig struct {
	Registry   *session.Registry
	NewManager func(store tokenstore.Store) *session.Manager
	Policy     *routes.Policy
	Proxy      *Proxy
	Limiter    *LoginLimiter
	Audit      audit.Recorder

	CookieTTLDays int
	SecureCookies bool

	// TrustProxy enables X-Forwarded-For when a trusted proxy fronts the
	// gateway; off by default so rate limiting keys on the real peer
	TrustProxy bool

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// NewServer creates the gateway server
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	auditRec := cfg.Audit
	if auditRec == nil {
		auditRec = audit.NopRecorder{}
	}
	return &Server{
		registry:      cfg.Registry,
		newManager:    cfg.NewManager,
		policy:        cfg.Policy,
		proxy:         cfg.Proxy,
		limiter:       cfg.Limiter,
		audit:         auditRec,
		cookieTTLDays: cfg.CookieTTLDays,
		secureCookies: cfg.SecureCookies,
		trustProxy:    cfg.TrustProxy,
		logger:        logger.WithField("component", "gateway"),
		metrics:       cfg.Metrics,
	}
}

// Router builds the gateway's route surface
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.SecurityHeadersMiddleware)
	router.Use(httputil.RecoveryMiddleware(s.logger))
	router.Use(httputil.LoggingMiddleware(s.logger, s.trustProxy))

	router.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	router.HandleFunc("/register", s.handleRegister).Methods(http.MethodGet)
	router.HandleFunc("/404", s.handleNotFound).Methods(http.MethodGet)
	router.HandleFunc("/500", s.handleServerError).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	guarded := &guard.Middleware{
		Resolve:  s.resolveSession,
		Required: s.requiredRoles,
		Logger:   s.logger,
	}

	router.Handle("/{rolePrefix}/dashboard",
		guarded.Handler(http.HandlerFunc(s.handleDashboard))).Methods(http.MethodGet)
	router.PathPrefix("/{rolePrefix}/api/{resource:.+}").Handler(
		guarded.Handler(http.HandlerFunc(s.handleAPI)))

	return router
}

// resolveSession maps a request's cookie token to its live session state
func (s *Server) resolveSession(r *http.Request) session.Snapshot {
	token := tokenstore.ReadToken(r)
	m := s.registry.Lookup(r.Context(), token)
	if m == nil {
		return session.Snapshot{State: session.StateUnauthenticated}
	}
	return m.Snapshot()
}

// requiredRoles answers the policy requirement for a request's resource
func (s *Server) requiredRoles(r *http.Request) []roles.Role {
	if s.policy == nil {
		return nil
	}
	resource := mux.Vars(r)["resource"]
	if resource == "" {
		return nil
	}
	return s.policy.RequiredRoles(resource)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	clientIP := httputil.ClientIP(r, s.trustProxy)
	if s.limiter != nil && !s.limiter.Allow(r.Context(), clientIP) {
		httputil.WriteErrorMessage(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	var body loginRequest
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}
	if body.Email == "" || body.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	store := tokenstore.NewCookieStore(w, r)
	store.Secure = s.secureCookies

	m := s.newManager(store)
	defer m.Close()

	result := m.Login(r.Context(), body.Email, body.Password)
	if !result.Success {
		httputil.WriteJSON(w, http.StatusUnauthorized, result)
		return
	}

	snap := m.Snapshot()
	if snap.Identity != nil {
		s.recordActivity(&audit.Event{
			Action:    audit.ActionLogin,
			AdminID:   snap.Identity.ID,
			Email:     snap.Identity.Email,
			Role:      string(snap.Identity.Role),
			IPAddress: clientIP,
			UserAgent: r.UserAgent(),
		})
	}

	httputil.WriteSuccess(w, result)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	store := tokenstore.NewCookieStore(w, r)
	store.Secure = s.secureCookies

	// Lookup bootstraps a manager when none is live (process restart, idle
	// eviction), so the provider sign-out and audit write from an explicit
	// logout happen even on a cold session. A token the bootstrap rejects is
	// already signed out and cleared by its teardown.
	token := store.GetToken()
	if m := s.registry.Lookup(r.Context(), token); m != nil {
		m.Logout(r.Context())
		s.registry.Evict(token)
	}
	store.ClearToken()

	// Logout never fails from the caller's perspective
	httputil.WriteSuccess(w, map[string]bool{"success": true})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusForbidden, map[string]string{
		"error": "self-registration is disabled; admin accounts are provisioned by a super admin",
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
		"error": "page not found",
	})
}

func (s *Server) handleServerError(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "something went wrong",
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// handleRoot sends an authenticated admin to their own dashboard and
// everyone else to login
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	snap := s.resolveSession(r)
	if snap.IsAuthenticated() {
		http.Redirect(w, r, guard.OwnDashboard(snap.Identity), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.resolveSession(r)
	if snap.Identity == nil {
		// The guard let us through, so this should not happen
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"admin":  snap.Identity,
		"prefix": roles.Prefix(snap.Identity.Role),
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	token := tokenstore.ReadToken(r)
	resource := mux.Vars(r)["resource"]
	s.proxy.Forward(w, r, resource, token)
}

// recordActivity writes an audit record without blocking the response
func (s *Server) recordActivity(event *audit.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.Record(ctx, event); err != nil {
			s.logger.WithError(err).Warn("activity audit write failed")
		}
	}()
}
