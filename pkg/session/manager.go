package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/audit"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/identity"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/provider"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/tokenstore"
)

// State is the session lifecycle state
type State string

const (
	StateBootstrapping   State = "bootstrapping"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// DefaultPollInterval is how often an authenticated session is re-verified
// against the backend to detect server-side revocation
const DefaultPollInterval = 30 * time.Second

// AccessDeniedMessage is surfaced when credentials are valid with the
// identity provider but the account is not an authorized admin
const AccessDeniedMessage = "Access denied. Not authorized as admin."

// Session is the in-memory session record. It exists only for the lifetime
// of the manager; the token store persists the raw token alone.
type Session struct {
	Token           string
	ProviderSession map[string]interface{}
}

// Provider is the identity provider surface the manager depends on
type Provider interface {
	Configured() bool
	SignIn(ctx context.Context, email, password string) (*provider.Session, error)
	SignOut(ctx context.Context, token string) error
}

// LoginResult is the outcome of a Login call
type LoginResult struct {
	Success    bool   `json:"success"`
	RolePrefix string `json:"role_prefix,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Snapshot is a read-only view of the manager's state
type Snapshot struct {
	State    State
	Session  *Session
	Identity *identity.Identity
}

// IsAuthenticated is true iff both session and identity are present. This is
// the single boolean the route guard consumes.
func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.Session != nil && s.Identity != nil
}

// Config wires a Manager's collaborators
type Config struct {
	Store    tokenstore.Store
	Verifier identity.Verifier
	Provider Provider
	Audit    audit.Recorder
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	// PollInterval for the revocation check; DefaultPollInterval when zero
	PollInterval time.Duration

	// CookieTTLDays for tokens persisted on login; tokenstore default when zero
	CookieTTLDays int

	// ForceLogout is invoked (at most once per authenticated run) when the
	// revocation poll detects session termination. It must override any
	// in-flight UI, hence a hard navigation hook rather than a state flag.
	ForceLogout func()
}

// Manager owns the session and identity for one admin session
type Manager struct {
	cfg    Config
	logger *observability.Logger

	mu       sync.Mutex
	closed   bool
	state    State
	session  *Session
	identity *identity.Identity

	polling  bool
	pollStop chan struct{}
}

// NewManager creates a manager in the Bootstrapping state
func NewManager(cfg Config) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NopRecorder{}
	}
	return &Manager{
		cfg:    cfg,
		logger: cfg.Logger.WithField("component", "session"),
		state:  StateBootstrapping,
	}
}

// update describes one atomic state change
type update struct {
	setState    bool
	state       State
	setSession  bool
	session     *Session
	setIdentity bool
	identity    *identity.Identity
}

// apply is the single entry point for mutating session state. It refuses
// writes once the manager is closed, so a slow async continuation can never
// clobber a newer transition after teardown.
func (m *Manager) apply(u update) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	if u.setState {
		m.state = u.state
	}
	if u.setSession {
		m.session = u.session
	}
	if u.setIdentity {
		m.identity = u.identity
	}
	return true
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{State: m.state}
	if m.session != nil {
		s := *m.session
		snap.Session = &s
	}
	if m.identity != nil {
		id := *m.identity
		snap.Identity = &id
	}
	return snap
}

// IsAuthenticated reports whether both session and identity are present
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

// HasRole reports whether the current identity satisfies the required role
// set; super_admin satisfies any requirement.
func (m *Manager) HasRole(required ...roles.Role) bool {
	snap := m.Snapshot()
	if !snap.IsAuthenticated() {
		return false
	}
	return roles.Satisfies(snap.Identity.Role, required)
}

// Bootstrap reconstructs session state from the token store. It completes
// (success or failure) before the revocation poll is armed.
func (m *Manager) Bootstrap(ctx context.Context) {
	if m.cfg.Provider == nil || !m.cfg.Provider.Configured() {
		m.logger.Warn("identity provider not configured, running unauthenticated")
		m.apply(update{setState: true, state: StateUnauthenticated})
		m.countBootstrap("unconfigured")
		return
	}

	token := m.cfg.Store.GetToken()
	if token == "" {
		m.apply(update{setState: true, state: StateUnauthenticated})
		m.countBootstrap("no_token")
		return
	}

	ident, err := m.verify(ctx, token)
	if err != nil || ident == nil {
		if err != nil && errors.Is(err, identity.ErrRevoked) {
			m.logger.Info("stored session was revoked, clearing")
		} else {
			m.logger.WithError(err).Debug("stored token failed verification")
		}
		m.teardown(ctx, token)
		m.countBootstrap("rejected")
		return
	}

	applied := m.apply(update{
		setState: true, state: StateAuthenticated,
		setSession: true, session: &Session{Token: token},
		setIdentity: true, identity: ident,
	})
	if applied {
		m.countBootstrap("authenticated")
		m.startPoll()
	}
}

// Login authenticates against the identity provider and verifies admin
// authorization. It never returns an error; failures are carried in the
// result for the caller to surface.
func (m *Manager) Login(ctx context.Context, email, password string) LoginResult {
	if m.cfg.Provider == nil || !m.cfg.Provider.Configured() {
		return LoginResult{Error: "authentication is not configured"}
	}

	ps, err := m.cfg.Provider.SignIn(ctx, email, password)
	if err != nil {
		// Provider rejection mutates nothing
		m.countLogin("provider_rejected")
		return LoginResult{Error: "Invalid email or password."}
	}

	// The session is set and the token persisted before verification, so a
	// crash between the two is recovered by the next bootstrap's cleanup.
	m.apply(update{setSession: true, session: &Session{
		Token:           ps.AccessToken,
		ProviderSession: ps.Raw,
	}})
	m.cfg.Store.SetToken(ps.AccessToken, m.cfg.CookieTTLDays)

	ident, err := m.verify(ctx, ps.AccessToken)
	if err != nil || ident == nil {
		// Valid credentials, but not an authorized admin: roll back
		if signOutErr := m.cfg.Provider.SignOut(ctx, ps.AccessToken); signOutErr != nil {
			m.logger.WithError(signOutErr).Warn("provider sign-out during login rollback failed")
		}
		m.cfg.Store.ClearToken()
		m.apply(update{
			setState: true, state: StateUnauthenticated,
			setSession: true, session: nil,
			setIdentity: true, identity: nil,
		})
		m.countLogin("not_admin")
		return LoginResult{Error: AccessDeniedMessage}
	}

	m.apply(update{
		setState: true, state: StateAuthenticated,
		setIdentity: true, identity: ident,
	})
	m.countLogin("success")
	m.startPoll()
	return LoginResult{Success: true, RolePrefix: roles.Prefix(ident.Role)}
}

// Logout tears the session down. It always succeeds from the caller's
// perspective; audit and provider failures are logged and swallowed.
func (m *Manager) Logout(ctx context.Context) {
	snap := m.Snapshot()

	if snap.Identity != nil {
		m.recordLogoutActivity(snap.Identity)
	}

	token := ""
	if snap.Session != nil {
		token = snap.Session.Token
	}
	m.stopPoll()
	m.teardown(ctx, token)

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.LogoutsTotal.Inc()
	}
}

// RefreshProfile re-fetches the identity for the current session. Returns
// false when no refresh happened. A transient backend failure keeps the
// existing identity; a rejection tears the session down.
func (m *Manager) RefreshProfile(ctx context.Context) bool {
	snap := m.Snapshot()
	if !snap.IsAuthenticated() {
		return false
	}

	ident, err := m.verify(ctx, snap.Session.Token)
	if err != nil {
		if errors.Is(err, identity.ErrUnavailable) {
			m.logger.WithError(err).Warn("profile refresh skipped, backend unavailable")
			return false
		}
		m.stopPoll()
		m.teardown(ctx, snap.Session.Token)
		return false
	}
	if ident == nil {
		m.stopPoll()
		m.teardown(ctx, snap.Session.Token)
		return false
	}

	return m.apply(update{setIdentity: true, identity: ident})
}

// HandleProviderEvent reacts to one provider-originated session event
func (m *Manager) HandleProviderEvent(ctx context.Context, ev provider.Event) {
	switch ev.Type {
	case provider.EventTokenRefreshed, provider.EventSignedIn:
		if ev.Token == "" {
			return
		}
		// The provider-level event does not change admin authorization, so
		// the identity is intentionally not re-fetched here.
		applied := m.apply(update{setSession: true, session: &Session{Token: ev.Token}})
		if applied {
			m.cfg.Store.SetToken(ev.Token, m.cfg.CookieTTLDays)
		}
	case provider.EventSignedOut:
		m.stopPoll()
		m.cfg.Store.ClearToken()
		m.apply(update{
			setState: true, state: StateUnauthenticated,
			setSession: true, session: nil,
			setIdentity: true, identity: nil,
		})
	case provider.EventInitialSession:
		// Bootstrap already reconstructed state from the token store;
		// acting on this would race the provider's cached session against
		// the cookie-stored token.
	}
}

// Watch consumes provider events until the channel closes or ctx ends
func (m *Manager) Watch(ctx context.Context, events <-chan provider.Event) {
	if events == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.HandleProviderEvent(ctx, ev)
		}
	}
}

// Close tears the manager down. Late async continuations become no-ops.
func (m *Manager) Close() {
	m.stopPoll()
	m.mu.Lock()
	m.closed = true
	m.session = nil
	m.identity = nil
	m.mu.Unlock()
}

// verify runs one verification call with timing metrics
func (m *Manager) verify(ctx context.Context, token string) (*identity.Identity, error) {
	start := time.Now()
	ident, err := m.cfg.Verifier.Verify(ctx, token)
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.VerifyDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case errors.Is(err, identity.ErrRevoked):
			result = "revoked"
		case errors.Is(err, identity.ErrUnavailable):
			result = "unavailable"
		case err != nil:
			result = "unauthorized"
		case ident == nil:
			result = "not_admin"
		}
		m.cfg.Metrics.VerificationsTotal.WithLabelValues(result).Inc()
	}
	return ident, err
}

// teardown clears persisted and in-memory session state, with a best-effort
// provider sign-out when a token is known
func (m *Manager) teardown(ctx context.Context, token string) {
	m.cfg.Store.ClearToken()
	if token != "" && m.cfg.Provider != nil {
		if err := m.cfg.Provider.SignOut(ctx, token); err != nil {
			m.logger.WithError(err).Debug("best-effort provider sign-out failed")
		}
	}
	m.apply(update{
		setState: true, state: StateUnauthenticated,
		setSession: true, session: nil,
		setIdentity: true, identity: nil,
	})
}

// recordLogoutActivity writes the audit record without blocking logout
func (m *Manager) recordLogoutActivity(ident *identity.Identity) {
	event := &audit.Event{
		Action:  audit.ActionLogout,
		AdminID: ident.ID,
		Email:   ident.Email,
		Role:    string(ident.Role),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.cfg.Audit.Record(ctx, event); err != nil {
			m.logger.WithError(err).Warn("logout audit write failed")
		}
	}()
}

// startPoll arms the revocation check. Only one poll loop runs at a time,
// and only once an authenticated state has been reached.
func (m *Manager) startPoll() {
	m.mu.Lock()
	if m.closed || m.polling {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.polling = true
	m.pollStop = stop
	m.mu.Unlock()

	go m.pollLoop(stop)
}

// stopPoll halts the revocation check; safe to call repeatedly
func (m *Manager) stopPoll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollStop != nil {
		close(m.pollStop)
		m.pollStop = nil
	}
	m.polling = false
}

// pollLoop silently re-verifies the session every poll interval. A backend
// rejection tears the session down and fires the forced-logout hook exactly
// once; a transient backend outage alone does not destroy a valid session.
func (m *Manager) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := m.Snapshot()
			if !snap.IsAuthenticated() {
				m.stopPoll()
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PollInterval)
			ident, err := m.verify(ctx, snap.Session.Token)
			cancel()

			if err != nil && errors.Is(err, identity.ErrUnavailable) {
				m.logger.WithError(err).Warn("revocation check skipped, backend unavailable")
				continue
			}

			if err != nil || ident == nil {
				revoked := errors.Is(err, identity.ErrRevoked)
				m.logger.WithFields(map[string]interface{}{
					"revoked": revoked,
				}).Info("session terminated by backend, forcing logout")

				m.stopPoll()
				m.teardown(context.Background(), snap.Session.Token)
				if m.cfg.Metrics != nil {
					m.cfg.Metrics.RevocationsTotal.Inc()
				}
				if m.cfg.ForceLogout != nil {
					m.cfg.ForceLogout()
				}
				return
			}

			// Keep the profile fresh between explicit refreshes
			m.apply(update{setIdentity: true, identity: ident})
		}
	}
}

func (m *Manager) countBootstrap(outcome string) {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.BootstrapsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Manager) countLogin(outcome string) {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}
