package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/provider"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/tokenstore"
)

// Registry maps presented tokens to live Managers. Identity is never
// persisted between processes, so a token seen for the first time after a
// restart is re-verified by a fresh manager bootstrap.
type Registry struct {
	newManager func(store tokenstore.Store) *Manager
	logger     *observability.Logger
	metrics    *observability.Metrics

	group singleflight.Group

	mu       sync.Mutex
	managers map[string]*registryEntry
}

type registryEntry struct {
	manager  *Manager
	lastSeen time.Time
}

// NewRegistry creates a registry. newManager builds a manager around the
// given per-session token store; the registry bootstraps it before use.
func NewRegistry(newManager func(store tokenstore.Store) *Manager, logger *observability.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Registry{
		newManager: newManager,
		logger:     logger.WithField("component", "session_registry"),
		metrics:    metrics,
		managers:   make(map[string]*registryEntry),
	}
}

// Lookup returns the live manager for a token, bootstrapping one on first
// sight. Concurrent first requests for the same token share one bootstrap.
// Returns nil for an empty token or when bootstrap leaves the manager
// unauthenticated.
func (r *Registry) Lookup(ctx context.Context, token string) *Manager {
	if token == "" {
		return nil
	}

	r.mu.Lock()
	if entry, ok := r.managers[token]; ok {
		entry.lastSeen = time.Now()
		m := entry.manager
		r.mu.Unlock()
		if !m.IsAuthenticated() {
			// A manager left behind by a forced logout; drop it
			r.Evict(token)
			return nil
		}
		return m
	}
	r.mu.Unlock()

	v, _, _ := r.group.Do(token, func() (interface{}, error) {
		m := r.newManager(tokenstore.NewMemStore(token))
		m.Bootstrap(ctx)
		if !m.IsAuthenticated() {
			m.Close()
			return (*Manager)(nil), nil
		}
		r.mu.Lock()
		r.managers[token] = &registryEntry{manager: m, lastSeen: time.Now()}
		r.mu.Unlock()
		r.updateGauge()
		return m, nil
	})

	m, _ := v.(*Manager)
	return m
}

// Dispatch routes a provider event to the live manager it concerns. Events
// name provider-side tokens, not registry keys: the registry stays keyed by
// the token the browser presents, which a provider refresh does not change.
// Managers are therefore matched by their current session token, taking
// PreviousToken when the event superseded it.
func (r *Registry) Dispatch(ctx context.Context, ev provider.Event) {
	match := ev.Token
	if ev.PreviousToken != "" {
		match = ev.PreviousToken
	}
	if match == "" {
		return
	}

	r.mu.Lock()
	keys := make([]string, 0, len(r.managers))
	mgrs := make([]*Manager, 0, len(r.managers))
	for token, entry := range r.managers {
		keys = append(keys, token)
		mgrs = append(mgrs, entry.manager)
	}
	r.mu.Unlock()

	// Snapshot outside the registry lock; manager locks nest under it
	for i, m := range mgrs {
		snap := m.Snapshot()
		if snap.Session == nil || snap.Session.Token != match {
			continue
		}
		m.HandleProviderEvent(ctx, ev)
		if ev.Type == provider.EventSignedOut {
			r.Evict(keys[i])
		}
		return
	}
}

// Peek returns the live manager for a token without bootstrapping one
func (r *Registry) Peek(token string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.managers[token]; ok {
		return entry.manager
	}
	return nil
}

// Evict closes and removes the manager for a token; a no-op for unknown
// tokens
func (r *Registry) Evict(token string) {
	r.mu.Lock()
	entry, ok := r.managers[token]
	if ok {
		delete(r.managers, token)
	}
	r.mu.Unlock()

	if ok {
		entry.manager.Close()
		r.updateGauge()
	}
}

// Len returns the number of live managers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Sweep evicts managers that are no longer authenticated or have not been
// presented within maxIdle. Run periodically from the gateway's scheduler.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []string
	for token, entry := range r.managers {
		if entry.lastSeen.Before(cutoff) || !entry.manager.IsAuthenticated() {
			stale = append(stale, token)
		}
	}
	r.mu.Unlock()

	for _, token := range stale {
		r.Evict(token)
	}
	if len(stale) > 0 {
		r.logger.WithField("evicted", len(stale)).Debug("session sweep complete")
	}
	return len(stale)
}

// Close evicts every manager
func (r *Registry) Close() {
	r.mu.Lock()
	entries := make([]*registryEntry, 0, len(r.managers))
	for _, entry := range r.managers {
		entries = append(entries, entry)
	}
	r.managers = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.manager.Close()
	}
	r.updateGauge()
}

func (r *Registry) updateGauge() {
	if r.metrics != nil {
		r.metrics.ActiveSessions.Set(float64(r.Len()))
	}
}
