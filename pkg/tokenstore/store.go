package tokenstore

import "sync"

// DefaultTTLDays is the default cookie lifetime
const DefaultTTLDays = 7

// Store is the bearer token persistence contract. Implementations never
// return errors; a missing token is the empty string.
type Store interface {
	// SetToken stores the token with an expiration of ttlDays days,
	// overwriting any existing token. ttlDays <= 0 uses DefaultTTLDays.
	SetToken(token string, ttlDays int)

	// GetToken returns the stored token, or "" when absent
	GetToken() string

	// ClearToken deletes the stored token; calling it with no token stored
	// is a no-op
	ClearToken()
}

// MemStore is an in-memory Store. The session registry seeds one per live
// session, and tests use it in place of cookie-backed storage.
type MemStore struct {
	mu    sync.Mutex
	token string
}

// NewMemStore creates a MemStore holding the given token
func NewMemStore(token string) *MemStore {
	return &MemStore{token: token}
}

// SetToken stores the token. TTL does not apply to process-memory storage.
func (s *MemStore) SetToken(token string, ttlDays int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// GetToken returns the stored token, or "" when absent
func (s *MemStore) GetToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ClearToken deletes the stored token
func (s *MemStore) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
