package identity

import (
	"context"
	"errors"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
)

// Identity is the admin profile returned by the backend. It is re-derived on
// every verification cycle and never written to persistent storage.
type Identity struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Role      roles.Role `json:"role"`
	AvatarURL string     `json:"avatar_url,omitempty"`
}

// Verification failure kinds. The manager checks these with errors.Is.
var (
	// ErrUnauthorized means the token is invalid or expired
	ErrUnauthorized = errors.New("identity: unauthorized")

	// ErrRevoked means the backend force-invalidated the session; the
	// caller must also sign out of the identity provider
	ErrRevoked = errors.New("identity: session revoked")

	// ErrUnavailable means the backend could not be reached or answered
	// with a server error
	ErrUnavailable = errors.New("identity: backend unavailable")
)

// Verifier exchanges a bearer token for the authoritative admin identity.
//
// A nil identity with a nil error means the token is valid with the identity
// provider but the account is not an authorized admin.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
