// Package identity verifies bearer tokens against the platform backend and
// returns the authoritative admin profile. Verification failures are
// classified into three kinds the session manager reacts to differently:
// unauthorized (token invalid or expired), revoked (backend force-terminated
// the session), and unavailable (transient network or server failure).
package identity
