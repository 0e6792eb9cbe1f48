// Package session owns the admin session state machine: bootstrap from
// persisted token storage, login and logout against the identity provider,
// the periodic revocation check, and reaction to provider-originated session
// events. All state mutations funnel through a single apply entry point so
// interleavings between the poll, provider events, and explicit operations
// stay centralized and testable.
package session
