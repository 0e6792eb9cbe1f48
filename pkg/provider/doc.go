// Package provider integrates with the external identity provider: password
// sign-in via the OAuth2 resource-owner password grant, best-effort token
// revocation on sign-out, and a WebSocket subscription to the provider's
// session event stream (signed in, signed out, token refreshed).
package provider
