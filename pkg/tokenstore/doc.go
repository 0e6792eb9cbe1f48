// Package tokenstore persists the admin bearer token across page loads.
//
// The canonical storage is a single cookie with a bounded lifetime. A legacy
// cookie written by an earlier auth integration is read as a fallback (never
// written): its value is a JSON blob carrying an access_token field, and when
// that parse fails the raw cookie value is treated as the token itself.
// Absence is represented as an empty string; no operation returns an error.
package tokenstore
