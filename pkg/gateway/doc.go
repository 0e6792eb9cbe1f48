// Package gateway is the HTTP surface of the admin console. It terminates
// the session cookie, runs login/logout, guards role-prefixed navigation,
// and proxies admin resource calls to the platform backend with the
// session's bearer token injected.
package gateway
