// Package guard gates navigation to role-prefixed admin routes. A pure
// Evaluate function decides what to do with a request given the session state
// and the target's requirements; Middleware translates decisions into HTTP
// responses.
package guard
