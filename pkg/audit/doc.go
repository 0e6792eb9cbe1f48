// Package audit records admin account activity. The primary destination is
// the platform backend's account-activity endpoint, written fire-and-forget:
// a failed audit write never blocks the operation that produced it. An
// optional PostgreSQL recorder keeps a local retention copy, and a
// multi-recorder fans one event out to several destinations.
package audit
