// Package roles defines the closed set of admin roles, the role-to-URL-prefix
// mapping used to namespace dashboards, and the access policy evaluated by the
// route guard.
package roles
