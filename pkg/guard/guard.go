package guard

import (
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/identity"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/session"
)

// Decision is the outcome of guarding one navigation
type Decision int

const (
	// RenderLoading holds the request while a session bootstrap is in flight
	RenderLoading Decision = iota
	// RedirectLogin sends the visitor to the login page
	RedirectLogin
	// RedirectNotFound sends the visitor to the not-found page
	RedirectNotFound
	// RedirectOwnDashboard sends an authenticated admin to their own
	// role-prefixed dashboard
	RedirectOwnDashboard
	// Render lets the request through
	Render
)

func (d Decision) String() string {
	switch d {
	case RenderLoading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectNotFound:
		return "redirect_not_found"
	case RedirectOwnDashboard:
		return "redirect_own_dashboard"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

// Evaluate decides what to do with a navigation to a role-prefixed target.
// The checks run in a fixed order and the first match wins:
//
//  1. Session still bootstrapping: hold with a loading response, never
//     redirect a visitor whose session may yet resolve.
//  2. Not authenticated: to login, regardless of whether the prefix exists.
//  3. Unknown role prefix: to not-found.
//  4. Known prefix that is not the identity's own: to the identity's own
//     dashboard, so a wrong-role deep link stays navigable.
//  5. Required role set not satisfied (super_admin always satisfies): to
//     not-found.
//  6. Otherwise render.
func Evaluate(snap session.Snapshot, urlPrefix string, required []roles.Role) Decision {
	if snap.State == session.StateBootstrapping {
		return RenderLoading
	}
	if !snap.IsAuthenticated() {
		return RedirectLogin
	}
	if !roles.KnownPrefix(urlPrefix) {
		return RedirectNotFound
	}
	if urlPrefix != roles.Prefix(snap.Identity.Role) {
		return RedirectOwnDashboard
	}
	if !roles.Satisfies(snap.Identity.Role, required) {
		return RedirectNotFound
	}
	return Render
}

// OwnDashboard returns the dashboard path for an identity
func OwnDashboard(ident *identity.Identity) string {
	if ident == nil {
		return "/login"
	}
	return "/" + roles.Prefix(ident.Role) + "/dashboard"
}
