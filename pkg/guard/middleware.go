package guard

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/httputil"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/session"
)

// Middleware guards mux routes carrying a {rolePrefix} path variable
type Middleware struct {
	// Resolve returns the session snapshot for a request. A request with no
	// live session resolves to an unauthenticated snapshot.
	Resolve func(r *http.Request) session.Snapshot

	// Required returns the role set a request's target demands; nil means
	// any authenticated admin
	Required func(r *http.Request) []roles.Role

	Logger *observability.Logger
}

// Handler applies the guard before next
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := mux.Vars(r)["rolePrefix"]
		snap := m.Resolve(r)

		var required []roles.Role
		if m.Required != nil {
			required = m.Required(r)
		}

		decision := Evaluate(snap, prefix, required)

		if m.Logger != nil && decision != Render {
			m.Logger.WithFields(map[string]interface{}{
				"path":     r.URL.Path,
				"prefix":   prefix,
				"decision": decision.String(),
			}).Debug("navigation guarded")
		}

		switch decision {
		case RenderLoading:
			// Bootstrap is still in flight; ask the client to retry rather
			// than bouncing it to login
			w.Header().Set("Retry-After", "1")
			httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "loading"})
		case RedirectLogin:
			http.Redirect(w, r, "/login", http.StatusFound)
		case RedirectNotFound:
			http.Redirect(w, r, "/404", http.StatusFound)
		case RedirectOwnDashboard:
			http.Redirect(w, r, OwnDashboard(snap.Identity), http.StatusFound)
		case Render:
			next.ServeHTTP(w, r)
		}
	})
}
