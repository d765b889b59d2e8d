package rbac

import (
	"log/slog"
	"net/http"

	"github.com/ods-ops/ods/internal/platform/httpx"
)

// DecisionObserver receives every access decision taken by the middleware.
type DecisionObserver interface {
	ObserveDecision(guard string, outcome Outcome)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Gate     Gate
	Sessions SessionAccessor
	Logger   *slog.Logger
	Observer DecisionObserver
}

// RequireAuthenticated rejects anonymous requests with 401.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return m.require("authenticated", func(*Principal) bool { return true })
}

// RequireAny ensures the current user has at least one of the required
// permissions. An empty list imposes nothing beyond authentication.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return m.require("any", func(p *Principal) bool {
		return len(perms) == 0 || HasAnyPermission(p, perms...)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return m.require("all", func(p *Principal) bool {
		return HasAllPermissions(p, perms...)
	})
}

// RequireRoles ensures the current user holds one of roles.
func (m Middleware) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return m.require("roles", func(p *Principal) bool {
		return len(roles) == 0 || HasAnyRole(p, roles...)
	})
}

// Protect applies route-guard semantics: anonymous visitors are redirected
// to the login page and unauthorized ones to the unauthorized page.
func (m Middleware) Protect(guard RouteGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := m.Gate.RouteFor(r.Context(), m.Sessions, guard)
			m.observe("route", decision.Outcome)
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("rbac redirect", slog.String("path", r.URL.Path), slog.String("outcome", string(decision.Outcome)))
			}
			http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
		})
	}
}

func (m Middleware) require(name string, allowed func(*Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.current(r)
			if !ok {
				m.observe(name, OutcomeRedirectLogin)
				httpx.Unauthorized(w, "authentication required")
				return
			}
			if !allowed(p) {
				m.observe(name, OutcomeRedirectUnauthorized)
				if m.Logger != nil {
					m.Logger.Info("rbac denied",
						slog.String("guard", name),
						slog.Int64("user_id", p.UserID),
						slog.String("role", string(p.Role)),
						slog.String("path", r.URL.Path))
				}
				httpx.Forbidden(w, "insufficient permissions")
				return
			}
			m.observe(name, OutcomeAllow)
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) current(r *http.Request) (*Principal, bool) {
	if m.Sessions == nil {
		return nil, false
	}
	return m.Sessions.CurrentPrincipal(r.Context())
}

func (m Middleware) observe(guard string, outcome Outcome) {
	if m.Observer != nil {
		m.Observer.ObserveDecision(guard, outcome)
	}
}
