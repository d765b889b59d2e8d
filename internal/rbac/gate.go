package rbac

import "context"

// Default redirect targets used when a Gate leaves them empty.
const (
	DefaultLoginPath        = "/login"
	DefaultUnauthorizedPath = "/unauthorized"
)

// Outcome is the kind of access decision.
type Outcome string

const (
	OutcomeAllow                Outcome = "allow"
	OutcomeRedirectLogin        Outcome = "redirect_login"
	OutcomeRedirectUnauthorized Outcome = "redirect_unauthorized"
)

// Decision is a freshly computed access decision. Redirect is empty when
// Outcome is OutcomeAllow.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Redirect string  `json:"redirect,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Allowed reports whether the decision lets the visitor through.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// RouteGuard declares what a protected route requires. Empty fields impose
// no requirement.
type RouteGuard struct {
	RequiredRoles       []Role       `json:"required_roles,omitempty" yaml:"roles"`
	RequiredPermissions []Permission `json:"required_permissions,omitempty" yaml:"permissions"`
}

// ElementGuard declares what reveals an in-page element: Permission or any
// one of Permissions. When both are set they form a single disjunction.
type ElementGuard struct {
	Permission  Permission   `json:"permission,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Visible reports whether the guarded element is shown to p. A guard with no
// permissions shows nothing.
func (g ElementGuard) Visible(p *Principal) bool {
	if g.Permission != "" && HasPermission(p, g.Permission) {
		return true
	}
	return len(g.Permissions) > 0 && HasAnyPermission(p, g.Permissions...)
}

// Render returns children when the element is visible to p and fallback
// otherwise.
func Render[T any](g ElementGuard, p *Principal, children, fallback T) T {
	if g.Visible(p) {
		return children
	}
	return fallback
}

// SessionAccessor yields the current principal of a request, if any.
type SessionAccessor interface {
	CurrentPrincipal(ctx context.Context) (*Principal, bool)
}

// Gate turns authentication state and route requirements into a decision.
type Gate struct {
	LoginPath        string
	UnauthorizedPath string
}

// NewGate builds a Gate, substituting defaults for empty paths.
func NewGate(loginPath, unauthorizedPath string) Gate {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if unauthorizedPath == "" {
		unauthorizedPath = DefaultUnauthorizedPath
	}
	return Gate{LoginPath: loginPath, UnauthorizedPath: unauthorizedPath}
}

// Route evaluates a route guard. The visitor must be authenticated, hold one
// of the required roles and hold all of the required permissions.
func (g Gate) Route(authenticated bool, p *Principal, guard RouteGuard) Decision {
	if !authenticated || p == nil {
		return Decision{Outcome: OutcomeRedirectLogin, Redirect: g.loginPath(), Reason: "authentication required"}
	}
	if len(guard.RequiredRoles) > 0 && !HasAnyRole(p, guard.RequiredRoles...) {
		return Decision{Outcome: OutcomeRedirectUnauthorized, Redirect: g.unauthorizedPath(), Reason: "role not permitted"}
	}
	if len(guard.RequiredPermissions) > 0 && !HasAllPermissions(p, guard.RequiredPermissions...) {
		return Decision{Outcome: OutcomeRedirectUnauthorized, Redirect: g.unauthorizedPath(), Reason: "missing permission"}
	}
	return Decision{Outcome: OutcomeAllow}
}

// RouteFor evaluates guard against the principal held by accessor.
func (g Gate) RouteFor(ctx context.Context, accessor SessionAccessor, guard RouteGuard) Decision {
	var (
		p  *Principal
		ok bool
	)
	if accessor != nil {
		p, ok = accessor.CurrentPrincipal(ctx)
	}
	return g.Route(ok, p, guard)
}

func (g Gate) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

func (g Gate) unauthorizedPath() string {
	if g.UnauthorizedPath == "" {
		return DefaultUnauthorizedPath
	}
	return g.UnauthorizedPath
}
