package shared

import (
	"context"

	"github.com/ods-ops/ods/internal/rbac"
)

type (
	sessionContextKey   struct{}
	principalContextKey struct{}
)

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithPrincipal stores the authenticated principal in context.
func ContextWithPrincipal(ctx context.Context, p *rbac.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, or nil for an
// anonymous request.
func PrincipalFromContext(ctx context.Context) *rbac.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*rbac.Principal)
	return p
}

// ContextAccessor reads the principal placed in the request context by the
// authentication middleware.
type ContextAccessor struct{}

// CurrentPrincipal implements rbac.SessionAccessor.
func (ContextAccessor) CurrentPrincipal(ctx context.Context) (*rbac.Principal, bool) {
	p := PrincipalFromContext(ctx)
	if p == nil || !p.Active {
		return nil, false
	}
	return p, true
}

var _ rbac.SessionAccessor = ContextAccessor{}
