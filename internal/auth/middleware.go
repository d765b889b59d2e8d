package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ods-ops/ods/internal/platform/httpx"
	"github.com/ods-ops/ods/internal/shared"
)

// Authenticator resolves the principal of each request from a bearer token
// or the cookie session and stores it in the request context.
type Authenticator struct {
	Service *Service
	Logger  *slog.Logger
}

// Middleware installs the principal, leaving anonymous requests untouched.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if raw, ok := BearerToken(r); ok {
			user, err := a.Service.ResolveAccessToken(ctx, raw)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(ctx, user.Principal())))
			case errors.Is(err, shared.ErrInactiveUser):
				httpx.Forbidden(w, "inactive user")
			case errors.Is(err, ErrInvalidToken):
				httpx.Unauthorized(w, "could not validate credentials")
			default:
				a.logError("resolve bearer token", err)
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			}
			return
		}

		sess := shared.SessionFromContext(ctx)
		if sess == nil || sess.User() == 0 {
			next.ServeHTTP(w, r)
			return
		}
		user, err := a.Service.ResolveUser(ctx, sess.User())
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrInactiveUser) {
				sess.SetUser(0)
				next.ServeHTTP(w, r)
				return
			}
			a.logError("resolve session user", err)
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(ctx, user.Principal())))
	})
}

func (a Authenticator) logError(msg string, err error) {
	if a.Logger != nil {
		a.Logger.Error(msg, slog.Any("error", err))
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
