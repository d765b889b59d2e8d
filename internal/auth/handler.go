package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ods-ops/ods/internal/platform/httpx"
	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	audit          shared.AuditRecorder
	loginLimit     func(http.Handler) http.Handler
	validator      *validator.Validate
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithLoginLimit throttles login attempts with the given middleware.
func WithLoginLimit(mw func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) { h.loginLimit = mw }
}

// WithAudit records logins and logouts.
func WithAudit(rec shared.AuditRecorder) HandlerOption {
	return func(h *Handler) { h.audit = rec }
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      httpx.NewValidator(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimit != nil {
			r.Use(h.loginLimit)
		}
		r.Post("/login", h.handleLogin)
	})
	r.Post("/refresh", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	UserName string `json:"user_name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionResponse struct {
	Tokens    *TokenPair   `json:"tokens,omitempty"`
	Profile   rbac.Profile `json:"profile"`
	CSRFToken string       `json:"csrf_token,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return
	}

	user, pair, err := h.service.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Unauthorized(w, "invalid user name or password")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RecordLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("record login", slog.Any("error", err))
	}

	resp := sessionResponse{Tokens: &pair, Profile: rbac.Describe(user.Principal())}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
			h.logger.Warn("renew session", slog.Any("error", err))
		}
		sess.SetUser(user.ID)
		sess.Delete(shared.CSRFSessionKey)
		if token, err := h.csrfManager.EnsureToken(sess); err == nil {
			resp.CSRFToken = token
		}
	} else {
		h.logger.Error("session missing during login")
	}
	h.record(r, user, shared.AuditActionLogin)
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, httpx.FieldErrors(err))
		return
	}
	user, pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, sessionResponse{Tokens: &pair, Profile: rbac.Describe(user.Principal())})
	case errors.Is(err, ErrInvalidToken):
		httpx.Unauthorized(w, "refresh token rejected")
	case errors.Is(err, shared.ErrInactiveUser):
		httpx.Forbidden(w, "inactive user")
	default:
		h.logger.Error("refresh token", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if raw, ok := BearerToken(r); ok {
		if err := h.service.Logout(r.Context(), raw); err != nil {
			h.logger.Warn("revoke token", slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		h.record(r, &User{ID: p.UserID, OrgID: p.OrgID}, shared.AuditActionLogout)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.ContextAccessor{}.CurrentPrincipal(r.Context())
	if !ok {
		httpx.Unauthorized(w, "authentication required")
		return
	}
	resp := sessionResponse{Profile: rbac.Describe(p)}
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() == p.UserID {
		if token, err := h.csrfManager.EnsureToken(sess); err == nil {
			resp.CSRFToken = token
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) record(r *http.Request, user *User, action string) {
	if h.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  user.ID,
		OrgID:    user.OrgID,
		Action:   action,
		Entity:   "session",
		EntityID: strconv.FormatInt(user.ID, 10),
		Meta:     map[string]any{"ip": r.RemoteAddr, "user_agent": r.UserAgent()},
	}
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Warn("audit "+action, slog.Any("error", err))
	}
}
