package teams

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ods-ops/ods/internal/platform/httpx"
	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

// Handler serves team read endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers team routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermViewAllTeams, rbac.PermViewOrgTeams, rbac.PermViewOwnTeam))
		r.Get("/", h.listTeams)
		r.Get("/{id}", h.getTeam)
		r.Get("/{id}/members", h.listMembers)
	})
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var orgID int64
	if raw := q.Get("org_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			httpx.ValidationProblem(w, map[string]string{"org_id": "must be a positive integer"})
			return
		}
		orgID = parsed
	}
	page, perPage := shared.PageParams(q)
	result, err := h.service.List(r.Context(), shared.PrincipalFromContext(r.Context()), orgID, page, perPage)
	if err != nil {
		h.fail(w, "list teams", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := teamID(w, r)
	if !ok {
		return
	}
	team, err := h.service.Get(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get team", err)
		return
	}
	httpx.JSON(w, http.StatusOK, team)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := teamID(w, r)
	if !ok {
		return
	}
	members, err := h.service.Members(r.Context(), shared.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "list team members", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": members})
}

func teamID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.ValidationProblem(w, map[string]string{"id": "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, httpx.ErrForbidden) || errors.Is(err, httpx.ErrNotFound) {
		h.logger.Debug(op, slog.Any("error", err))
	} else {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
