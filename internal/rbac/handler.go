package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ods-ops/ods/internal/platform/httpx"
)

// Handler exposes the policy table and gate evaluation to the console.
type Handler struct {
	logger *slog.Logger
	guards *RouteGuards
	rbac   Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, guards *RouteGuards, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, guards: guards, rbac: rbac}
}

// MountRoutes registers RBAC routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Get("/routes", h.routes)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/roles", h.listRoles)
	})
}

// MountConsole registers the navigation check for console pages. A request
// for /<page> answers 204 when the page's guard admits the caller and
// redirects to the login or unauthorized page otherwise.
func (h *Handler) MountConsole(r chi.Router) {
	r.Get("/*", h.enter)
}

func (h *Handler) enter(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	guard, ok := h.guards.Lookup(path)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no guard declared for "+path)
		return
	}
	h.rbac.Protect(guard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(w, r)
}

type roleEntry struct {
	RoleInfo
	Permissions []Permission `json:"permissions"`
}

type catalogGroup struct {
	Domain      string       `json:"domain"`
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := make([]roleEntry, 0, len(Roles()))
	for _, role := range Roles() {
		roles = append(roles, roleEntry{
			RoleInfo:    RoleInfo{Role: role, DisplayName: DisplayName(role)},
			Permissions: PermissionsFor(role),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"roles": roles,
		"catalog": []catalogGroup{
			{Domain: "organization", Permissions: OrganizationScopes()},
			{Domain: "user", Permissions: UserScopes()},
			{Domain: "team", Permissions: TeamScopes()},
			{Domain: "order", Permissions: OrderScopes()},
			{Domain: "reports", Permissions: ReportScopes()},
			{Domain: "billing", Permissions: BillingScopes()},
		},
	})
}

type checkRequest struct {
	Route   *rawRouteGuard   `json:"route"`
	Element *rawElementGuard `json:"element"`
}

type rawRouteGuard struct {
	RequiredRoles       []string `json:"required_roles"`
	RequiredPermissions []string `json:"required_permissions"`
}

type rawElementGuard struct {
	Permission  string   `json:"permission"`
	Permissions []string `json:"permissions"`
}

type checkResponse struct {
	Route   *Decision `json:"route,omitempty"`
	Visible *bool     `json:"visible,omitempty"`
}

// check evaluates a route guard and/or an element guard for the caller.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.Route == nil && req.Element == nil {
		httpx.ValidationProblem(w, map[string]string{"general": "route or element guard required"})
		return
	}
	fields := map[string]string{}
	var resp checkResponse
	p, authenticated := h.rbac.current(r)

	if req.Route != nil {
		guard, err := req.Route.parse()
		if err != nil {
			fields["route"] = err.Error()
		} else {
			decision := h.rbac.Gate.Route(authenticated, p, guard)
			h.rbac.observe("route", decision.Outcome)
			resp.Route = &decision
		}
	}
	if req.Element != nil {
		guard, err := req.Element.parse()
		if err != nil {
			fields["element"] = err.Error()
		} else {
			visible := guard.Visible(p)
			resp.Visible = &visible
		}
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type routeDecision struct {
	Path     string     `json:"path"`
	Guard    RouteGuard `json:"guard"`
	Decision Decision   `json:"decision"`
}

// routes evaluates the declared guard of one console route, or of every
// declared route when no path is given.
func (h *Handler) routes(w http.ResponseWriter, r *http.Request) {
	p, authenticated := h.rbac.current(r)
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path != "" {
		guard, ok := h.guards.Lookup(path)
		if !ok {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no guard declared for "+path)
			return
		}
		decision := h.rbac.Gate.Route(authenticated, p, guard)
		h.rbac.observe("route", decision.Outcome)
		httpx.JSON(w, http.StatusOK, routeDecision{Path: path, Guard: guard, Decision: decision})
		return
	}
	paths := h.guards.Paths()
	out := make([]routeDecision, 0, len(paths))
	for _, declared := range paths {
		guard, _ := h.guards.Lookup(declared)
		out = append(out, routeDecision{Path: declared, Guard: guard, Decision: h.rbac.Gate.Route(authenticated, p, guard)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"routes": out})
}

func (g *rawRouteGuard) parse() (RouteGuard, error) {
	var guard RouteGuard
	for _, raw := range g.RequiredRoles {
		role, err := ParseRole(raw)
		if err != nil {
			return RouteGuard{}, err
		}
		guard.RequiredRoles = append(guard.RequiredRoles, role)
	}
	for _, raw := range g.RequiredPermissions {
		perm, err := ParsePermission(raw)
		if err != nil {
			return RouteGuard{}, err
		}
		guard.RequiredPermissions = append(guard.RequiredPermissions, perm)
	}
	return guard, nil
}

func (g *rawElementGuard) parse() (ElementGuard, error) {
	var guard ElementGuard
	if strings.TrimSpace(g.Permission) != "" {
		perm, err := ParsePermission(g.Permission)
		if err != nil {
			return ElementGuard{}, err
		}
		guard.Permission = perm
	}
	for _, raw := range g.Permissions {
		perm, err := ParsePermission(raw)
		if err != nil {
			return ElementGuard{}, err
		}
		guard.Permissions = append(guard.Permissions, perm)
	}
	return guard, nil
}
