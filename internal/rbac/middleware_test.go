package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	decisions []string
}

func (r *recordingObserver) ObserveDecision(guard string, outcome Outcome) {
	r.decisions = append(r.decisions, guard+":"+string(outcome))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/all", nil))
	return rr
}

func TestRequireAnyStatusCodes(t *testing.T) {
	observer := &recordingObserver{}
	anonymous := Middleware{Gate: NewGate("", ""), Sessions: staticAccessor{}, Observer: observer}
	rr := serve(anonymous.RequireAny(PermViewAllOrders, PermViewOrgOrders))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	lead := Middleware{Sessions: staticAccessor{p: principal(RoleTeamLead, 1), ok: true}, Observer: observer}
	rr = serve(lead.RequireAny(PermViewAllOrders, PermViewOrgOrders))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/problem+json")

	admin := Middleware{Sessions: staticAccessor{p: principal(RoleAdmin, 1), ok: true}, Observer: observer}
	rr = serve(admin.RequireAny(PermViewAllOrders, PermViewOrgOrders))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	assert.Equal(t, []string{"any:redirect_login", "any:redirect_unauthorized", "any:allow"}, observer.decisions)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	lead := Middleware{Sessions: staticAccessor{p: principal(RoleTeamLead, 1), ok: true}}
	assert.Equal(t, http.StatusForbidden, serve(lead.RequireAll(PermViewTeamOrders, PermViewOrgOrders)).Code)
	assert.Equal(t, http.StatusNoContent, serve(lead.RequireAll(PermViewTeamOrders, PermAssignOrder)).Code)
	assert.Equal(t, http.StatusNoContent, serve(lead.RequireAll()).Code)
}

func TestRequireRoles(t *testing.T) {
	employee := Middleware{Sessions: staticAccessor{p: principal(RoleEmployee, 1), ok: true}}
	assert.Equal(t, http.StatusForbidden, serve(employee.RequireRoles(RoleAdmin, RoleTeamLead)).Code)
	assert.Equal(t, http.StatusNoContent, serve(employee.RequireRoles(RoleEmployee)).Code)
}

func TestRequireAuthenticatedWithoutAccessor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, serve(Middleware{}.RequireAuthenticated()).Code)
}

func TestProtectRedirects(t *testing.T) {
	guard := RouteGuard{RequiredRoles: []Role{RoleAdmin}}
	gate := NewGate("/login", "/unauthorized")

	rr := serve(Middleware{Gate: gate, Sessions: staticAccessor{}}.Protect(guard))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = serve(Middleware{Gate: gate, Sessions: staticAccessor{p: principal(RoleEmployee, 1), ok: true}}.Protect(guard))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/unauthorized", rr.Header().Get("Location"))

	rr = serve(Middleware{Gate: gate, Sessions: staticAccessor{p: principal(RoleAdmin, 1), ok: true}}.Protect(guard))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
