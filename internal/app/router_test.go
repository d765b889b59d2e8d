package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ods-ops/ods/internal/auth"
	"github.com/ods-ops/ods/internal/observability"
	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
	"github.com/ods-ops/ods/internal/users"
)

type accountRepo struct {
	users []*auth.User
}

func (r *accountRepo) FindByUserName(_ context.Context, name string) (*auth.User, error) {
	for _, u := range r.users {
		if u.UserName == name {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *accountRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *accountRepo) TouchLastLogin(context.Context, int64, time.Time) error { return nil }

func (r *accountRepo) BumpTokenVersion(ctx context.Context, id int64) error {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.TokenVersion++
	return nil
}

type directory struct {
	accounts *accountRepo
}

func (d directory) List(_ context.Context, f users.ListFilter) ([]users.User, int, error) {
	var out []users.User
	for _, u := range d.accounts.users {
		if f.OrgID == 0 || u.OrgID == f.OrgID {
			out = append(out, users.User{ID: u.ID, UserName: u.UserName, Role: u.Role, OrgID: u.OrgID, IsActive: u.IsActive})
		}
	}
	return out, len(out), nil
}

func (d directory) Get(ctx context.Context, id int64) (*users.User, error) {
	u, err := d.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &users.User{ID: u.ID, UserName: u.UserName, Role: u.Role, OrgID: u.OrgID, IsActive: u.IsActive}, nil
}

func (d directory) Create(context.Context, users.NewUser) (*users.User, error) {
	return nil, shared.ErrNotFound
}

func (d directory) UpdateRole(context.Context, int64, rbac.Role) (*users.User, error) {
	return nil, shared.ErrNotFound
}

type server struct {
	handler http.Handler
	metrics *observability.Metrics
}

func newServer(t *testing.T) server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	accounts := &accountRepo{users: []*auth.User{
		{ID: 1, UserName: "admin", PasswordHash: string(hash), Role: rbac.RoleAdmin, OrgID: 1, IsActive: true},
		{ID: 2, UserName: "staff", PasswordHash: string(hash), Role: rbac.RoleEmployee, OrgID: 1, IsActive: true},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: 1000, LoginMaxAttempts: 3, LoginWindow: time.Minute}
	tokens, err := auth.NewTokens(strings.Repeat("s", 32), time.Hour, 24*time.Hour)
	require.NoError(t, err)
	authService := auth.NewService(accounts, tokens, auth.NewTokenStore(client))
	sessions := shared.NewSessionManager(client, "ods_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf")
	metrics := observability.NewMetrics()
	guards, err := rbac.DefaultRouteGuards()
	require.NoError(t, err)
	mw := rbac.Middleware{Gate: rbac.NewGate(cfg.LoginPath, cfg.UnauthorizedPath), Sessions: shared.ContextAccessor{}, Observer: metrics}

	handler := NewRouter(RouterParams{
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Authenticator:  auth.Authenticator{Service: authService},
		AuthHandler:    auth.NewHandler(nil, authService, sessions, csrf, auth.WithLoginLimit(LoginRateLimit(cfg))),
		RBACHandler:    rbac.NewHandler(nil, guards, mw),
		UsersHandler:   users.NewHandler(nil, users.NewService(directory{accounts: accounts}, nil, nil), mw),
		Metrics:        metrics,
	})
	return server{handler: handler, metrics: metrics}
}

type request struct {
	method, target, body string
	cookies              []*http.Cookie
	headers              map[string]string
}

func (s server) do(r request) *httptest.ResponseRecorder {
	req := httptest.NewRequest(r.method, r.target, strings.NewReader(r.body))
	req.RemoteAddr = "203.0.113.7:5000"
	req.Header.Set("Content-Type", "application/json")
	for _, c := range r.cookies {
		req.AddCookie(c)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

type loginBody struct {
	Tokens    auth.TokenPair `json:"tokens"`
	CSRFToken string         `json:"csrf_token"`
}

func login(t *testing.T, s server, name string) (loginBody, []*http.Cookie) {
	t.Helper()
	rr := s.do(request{method: http.MethodPost, target: "/auth/login", body: `{"user_name":"` + name + `","password":"password1"}`})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body loginBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	return body, cookies
}

func TestHealthz(t *testing.T) {
	rr := newServer(t).do(request{method: http.MethodGet, target: "/healthz"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestCookieSessionFlow(t *testing.T) {
	s := newServer(t)
	body, cookies := login(t, s, "admin")

	rr := s.do(request{method: http.MethodGet, target: "/auth/me", cookies: cookies})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role_display_name":"Admin"`)

	rr = s.do(request{method: http.MethodGet, target: "/api/v1/users", cookies: cookies})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(request{method: http.MethodPost, target: "/auth/logout", cookies: cookies})
	assert.Equal(t, http.StatusForbidden, rr.Code, "cookie writes need a csrf token")

	rr = s.do(request{method: http.MethodPost, target: "/auth/logout", cookies: cookies, headers: map[string]string{shared.CSRFHeader: body.CSRFToken}})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(request{method: http.MethodGet, target: "/auth/me", cookies: cookies})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerRequestsSkipCSRF(t *testing.T) {
	s := newServer(t)
	body, _ := login(t, s, "staff")
	bearer := map[string]string{"Authorization": "Bearer " + body.Tokens.AccessToken}

	rr := s.do(request{method: http.MethodPost, target: "/api/v1/rbac/check", body: `{"route":{"required_roles":["admin","team_lead"]}}`, headers: bearer})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"outcome":"redirect_unauthorized"`)
	assert.Contains(t, rr.Body.String(), `"redirect":"/unauthorized"`)

	rr = s.do(request{method: http.MethodGet, target: "/api/v1/users", headers: bearer})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	metrics := httptest.NewRecorder()
	s.metrics.Handler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `ods_access_decisions_total{guard="any",outcome="redirect_unauthorized"} 1`)
}

func TestAnonymousRouteCheck(t *testing.T) {
	rr := newServer(t).do(request{method: http.MethodGet, target: "/api/v1/rbac/routes?path=/dashboard"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"redirect":"/login"`)

	rr = newServer(t).do(request{method: http.MethodGet, target: "/console/dashboard"})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestLoginRateLimit(t *testing.T) {
	s := newServer(t)
	var last int
	for i := 0; i < 4; i++ {
		last = s.do(request{method: http.MethodPost, target: "/auth/login", body: `{"user_name":"admin","password":"wrong-password"}`}).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestUnknownRouteIsProblem(t *testing.T) {
	rr := newServer(t).do(request{method: http.MethodGet, target: "/nope"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/problem+json")
}
