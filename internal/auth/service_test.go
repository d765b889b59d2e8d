package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

type memoryRepo struct {
	users   map[int64]*User
	touched map[int64]time.Time
}

func newMemoryRepo(users ...*User) *memoryRepo {
	repo := &memoryRepo{users: map[int64]*User{}, touched: map[int64]time.Time{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memoryRepo) FindByUserName(_ context.Context, userName string) (*User, error) {
	for _, u := range r.users {
		if u.UserName == userName {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) FindByID(_ context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.touched[id] = at
	return nil
}

func (r *memoryRepo) BumpTokenVersion(_ context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T, users ...*User) (*Service, *memoryRepo) {
	t.Helper()
	tokens, err := NewTokens(testSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	store, _ := newTokenStore(t)
	repo := newMemoryRepo(users...)
	return NewService(repo, tokens, store), repo
}

func TestServiceLogin(t *testing.T) {
	user := &User{ID: 1, UserName: "rina", PasswordHash: hashed(t, "s3cret-pass"), Role: rbac.RoleTeamLead, OrgID: 4, IsActive: true}
	svc, repo := newTestService(t, user)
	ctx := context.Background()

	got, pair, err := svc.Login(ctx, " rina ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.NotEmpty(t, pair.AccessToken)

	require.NoError(t, svc.RecordLogin(ctx, got.ID))
	assert.Contains(t, repo.touched, int64(1))

	_, _, err = svc.Login(ctx, "rina", "wrong-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestServiceLoginRejectsInactiveUser(t *testing.T) {
	user := &User{ID: 2, UserName: "bayu", PasswordHash: hashed(t, "s3cret-pass"), Role: rbac.RoleEmployee, OrgID: 4}
	svc, _ := newTestService(t, user)

	_, _, err := svc.Login(context.Background(), "bayu", "s3cret-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestServiceResolveAccessToken(t *testing.T) {
	user := &User{ID: 3, UserName: "sari", Role: rbac.RoleAdmin, OrgID: 4, IsActive: true, TokenVersion: 1}
	svc, repo := newTestService(t, user)
	ctx := context.Background()

	pair, err := svc.tokens.Issue(user)
	require.NoError(t, err)

	resolved, err := svc.ResolveAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, resolved.Role)

	repo.users[3].Role = rbac.RoleEmployee
	resolved, err = svc.ResolveAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEmployee, resolved.Role, "role is reloaded on every request")

	repo.users[3].TokenVersion = 2
	_, err = svc.ResolveAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	repo.users[3].TokenVersion = 1
	repo.users[3].IsActive = false
	_, err = svc.ResolveAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrInactiveUser)

	delete(repo.users, 3)
	_, err = svc.ResolveAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestServiceLogoutRevokesAccessToken(t *testing.T) {
	user := &User{ID: 5, UserName: "wati", Role: rbac.RoleEmployee, OrgID: 4, IsActive: true}
	svc, _ := newTestService(t, user)
	ctx := context.Background()

	pair, err := svc.tokens.Issue(user)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, pair.AccessToken))

	_, err = svc.ResolveAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestServiceRefreshRotatesOnce(t *testing.T) {
	user := &User{ID: 6, UserName: "tono", Role: rbac.RoleTeamLead, OrgID: 4, IsActive: true}
	svc, _ := newTestService(t, user)
	ctx := context.Background()

	pair, err := svc.tokens.Issue(user)
	require.NoError(t, err)

	_, rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestServiceRefreshReplayRevokesEveryToken(t *testing.T) {
	user := &User{ID: 7, UserName: "dewi", Role: rbac.RoleAdmin, OrgID: 4, IsActive: true}
	svc, repo := newTestService(t, user)
	ctx := context.Background()

	pair, err := svc.tokens.Issue(user)
	require.NoError(t, err)

	// Whoever rotates first holds a fresh pair until the old token resurfaces.
	_, first, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.ResolveAccessToken(ctx, first.AccessToken)
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 1, repo.users[7].TokenVersion)

	_, err = svc.ResolveAccessToken(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ResolveAccessToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
