package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ods-ops/ods/internal/rbac"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *User {
	return &User{ID: 11, UserName: "dina", Role: rbac.RoleAdmin, OrgID: 3, IsActive: true, TokenVersion: 2}
}

func TestTokensIssueAndParse(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)

	pair, err := tokens.Issue(testUser())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := tokens.Parse(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.Equal(t, rbac.RoleAdmin, claims.Role)
	assert.Equal(t, int64(3), claims.OrgID)
	assert.Equal(t, 2, claims.Version)
	assert.NotEmpty(t, claims.ID)

	_, err = tokens.Parse(pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tokens.Parse(pair.RefreshToken, TokenTypeRefresh)
	assert.NoError(t, err)
}

func TestTokensRejectExpired(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Minute, time.Hour)
	require.NoError(t, err)
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	pair, err := tokens.Issue(testUser())
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Parse(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tokens.Parse(pair.RefreshToken, TokenTypeRefresh)
	assert.NoError(t, err)
}

func TestTokensRejectForeignSignatures(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	other, err := NewTokens(strings.Repeat("x", 32), time.Hour, 24*time.Hour)
	require.NoError(t, err)

	pair, err := other.Issue(testUser())
	require.NoError(t, err)
	_, err = tokens.Parse(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "11", "typ": "access"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(none, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("  ", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokensValidatesInput(t *testing.T) {
	_, err := NewTokens(" ", time.Hour, time.Hour)
	assert.Error(t, err)
	_, err = NewTokens(testSecret, 0, time.Hour)
	assert.Error(t, err)

	tokens, err := NewTokens(testSecret, time.Hour, time.Hour)
	require.NoError(t, err)
	_, err = tokens.Issue(&User{})
	assert.Error(t, err)
}
