package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "session")
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("TOKEN_SECRET", strings.Repeat("k", 32))
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LoginWindow)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/unauthorized", cfg.UnauthorizedPath)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("RBAC_ROUTES_FILE", "/etc/ods/routes.yaml")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "/etc/ods/routes.yaml", cfg.RBACRoutesFile)
}

func TestLoadConfigRejectsWeakSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_SECRET", "short")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "token secret")

	setRequiredEnv(t)
	t.Setenv("REFRESH_TOKEN_TTL", "30m")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "refresh token ttl")
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("TOKEN_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
