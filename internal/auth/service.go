package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ods-ops/ods/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *Tokens
	revoked RevocationStore
	now     func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *Tokens, revoked RevocationStore) *Service {
	return &Service{repo: repo, tokens: tokens, revoked: revoked, now: time.Now}
}

// Authenticate validates user name/password credentials.
func (s *Service) Authenticate(ctx context.Context, userName, password string) (*User, error) {
	user, err := s.repo.FindByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a token pair.
func (s *Service) Login(ctx context.Context, userName, password string) (*User, TokenPair, error) {
	user, err := s.Authenticate(ctx, userName, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// RecordLogin stamps the user's last login time.
func (s *Service) RecordLogin(ctx context.Context, id int64) error {
	return s.repo.TouchLastLogin(ctx, id, s.now())
}

// Refresh exchanges a refresh token for a new pair. Each refresh token is
// accepted once.
func (s *Service) Refresh(ctx context.Context, raw string) (*User, TokenPair, error) {
	claims, err := s.tokens.Parse(raw, TokenTypeRefresh)
	if err != nil {
		return nil, TokenPair{}, err
	}
	first, err := s.revoked.Consume(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !first {
		// A replayed refresh token means the pair leaked: every token of
		// the user is revoked, the legitimate holder included.
		if err := s.revokeAll(ctx, claims); err != nil {
			return nil, TokenPair{}, err
		}
		return nil, TokenPair{}, ErrInvalidToken
	}
	user, err := s.userForClaims(ctx, claims)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Logout revokes the access token. Tokens that no longer parse need no
// revocation.
func (s *Service) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.Parse(raw, TokenTypeAccess)
	if err != nil {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// ResolveAccessToken returns the user behind a bearer token.
func (s *Service) ResolveAccessToken(ctx context.Context, raw string) (*User, error) {
	claims, err := s.tokens.Parse(raw, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return s.userForClaims(ctx, claims)
}

// ResolveUser returns the active user bound to a session.
func (s *Service) ResolveUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInactiveUser
	}
	return user, nil
}

func (s *Service) revokeAll(ctx context.Context, claims *Claims) error {
	id, err := claims.UserID()
	if err != nil {
		return err
	}
	if err := s.repo.BumpTokenVersion(ctx, id); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("revoke tokens of user %d: %w", id, err)
	}
	return nil
}

// userForClaims reloads the user so that role changes, deactivation and
// password resets take effect before the token expires.
func (s *Service) userForClaims(ctx context.Context, claims *Claims) (*User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.ResolveUser(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.TokenVersion != claims.Version {
		return nil, ErrInvalidToken
	}
	return user, nil
}
