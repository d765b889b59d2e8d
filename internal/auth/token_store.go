package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore tracks token ids that may no longer be used.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	Consume(ctx context.Context, jti string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenStore keeps revoked token ids in Redis until the token would have
// expired anyway.
type TokenStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewTokenStore constructs a Redis backed revocation list.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client, now: time.Now}
}

// Revoke blacklists jti until the given expiry.
func (s *TokenStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// Consume revokes jti and reports whether this call was the first to do so.
func (s *TokenStore) Consume(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return false, nil
	}
	ok, err := s.client.SetNX(ctx, revokedKey(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("auth: consume token: %w", err)
	}
	return ok, nil
}

// IsRevoked reports whether jti has been blacklisted.
func (s *TokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check revoked token: %w", err)
	}
	return n > 0, nil
}

func revokedKey(jti string) string {
	return "token:revoked:" + jti
}

var _ RevocationStore = (*TokenStore)(nil)
