// Package session tracks revoked access tokens in Valkey. A token is
// stateless until its holder logs out; from then until the token's own
// expiry its id is kept here and requests carrying it are refused.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces revocation keys in Valkey.
const keyPrefix = "revoked:"

// Revocation is the record stored for a logged-out token.
type Revocation struct {
	UserID    uuid.UUID `json:"user_id"`
	RevokedAt time.Time `json:"revoked_at"`
}

// Store manages token revocations in Valkey.
type Store struct {
	client *redis.Client
}

// NewStore creates a revocation store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Revoke marks the token id jti as logged out until expiresAt. Tokens
// that have already expired need no record.
func (s *Store) Revoke(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("session revoke: empty token id")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(Revocation{UserID: userID, RevokedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+jti, payload, ttl).Err(); err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been logged out.
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("session lookup: %w", err)
	}
	return n > 0, nil
}
