// Package auth issues and verifies Redis-backed bearer tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/FIXCOse/fixco-platform/internal/shared"
)

// ErrTokenInvalid indicates an unknown or expired token.
var ErrTokenInvalid = errors.New("auth: token invalid or expired")

// TokenStore keeps issued tokens in Redis so revocation and expiry are
// shared across all instances.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

type tokenPayload struct {
	StaffID int64  `json:"staff_id"`
	Role    string `json:"role"`
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a new token for the identity.
func (ts *TokenStore) Issue(ctx context.Context, ident shared.StaffIdentity) (string, error) {
	token := uuid.NewString()
	data, err := json.Marshal(tokenPayload{StaffID: ident.ID, Role: ident.Role})
	if err != nil {
		return "", err
	}
	if err := ts.client.Set(ctx, ts.key(token), data, ts.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve returns the identity behind a token and refreshes its expiry.
func (ts *TokenStore) Resolve(ctx context.Context, token string) (shared.StaffIdentity, error) {
	if token == "" {
		return shared.StaffIdentity{}, ErrTokenInvalid
	}
	data, err := ts.client.Get(ctx, ts.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.StaffIdentity{}, ErrTokenInvalid
		}
		return shared.StaffIdentity{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return shared.StaffIdentity{}, ErrTokenInvalid
	}
	// Sliding expiry keeps active users logged in.
	_ = ts.client.Expire(ctx, ts.key(token), ts.ttl).Err()
	return shared.StaffIdentity{ID: payload.StaffID, Role: payload.Role}, nil
}

// Revoke deletes a token.
func (ts *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := ts.client.Del(ctx, ts.key(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// TTL exposes the configured token lifetime.
func (ts *TokenStore) TTL() time.Duration {
	return ts.ttl
}

func (ts *TokenStore) key(token string) string {
	return "auth:token:" + token
}
