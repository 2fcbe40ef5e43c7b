package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps the single live refresh token per user. Renewal rotates it.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func refreshKey(userID string) string {
	return "refresh:" + userID
}

func (s *TokenStore) SaveRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// RefreshMatches reports whether token is the one currently stored for userID.
func (s *TokenStore) RefreshMatches(ctx context.Context, userID, token string) (bool, error) {
	stored, err := s.client.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read refresh token: %w", err)
	}
	return stored == token, nil
}

func (s *TokenStore) Revoke(ctx context.Context, userID string) error {
	return s.client.Del(ctx, refreshKey(userID)).Err()
}
