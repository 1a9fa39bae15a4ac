package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTokenKey = "crm:session:token"

// TokenStore is a ports.TokenStore over a single Redis string key.
type TokenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewTokenStore wraps client. An empty key uses "crm:session:token"; a zero
// ttl keeps the token until it is cleared.
func NewTokenStore(client *redis.Client, key string, ttl time.Duration) *TokenStore {
	if key == "" {
		key = defaultTokenKey
	}
	return &TokenStore{client: client, key: key, ttl: ttl}
}

func (s *TokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token load: %w", err)
	}
	return token, nil
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("token save: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *TokenStore) Close() error {
	return s.client.Close()
}

func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("token clear: %w", err)
	}
	return nil
}
