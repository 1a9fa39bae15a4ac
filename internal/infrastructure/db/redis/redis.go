// Package redis keeps the client's session token in Redis so several
// processes on one host share a login.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Config selects the Redis database and the key the token lives under.
type Config struct {
	Addr string
	DB   int
	// Key defaults to "crm:session:token".
	Key string
	// TTL bounds how long a saved token survives; zero keeps it until cleared.
	TTL time.Duration
}

// Open dials Redis, checks it answers a ping and returns a token store that
// owns the connection.
func Open(ctx context.Context, cfg Config) (*TokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}

	return NewTokenStore(client, cfg.Key, cfg.TTL), nil
}
