package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmitGuard remembers submit idempotency keys so a retried request from
// another replica is not executed twice.
type SubmitGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSubmitGuard returns a SubmitGuard that forgets keys after ttl.
func NewSubmitGuard(client redis.UniversalClient, ttl time.Duration) *SubmitGuard {
	return &SubmitGuard{client: client, ttl: ttl}
}

// Claim reports whether key was seen for the first time.
func (g *SubmitGuard) Claim(ctx context.Context, sessionID, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, fmt.Sprintf("checkout:submit:%s:%s", sessionID, key), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim submit key: %w", err)
	}
	return ok, nil
}

// Release forgets key so the buyer can retry after a recoverable error.
func (g *SubmitGuard) Release(ctx context.Context, sessionID, key string) error {
	if err := g.client.Del(ctx, fmt.Sprintf("checkout:submit:%s:%s", sessionID, key)).Err(); err != nil {
		return fmt.Errorf("redis release submit key: %w", err)
	}
	return nil
}
