// Package redis keeps checkout state that must outlive a single process in
// Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/kart-checkout/internal/checkout"
)

var _ checkout.SuspendStore = (*SuspensionStore)(nil)

// SuspensionStore keeps redirected sessions under their order id with a TTL.
type SuspensionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSuspensionStore returns a SuspensionStore that expires entries after ttl.
func NewSuspensionStore(client redis.UniversalClient, ttl time.Duration) *SuspensionStore {
	return &SuspensionStore{client: client, ttl: ttl}
}

func (s *SuspensionStore) Save(ctx context.Context, session checkout.Session) error {
	data, err := checkout.MarshalSession(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, suspensionKey(session.OrderID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set suspension %q: %w", session.OrderID, err)
	}
	return nil
}

func (s *SuspensionStore) Load(ctx context.Context, orderID string) (*checkout.Session, error) {
	data, err := s.client.Get(ctx, suspensionKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get suspension %q: %w", orderID, err)
	}
	return checkout.UnmarshalSession(data)
}

func (s *SuspensionStore) Delete(ctx context.Context, orderID string) error {
	if err := s.client.Del(ctx, suspensionKey(orderID)).Err(); err != nil {
		return fmt.Errorf("redis delete suspension %q: %w", orderID, err)
	}
	return nil
}

func suspensionKey(orderID string) string {
	return "checkout:suspended:" + orderID
}
