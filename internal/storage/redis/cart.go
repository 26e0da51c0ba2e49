// Package redis implements the session cart store on top of redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feastly/cloudkitchen/internal/domain/cart"
)

// Cart keys: cart:{session_id} -> JSON-encoded cart.
const keyCart = "cart:%s"

// TTLCart bounds how long an abandoned cart survives. Every write refreshes
// the TTL.
var TTLCart = 24 * time.Hour

// New creates a redis client for the given address.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

var _ cart.Store = (*CartStore)(nil)

// CartStore persists one JSON value per session key. Carts are ephemeral:
// expiry simply drops the key.
type CartStore struct {
	client *redis.Client
}

// NewCartStore creates a CartStore backed by the given client.
func NewCartStore(client *redis.Client) *CartStore {
	return &CartStore{client: client}
}

// Get loads the session's cart. A missing key returns nil, not an error.
func (s *CartStore) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", sessionID, err)
	}

	var c cart.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decoding cart %q: %w", sessionID, err)
	}
	return &c, nil
}

// Put stores the cart and refreshes its TTL.
func (s *CartStore) Put(ctx context.Context, c *cart.Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart %q: %w", c.SessionID, err)
	}
	if err := s.client.Set(ctx, s.key(c.SessionID), raw, TTLCart).Err(); err != nil {
		return fmt.Errorf("storing cart %q: %w", c.SessionID, err)
	}
	return nil
}

// Delete removes the session's cart. Deleting a missing key is a no-op.
func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("deleting cart %q: %w", sessionID, err)
	}
	return nil
}

func (s *CartStore) key(sessionID string) string {
	return fmt.Sprintf(keyCart, sessionID)
}
