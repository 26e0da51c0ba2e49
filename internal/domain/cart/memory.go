package cart

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store keyed by session id. Used in tests and
// single-instance deployments without redis.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

// Get returns a copy of the stored cart, or nil when the session has none.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	return &cp, nil
}

// Put stores a copy of the cart under its session id.
func (m *MemoryStore) Put(_ context.Context, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	m.carts[c.SessionID] = &cp
	return nil
}

// Delete removes the session's cart. Deleting a missing session is a no-op.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, sessionID)
	return nil
}
