package pos

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds the live cart of every open terminal session. The registry
// itself is guarded by a mutex; individual orders are only touched while the
// lock is held via With.
type Registry struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{orders: make(map[uuid.UUID]*Order)}
}

// Open starts a new session with an empty cart and returns its ID.
func (r *Registry) Open() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.orders[id] = NewOrder()
	return id
}

// With runs fn against the session's order under the registry lock.
// ok is false when the session is unknown.
func (r *Registry) With(id uuid.UUID, fn func(*Order) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	return true, fn(order)
}

// Close drops the session and its cart.
func (r *Registry) Close(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
}
