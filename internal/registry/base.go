package registry

import (
	"maps"
	"sync"
)

// BaseRegistry provides common functionality for simple key-value registries
type BaseRegistry[K comparable, V any] struct {
	data map[K]V
	mu   sync.RWMutex
}

// NewBaseRegistry creates a new base registry
func NewBaseRegistry[K comparable, V any]() *BaseRegistry[K, V] {
	return &BaseRegistry[K, V]{
		data: make(map[K]V),
	}
}

// Add adds or replaces an item in the registry
func (r *BaseRegistry[K, V]) Add(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
}

// Get retrieves an item from the registry
func (r *BaseRegistry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, exists := r.data[key]
	return value, exists
}

// Update replaces the value under key with fn's result while holding the
// write lock. fn receives the current value and whether it existed; returning
// keep=false leaves the registry untouched.
func (r *BaseRegistry[K, V]) Update(key K, fn func(old V, exists bool) (V, bool)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, exists := r.data[key]
	value, keep := fn(old, exists)
	if keep {
		r.data[key] = value
	}
	return keep
}

// Remove deletes an item, reporting whether it was present
func (r *BaseRegistry[K, V]) Remove(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.data[key]
	delete(r.data, key)
	return exists
}

// GetAll returns all items (copy to prevent external modification)
func (r *BaseRegistry[K, V]) GetAll() map[K]V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[K]V, len(r.data))
	maps.Copy(result, r.data)
	return result
}

// Count returns the number of items
func (r *BaseRegistry[K, V]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
