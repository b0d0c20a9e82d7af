// Package handle issues opaque integer handles for objects that cross the
// bridge boundary.
package handle

import (
	"sync"
	"sync/atomic"

	"github.com/hugr-lab/planbridge/bridgeerr"
)

// Handle identifies a live object. Zero is never issued.
type Handle = uint64

// next is shared by every registry so a handle is unique across kinds.
var next atomic.Uint64

// Registry maps handles to values of one kind. It is safe for concurrent use.
type Registry[T any] struct {
	kind  string
	mu    sync.RWMutex
	items map[Handle]T
}

// NewRegistry returns an empty registry. kind names the stored objects in
// error messages, e.g. "plan".
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, items: make(map[Handle]T)}
}

// Kind returns the registry's object kind.
func (r *Registry[T]) Kind() string {
	return r.kind
}

// Put stores v under a fresh handle.
func (r *Registry[T]) Put(v T) Handle {
	h := next.Add(1)
	r.mu.Lock()
	r.items[h] = v
	r.mu.Unlock()
	return h
}

// Get returns the value behind h.
func (r *Registry[T]) Get(h Handle) (T, error) {
	r.mu.RLock()
	v, ok := r.items[h]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, r.invalid(h)
	}
	return v, nil
}

// Remove deletes h and returns its value. Removing handle 0 is a no-op;
// removing an unknown or already removed handle fails.
func (r *Registry[T]) Remove(h Handle) (T, bool, error) {
	var zero T
	if h == 0 {
		return zero, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[h]
	if !ok {
		return zero, false, r.invalid(h)
	}
	delete(r.items, h)
	return v, true, nil
}

// Len returns the number of live handles.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Drain removes every handle and returns the values.
func (r *Registry[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.items))
	for h, v := range r.items {
		out = append(out, v)
		delete(r.items, h)
	}
	return out
}

func (r *Registry[T]) invalid(h Handle) error {
	if h == 0 {
		return bridgeerr.InvalidArgumentf("%s handle is null", r.kind)
	}
	return bridgeerr.InvalidArgumentf("invalid %s handle: %d", r.kind, h)
}
