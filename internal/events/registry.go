package events

import (
	"sync"

	"go.uber.org/atomic"
)

// Registry holds subscribed callbacks. Emit runs them on the caller's
// goroutine without holding the registry lock, so a callback may subscribe
// or cancel.
type Registry[T any] struct {
	mu     sync.RWMutex
	nextID atomic.Int64
	byID   map[int64]T
	order  []int64
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{byID: make(map[int64]T)}
}

// Subscribe adds fn and returns an idempotent cancel func.
func (r *Registry[T]) Subscribe(fn T) func() {
	id := r.nextID.Inc()
	r.mu.Lock()
	r.byID[id] = fn
	r.order = append(r.order, id)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.byID, id)
			for i, v := range r.order {
				if v == id {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit calls each subscriber in subscription order.
func (r *Registry[T]) Emit(call func(T)) {
	r.mu.RLock()
	snapshot := make([]T, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.byID[id])
	}
	r.mu.RUnlock()

	for _, fn := range snapshot {
		call(fn)
	}
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
