// Package notify fans store snapshots out to subscribers.
package notify

import "sync"

type subscription[T any] struct {
	mu     sync.Mutex
	active bool
	fn     func(T)
}

// Hub delivers values to subscribers in publish order.
//
// Once the unsubscribe func returned by Subscribe has returned, the callback is never
// invoked again. Callbacks must not unsubscribe themselves synchronously.
type Hub[T any] struct {
	clone func(T) T

	mu     sync.Mutex
	subs   map[int]*subscription[T]
	next   int
	closed bool
}

// NewHub builds a Hub. clone, when non-nil, gives each subscriber its own copy.
func NewHub[T any](clone func(T) T) *Hub[T] {
	return &Hub[T]{clone: clone, subs: map[int]*subscription[T]{}}
}

// Subscribe registers fn and returns its unsubscribe func. On a closed hub fn is
// never called and the returned func is a no-op.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	id := h.next
	h.next++
	sub := &subscription[T]{active: true, fn: fn}
	h.subs[id] = sub
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.mu.Lock()
		sub.active = false
		sub.mu.Unlock()
	}
}

// Publish delivers v to every live subscriber. Callers serialize Publish calls.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	subs := make([]*subscription[T], 0, len(h.subs))
	for id := 0; id < h.next; id++ {
		if s, ok := h.subs[id]; ok {
			subs = append(subs, s)
		}
	}
	h.mu.Unlock()

	for _, s := range subs {
		val := v
		if h.clone != nil {
			val = h.clone(v)
		}
		s.mu.Lock()
		if s.active {
			s.fn(val)
		}
		s.mu.Unlock()
	}
}

// Len returns the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber; later Subscribe calls are no-ops.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = map[int]*subscription[T]{}
	h.closed = true
	h.mu.Unlock()
	for _, s := range subs {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}
}
