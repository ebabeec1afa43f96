package state

import (
	"encoding/json"
	"sync"
	"time"
)

// Change describes one committed mutation of a session container.
// Seq increases per container, so subscribers can discard stale events
// when two publishes race.
type Change struct {
	Namespace string          `json:"namespace"`
	Seq       uint64          `json:"seq"`
	State     json.RawMessage `json:"state"`
	At        time.Time       `json:"at"`
}

// Hub fans change events out to the subscribers of one session.
// Subscribers run synchronously on the publishing goroutine and must not block.
type Hub struct {
	mu   sync.RWMutex
	next int
	subs []subscription
}

type subscription struct {
	id int
	fn func(Change)
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (h *Hub) Subscribe(fn func(Change)) (unsubscribe func()) {
	h.mu.Lock()
	h.next++
	id := h.next
	h.subs = append(h.subs, subscription{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s.id == id {
					h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers c to every subscriber in subscription order.
func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()
	for _, s := range subs {
		s.fn(c)
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
