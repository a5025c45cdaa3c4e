// Package broadcast provides a fan-out hub for in-process subscribers.
package broadcast

import "sync"

// Hub fans published values out to subscriber channels.
// Publish never blocks; a subscriber whose buffer is full misses the value.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewHub returns an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a subscriber with the given buffer size. Values in initial are
// queued before any later Publish, up to the buffer size. The returned cancel
// closes the channel and is safe to call more than once.
func (h *Hub[T]) Subscribe(buffer int, initial ...T) (<-chan T, func()) {
	if buffer < len(initial) {
		buffer = len(initial)
	}
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}
	for _, v := range initial {
		ch <- v
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers v to every subscriber with buffer space and returns the number dropped.
func (h *Hub[T]) Publish(v T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
			dropped++
		}
	}
	return dropped
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later subscribers receive a closed channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
