package logsink

// Ring is a fixed-capacity buffer that evicts the oldest value once full.
// It is not safe for concurrent use; Sink serializes access.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing returns a ring holding at most capacity values. Negative capacity is treated as zero.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len returns the number of stored values.
func (r *Ring[T]) Len() int { return r.size }

// Add appends v, evicting the oldest value when full.
func (r *Ring[T]) Add(v T) {
	c := len(r.buf)
	if c == 0 {
		return
	}
	if r.size < c {
		r.buf[(r.start+r.size)%c] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % c
}

// Items returns the stored values oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	c := len(r.buf)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%c]
	}
	return out
}

// Resize changes the capacity, keeping the most recent min(Len, capacity) values.
func (r *Ring[T]) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	items := r.Items()
	if len(items) > capacity {
		items = items[len(items)-capacity:]
	}
	buf := make([]T, capacity)
	copy(buf, items)
	r.buf = buf
	r.start = 0
	r.size = len(items)
}
