// Package history keeps bounded per-subject estimate windows and derives
// trends and temporal features from them.
package history

// Ring is a fixed-capacity FIFO buffer. When full, Push overwrites the
// oldest entry. It is not safe for concurrent use on its own.
type Ring[T any] struct {
	buf  []T
	head int // index of the oldest entry
	size int
}

// NewRing creates a ring holding at most capacity entries (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, returning the evicted entry when the ring was full.
func (r *Ring[T]) Push(v T) (T, bool) {
	var evicted T
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return evicted, false
	}
	evicted = r.buf[r.head]
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	return evicted, true
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Items returns entries oldest first.
func (r *Ring[T]) Items() []T {
	return r.Last(r.size)
}

// Last returns up to n most recent entries, oldest first.
func (r *Ring[T]) Last(n int) []T {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	start := r.head + r.size - n
	for i := range n {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
