package buffer

import "sync"

// Ring keeps the most recent elements written to it, up to its size.
type Ring[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // next write position
	count int
}

// RingN creates a Ring holding at most size elements. A size of zero yields
// a ring that retains nothing.
func RingN[T any](size int) *Ring[T] {
	return &Ring[T]{buf: make([]T, max(size, 0))}
}

// Write appends p, discarding the oldest elements once the ring is full.
func (r *Ring[T]) Write(p []T) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := len(r.buf)
	if size == 0 {
		return len(p), nil
	}
	src := p
	if len(src) > size {
		src = src[len(src)-size:]
	}
	for len(src) > 0 {
		n := copy(r.buf[r.head:], src)
		src = src[n:]
		r.head = (r.head + n) % size
	}
	r.count = min(r.count+len(p), size)
	return len(p), nil
}

// Tail returns a copy of the last n elements, oldest first. If fewer than n
// are held, all of them are returned.
func (r *Ring[T]) Tail(n int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	n = min(max(n, 0), r.count)
	out := make([]T, n)
	size := len(r.buf)
	if n == 0 {
		return out
	}
	start := (r.head - n + size) % size
	k := copy(out, r.buf[start:min(start+n, size)])
	copy(out[k:], r.buf[:n-k])
	return out
}

// Reset discards all elements.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.count = 0
}
