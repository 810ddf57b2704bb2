// Package rtqueue provides a bounded single-producer/single-consumer ring
// that never blocks and never allocates after construction.
//
// One goroutine owns the Producer, one owns the Consumer. The write index is
// only stored by the producer and the read index only by the consumer, so no
// locks are needed; the atomic store of an index publishes the slot contents
// to the other side.
package rtqueue

import "sync/atomic"

type ring[T any] struct {
	// head and tail are monotonic; slot = index % len(buf).
	head atomic.Uint64 // next slot to read, owned by the consumer
	_    [56]byte      // keep the indices on separate cache lines
	tail atomic.Uint64 // next slot to write, owned by the producer
	_    [56]byte
	buf  []T
}

// Producer is the write end of a ring.
type Producer[T any] struct {
	r *ring[T]
}

// Consumer is the read end of a ring.
type Consumer[T any] struct {
	r *ring[T]
}

// New allocates a ring holding at most capacity values and returns its two
// ends. It panics if capacity is not positive.
func New[T any](capacity int) (*Producer[T], *Consumer[T]) {
	if capacity <= 0 {
		panic("rtqueue: capacity must be positive")
	}
	r := &ring[T]{buf: make([]T, capacity)}
	return &Producer[T]{r: r}, &Consumer[T]{r: r}
}

// Push appends v. It returns false without blocking when the ring is full,
// in which case v is not stored.
func (p *Producer[T]) Push(v T) bool {
	r := p.r
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.buf)) {
		return false
	}
	r.buf[tail%uint64(len(r.buf))] = v
	r.tail.Store(tail + 1)
	return true
}

// Free returns how many more values can be pushed right now.
func (p *Producer[T]) Free() int {
	r := p.r
	return len(r.buf) - int(r.tail.Load()-r.head.Load())
}

// Cap returns the ring capacity.
func (p *Producer[T]) Cap() int { return len(p.r.buf) }

// Pop removes and returns the oldest value. It returns false without
// blocking when the ring is empty. The vacated slot is zeroed so the ring
// does not keep a reference to a value it handed out.
func (c *Consumer[T]) Pop() (T, bool) {
	r := c.r
	head := r.head.Load()
	if head == r.tail.Load() {
		var zero T
		return zero, false
	}
	i := head % uint64(len(r.buf))
	v := r.buf[i]
	var zero T
	r.buf[i] = zero
	r.head.Store(head + 1)
	return v, true
}

// Peek returns the oldest value without removing it.
func (c *Consumer[T]) Peek() (T, bool) {
	r := c.r
	head := r.head.Load()
	if head == r.tail.Load() {
		var zero T
		return zero, false
	}
	return r.buf[head%uint64(len(r.buf))], true
}

// Len returns the number of values waiting to be popped.
func (c *Consumer[T]) Len() int {
	r := c.r
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the ring capacity.
func (c *Consumer[T]) Cap() int { return len(c.r.buf) }
