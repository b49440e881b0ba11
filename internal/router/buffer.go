package router

import "sync"

// GrowableBuffer is a thread-safe FIFO that doubles its capacity when
// full instead of blocking or dropping. It decouples the routing loop
// from slow consumers such as the journal.
type GrowableBuffer[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int
	tail     int
	count    int
	capacity int
	closed   bool

	totalIn  int64
	totalOut int64
	resizes  int
}

// NewGrowableBuffer creates a buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &GrowableBuffer[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send enqueues an item, growing the buffer if needed. Returns false
// once the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if b.count == b.capacity {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalIn++

	b.cond.Signal()
	return true
}

// Receive dequeues one item, blocking until one is available or the
// buffer is closed and drained.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.popLocked(), true
}

// TryReceive dequeues without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.popLocked(), true
}

// Drain removes up to max items (all of them when max <= 0). Returns
// nil when empty.
func (b *GrowableBuffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.popLocked()
	}
	return out
}

// Close stops accepting items. Receivers drain what remains, then get
// the closed signal.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Len returns the number of queued items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer counters.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:    b.count,
		Capacity: b.capacity,
		TotalIn:  b.totalIn,
		TotalOut: b.totalOut,
		Resizes:  b.resizes,
	}
}

// BufferStats are point-in-time buffer counters.
type BufferStats struct {
	Count    int
	Capacity int
	TotalIn  int64
	TotalOut int64
	Resizes  int
}

// popLocked removes the head item. Caller holds the lock and has
// verified count > 0.
func (b *GrowableBuffer[T]) popLocked() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalOut++
	return item
}

// grow doubles capacity, compacting the ring to the front. Caller
// holds the lock.
func (b *GrowableBuffer[T]) grow() {
	next := make([]T, b.capacity*2)
	if b.count > 0 {
		if b.head < b.tail {
			copy(next, b.buf[b.head:b.tail])
		} else {
			n := copy(next, b.buf[b.head:])
			copy(next[n:], b.buf[:b.tail])
		}
	}
	b.buf = next
	b.head = 0
	b.tail = b.count
	b.capacity *= 2
	b.resizes++
}
