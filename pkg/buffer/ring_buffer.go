package buffer

import "sync"

// RingBuffer is a thread-safe fixed-size buffer that overwrites its oldest
// element when full. It never blocks.
type RingBuffer[T any] struct {
	mu         sync.Mutex
	buf        []T
	head, tail int64
}

// RingN creates a RingBuffer keeping the last size elements. A size below 1
// is treated as 1.
func RingN[T any](size int) *RingBuffer[T] {
	return &RingBuffer[T]{buf: make([]T, max(size, 1))}
}

// Add appends v, dropping the oldest element if the buffer is full.
func (rb *RingBuffer[T]) Add(v T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	size := int64(len(rb.buf))
	rb.buf[rb.tail%size] = v
	rb.tail++
	if rb.tail-rb.head > size {
		rb.head = rb.tail - size
	}
}

// Items returns a copy of the buffered elements, oldest first.
func (rb *RingBuffer[T]) Items() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	size := int64(len(rb.buf))
	out := make([]T, 0, rb.tail-rb.head)
	for i := rb.head; i < rb.tail; i++ {
		out = append(out, rb.buf[i%size])
	}
	return out
}

// Len returns the number of elements currently kept.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.tail - rb.head)
}

// Dropped returns how many elements have been overwritten so far.
func (rb *RingBuffer[T]) Dropped() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.head)
}

// Reset discards all elements.
func (rb *RingBuffer[T]) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	clear(rb.buf)
	rb.head = 0
	rb.tail = 0
}
