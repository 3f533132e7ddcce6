package buffer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultCapacity is the capacity used by callers that do not choose one.
const DefaultCapacity = 10

var (
	// ErrInvalidCapacity is returned by BoundedN when capacity < 1.
	ErrInvalidCapacity = errors.New("buffer: invalid capacity")

	// ErrTimeout is returned by PutContext and TakeContext when the context
	// deadline passes while the call is blocked. The returned error also
	// matches context.DeadlineExceeded.
	ErrTimeout = errors.New("buffer: timeout")
)

// BoundedBuffer is a thread-safe fixed-capacity FIFO. Put blocks while the
// buffer is full and Take blocks while it is empty.
//
// The buffer is a monitor: a single mutex guards the storage and both
// condition variables, notFull and notEmpty, are bound to it. Waiters re-check
// their predicate after every wake, so spurious wake-ups are harmless.
//
// Storage is a ring of cap slots addressed by monotonically increasing head
// and tail counters; tail-head is the current length and never exceeds cap.
type BoundedBuffer[T any] struct {
	notFull  *sync.Cond
	notEmpty *sync.Cond

	mu         sync.Mutex
	buf        []T
	head, tail int64
	closeWrite bool
	closeErr   error
	hooks      []Hook
}

// Option configures a BoundedBuffer.
type Option func(*options)

type options struct {
	hooks []Hook
}

// WithHook registers h to observe every state change of the buffer. Multiple
// hooks run in registration order.
func WithHook(h Hook) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}

// BoundedN creates a BoundedBuffer holding at most capacity elements.
func BoundedN[T any](capacity int, opts ...Option) (*BoundedBuffer[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	bb := &BoundedBuffer[T]{
		buf:   make([]T, capacity),
		hooks: o.hooks,
	}
	bb.notFull = sync.NewCond(&bb.mu)
	bb.notEmpty = sync.NewCond(&bb.mu)
	return bb, nil
}

// Put appends v to the tail of the buffer, blocking while the buffer is full.
//
// Put never times out. It only fails once the buffer has been closed: with
// io.ErrClosedPipe after CloseWrite, or with the close error after
// CloseWithError.
func (bb *BoundedBuffer[T]) Put(v T) error {
	return bb.put(nil, v)
}

// PutContext is Put with cancellation. If ctx is done while the call is
// blocked, the element is not added and the context error is returned
// (wrapped with ErrTimeout on deadline).
func (bb *BoundedBuffer[T]) PutContext(ctx context.Context, v T) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stop := bb.wakeOnDone(ctx)
	defer stop()
	return bb.put(ctx, v)
}

// TryPut appends v without blocking. It returns false if the buffer is full
// or closed.
func (bb *BoundedBuffer[T]) TryPut(v T) bool {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.writableLocked() != nil || bb.fullLocked() {
		return false
	}
	bb.pushLocked(v)
	return true
}

// Take removes and returns the head of the buffer, blocking while the buffer
// is empty.
//
// Once the write side is closed, Take keeps returning buffered elements and
// then io.EOF. After CloseWithError it fails immediately.
func (bb *BoundedBuffer[T]) Take() (T, error) {
	return bb.take(nil)
}

// TakeContext is Take with cancellation. If ctx is done while the call is
// blocked, no element is removed and the context error is returned (wrapped
// with ErrTimeout on deadline).
func (bb *BoundedBuffer[T]) TakeContext(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	stop := bb.wakeOnDone(ctx)
	defer stop()
	return bb.take(ctx)
}

// TryTake removes the head without blocking. ok is false if the buffer is
// empty or closed with an error.
func (bb *BoundedBuffer[T]) TryTake() (v T, ok bool) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.closeErr != nil || bb.head == bb.tail {
		return v, false
	}
	return bb.popLocked(), true
}

func (bb *BoundedBuffer[T]) put(ctx context.Context, v T) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	for {
		if err := bb.writableLocked(); err != nil {
			return err
		}
		if !bb.fullLocked() {
			break
		}
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return waitError("put", err)
			}
		}
		bb.emitLocked(OpPutWait)
		bb.notFull.Wait()
	}
	bb.pushLocked(v)
	return nil
}

func (bb *BoundedBuffer[T]) take(ctx context.Context) (t T, err error) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	for {
		if bb.closeErr != nil {
			return t, fmt.Errorf("buffer: take from closed buffer: %w", bb.closeErr)
		}
		if bb.head != bb.tail {
			break
		}
		if bb.closeWrite {
			return t, io.EOF
		}
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return t, waitError("take", err)
			}
		}
		bb.emitLocked(OpTakeWait)
		bb.notEmpty.Wait()
	}
	return bb.popLocked(), nil
}

func (bb *BoundedBuffer[T]) pushLocked(v T) {
	bb.buf[bb.tail%int64(len(bb.buf))] = v
	bb.tail++
	bb.emitLocked(OpPut)
	bb.notEmpty.Signal()
}

func (bb *BoundedBuffer[T]) popLocked() T {
	var zero T
	i := bb.head % int64(len(bb.buf))
	v := bb.buf[i]
	bb.buf[i] = zero
	bb.head++
	bb.emitLocked(OpTake)
	bb.notFull.Signal()
	return v
}

func (bb *BoundedBuffer[T]) fullLocked() bool {
	return bb.tail-bb.head == int64(len(bb.buf))
}

func (bb *BoundedBuffer[T]) writableLocked() error {
	if bb.closeErr != nil {
		return fmt.Errorf("buffer: put to closed buffer: %w", bb.closeErr)
	}
	if bb.closeWrite {
		return fmt.Errorf("buffer: put to closed buffer: %w", io.ErrClosedPipe)
	}
	return nil
}

// wakeOnDone broadcasts both conditions once ctx is done so that a blocked
// waiter re-checks ctx.Err(). The broadcast takes the lock, so it cannot slip
// in between a waiter's ctx check and its Wait.
func (bb *BoundedBuffer[T]) wakeOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		bb.mu.Lock()
		bb.notFull.Broadcast()
		bb.notEmpty.Broadcast()
		bb.mu.Unlock()
	})
}

func waitError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("buffer: %s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("buffer: %s: %w", op, err)
}

func (bb *BoundedBuffer[T]) emitLocked(op Op) {
	if len(bb.hooks) == 0 {
		return
	}
	ev := Event{Op: op, Len: int(bb.tail - bb.head), Cap: len(bb.buf)}
	for _, h := range bb.hooks {
		h(ev)
	}
}

// CloseWrite closes the write side of the buffer. Subsequent Put calls fail
// with io.ErrClosedPipe; Take drains what is left and then returns io.EOF.
// Blocked writers are woken and fail.
//
// Returns nil if the write side was already closed.
func (bb *BoundedBuffer[T]) CloseWrite() error {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.closeWrite {
		return nil
	}
	bb.closeWrite = true
	bb.emitLocked(OpClose)
	bb.notFull.Broadcast()
	bb.notEmpty.Broadcast()
	return nil
}

// CloseWithError closes both sides of the buffer. Every pending and future
// Put and Take fails with err. If err is nil, io.ErrClosedPipe is used.
// Only the first close error is kept.
func (bb *BoundedBuffer[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.closeErr != nil {
		return nil
	}
	bb.closeErr = err
	bb.closeWrite = true
	bb.emitLocked(OpClose)
	bb.notFull.Broadcast()
	bb.notEmpty.Broadcast()
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (bb *BoundedBuffer[T]) Close() error {
	return bb.CloseWithError(io.ErrClosedPipe)
}

// Error returns the error the buffer was closed with, if any.
func (bb *BoundedBuffer[T]) Error() error {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return bb.closeErr
}

// Len returns the number of elements currently buffered.
func (bb *BoundedBuffer[T]) Len() int {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return int(bb.tail - bb.head)
}

// Cap returns the fixed capacity of the buffer.
func (bb *BoundedBuffer[T]) Cap() int {
	return len(bb.buf)
}

// Snapshot returns a copy of the buffered elements in delivery order.
func (bb *BoundedBuffer[T]) Snapshot() []T {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	n := int(bb.tail - bb.head)
	out := make([]T, 0, n)
	for i := bb.head; i < bb.tail; i++ {
		out = append(out, bb.buf[i%int64(len(bb.buf))])
	}
	return out
}
