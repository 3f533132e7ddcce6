package stream

import "context"

// Queue is the blocking hand-off used by producers and consumers.
// *buffer.BoundedBuffer satisfies it.
type Queue[T any] interface {
	PutContext(ctx context.Context, v T) error
	TakeContext(ctx context.Context) (T, error)
}

// Sink receives consumed values in delivery order.
type Sink[T any] interface {
	Append(v T) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(v T) error

// Append calls f(v).
func (f SinkFunc[T]) Append(v T) error { return f(v) }

// SliceSink is an in-memory Sink. It is owned by a single consumer and is not
// safe for concurrent use.
type SliceSink[T any] struct {
	items []T
}

// Append adds v to the end of the sink.
func (s *SliceSink[T]) Append(v T) error {
	s.items = append(s.items, v)
	return nil
}

// Items returns the collected values. The slice is never nil.
func (s *SliceSink[T]) Items() []T {
	if s.items == nil {
		return []T{}
	}
	return s.items
}

// Len returns the number of collected values.
func (s *SliceSink[T]) Len() int { return len(s.items) }
