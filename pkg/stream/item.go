package stream

import "fmt"

// Item is either a value of T or the end-of-stream marker.
// The zero Item carries the zero value of T.
type Item[T any] struct {
	v   T
	end bool
}

// Value wraps v as a payload item.
func Value[T any](v T) Item[T] {
	return Item[T]{v: v}
}

// EndOfStream returns the end-of-stream marker.
func EndOfStream[T any]() Item[T] {
	return Item[T]{end: true}
}

// Get returns the payload. ok is false for the end-of-stream marker.
func (it Item[T]) Get() (v T, ok bool) {
	return it.v, !it.end
}

// IsEnd reports whether it is the end-of-stream marker.
func (it Item[T]) IsEnd() bool {
	return it.end
}

func (it Item[T]) String() string {
	if it.end {
		return "EndOfStream"
	}
	return fmt.Sprintf("Value(%v)", it.v)
}
