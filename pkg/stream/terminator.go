package stream

import (
	"fmt"
	"sync/atomic"
)

// Terminator coordinates end of stream between several producers feeding
// the same queue. Each producer calls leave exactly once when its source is
// exhausted; the last one emits one EndOfStream per consumer.
type Terminator struct {
	remaining atomic.Int64
	consumers int
}

// NewTerminator returns a Terminator for the given topology. Both counts
// must be at least 1.
func NewTerminator(producers, consumers int) (*Terminator, error) {
	if producers < 1 || consumers < 1 {
		return nil, fmt.Errorf("stream: invalid topology: %d producers, %d consumers", producers, consumers)
	}
	t := &Terminator{consumers: consumers}
	t.remaining.Store(int64(producers))
	return t, nil
}

// leave marks one producer as finished. It returns the number of end markers
// the caller must emit: zero unless the caller is the last producer.
func (t *Terminator) leave() int {
	if t.remaining.Add(-1) == 0 {
		return t.consumers
	}
	return 0
}

// Remaining returns the number of producers that have not finished yet.
func (t *Terminator) Remaining() int {
	return int(t.remaining.Load())
}
