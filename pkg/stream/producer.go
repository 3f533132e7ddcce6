package stream

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
)

// Producer moves every element of Source into Queue, in source order, and
// then signals end of stream.
type Producer[T any] struct {
	// Name identifies the producer in logs (e.g. "producer-0").
	Name string

	// Source is read exactly once, front to back.
	Source iter.Seq[T]

	// Queue receives Value items followed by end-of-stream markers.
	Queue Queue[Item[T]]

	// Terminator is shared by all producers of a multi-producer session.
	// If nil, the producer emits a single EndOfStream when done.
	Terminator *Terminator

	// Pacing simulates per-item work after each put.
	Pacing Pacing

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Run drains Source into Queue. It returns the first error from the queue
// or from ctx; on error the end-of-stream marker is not emitted.
func (p *Producer[T]) Run(ctx context.Context) error {
	log := taskLogger(p.Logger, p.Name, "producer")
	n := 0
	if p.Source != nil {
		for v := range p.Source {
			log.Debug("producing", "seq", n, "item", v)
			if err := p.Queue.PutContext(ctx, Value(v)); err != nil {
				return fmt.Errorf("stream: put item %d: %w", n, err)
			}
			n++
			if err := p.Pacing.Wait(ctx); err != nil {
				return fmt.Errorf("stream: producer pacing: %w", err)
			}
		}
	}

	markers := 1
	if p.Terminator != nil {
		markers = p.Terminator.leave()
	}
	for i := 0; i < markers; i++ {
		if err := p.Queue.PutContext(ctx, EndOfStream[T]()); err != nil {
			return fmt.Errorf("stream: put end of stream: %w", err)
		}
	}
	log.Debug("finished producing", "produced", n, "end_markers", markers)
	return nil
}

func taskLogger(l *slog.Logger, name, fallback string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	if name == "" {
		name = fallback
	}
	return l.With("task", name)
}
