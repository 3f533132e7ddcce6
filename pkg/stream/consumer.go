package stream

import (
	"context"
	"fmt"
	"log/slog"
)

// Consumer takes items from Queue and appends their values to Sink until it
// receives an end-of-stream marker.
type Consumer[T any] struct {
	// Name identifies the consumer in logs (e.g. "consumer-0").
	Name string

	Queue Queue[Item[T]]
	Sink  Sink[T]

	// Pacing simulates per-item work after each append.
	Pacing Pacing

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Run consumes until end of stream. The marker itself is neither re-queued
// nor appended. Errors from the queue, the sink or ctx end the run.
func (c *Consumer[T]) Run(ctx context.Context) error {
	log := taskLogger(c.Logger, c.Name, "consumer")
	n := 0
	for {
		it, err := c.Queue.TakeContext(ctx)
		if err != nil {
			return fmt.Errorf("stream: take after %d items: %w", n, err)
		}
		v, ok := it.Get()
		if !ok {
			log.Debug("received end of stream", "consumed", n)
			return nil
		}
		log.Debug("consuming", "seq", n, "item", v)
		if err := c.Sink.Append(v); err != nil {
			return fmt.Errorf("stream: append item %d: %w", n, err)
		}
		n++
		if err := c.Pacing.Wait(ctx); err != nil {
			return fmt.Errorf("stream: consumer pacing: %w", err)
		}
	}
}
