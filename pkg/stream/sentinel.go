package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
)

// ErrSentinelCollision is returned by SentinelProducer when a source item
// equals the sentinel. Forwarding it would stop the consumer early.
var ErrSentinelCollision = errors.New("stream: source item equals the sentinel")

// SentinelProducer is the poison-pill variant of Producer: values travel
// unwrapped and one reserved Sentinel value marks the end of the stream.
// Only a single consumer is supported.
type SentinelProducer[T comparable] struct {
	Name     string
	Source   iter.Seq[T]
	Queue    Queue[T]
	Sentinel T
	Pacing   Pacing
	Logger   *slog.Logger
}

// Run drains Source into Queue and then puts Sentinel once. A source item
// equal to Sentinel fails the run with ErrSentinelCollision before it is
// queued.
func (p *SentinelProducer[T]) Run(ctx context.Context) error {
	log := taskLogger(p.Logger, p.Name, "producer")
	n := 0
	if p.Source != nil {
		for v := range p.Source {
			if v == p.Sentinel {
				log.Error("sentinel collision", "seq", n, "item", v)
				return fmt.Errorf("%w: item %d (%v)", ErrSentinelCollision, n, v)
			}
			log.Debug("producing", "seq", n, "item", v)
			if err := p.Queue.PutContext(ctx, v); err != nil {
				return fmt.Errorf("stream: put item %d: %w", n, err)
			}
			n++
			if err := p.Pacing.Wait(ctx); err != nil {
				return fmt.Errorf("stream: producer pacing: %w", err)
			}
		}
	}
	if err := p.Queue.PutContext(ctx, p.Sentinel); err != nil {
		return fmt.Errorf("stream: put sentinel: %w", err)
	}
	log.Debug("sent sentinel, finished producing", "produced", n)
	return nil
}

// SentinelConsumer is the poison-pill variant of Consumer.
type SentinelConsumer[T comparable] struct {
	Name     string
	Queue    Queue[T]
	Sink     Sink[T]
	Sentinel T
	Pacing   Pacing
	Logger   *slog.Logger
}

// Run consumes until it takes Sentinel, which is not appended to Sink.
func (c *SentinelConsumer[T]) Run(ctx context.Context) error {
	log := taskLogger(c.Logger, c.Name, "consumer")
	n := 0
	for {
		v, err := c.Queue.TakeContext(ctx)
		if err != nil {
			return fmt.Errorf("stream: take after %d items: %w", n, err)
		}
		if v == c.Sentinel {
			log.Debug("received sentinel, stopping", "consumed", n)
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
