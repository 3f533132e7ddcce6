package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/haivivi/handoff/pkg/buffer"
	"github.com/haivivi/handoff/pkg/stream"
)

// Result holds the outcome of a completed session.
type Result[T any] struct {
	// Sinks has one entry per consumer, each in delivery order.
	Sinks [][]T

	Report *Report
}

// Items returns the delivered values. With a single consumer this is its
// sink; with several, the sinks are concatenated in consumer order.
func (r *Result[T]) Items() []T {
	if len(r.Sinks) == 1 {
		return r.Sinks[0]
	}
	out := []T{}
	for _, s := range r.Sinks {
		out = append(out, s...)
	}
	return out
}

// Transfer runs s with one producer per source. Values travel as tagged
// stream.Item, so every value of T is a valid payload.
//
// On failure the returned Result carries only the report and the error is
// the first *TaskFailure (or a setup error).
func Transfer[T any](ctx context.Context, s *Session, sources ...iter.Seq[T]) (*Result[T], error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("session %s: %w", s.id, ErrNoSource)
	}
	if s.cfg.Producers > 0 && s.cfg.Producers != len(sources) {
		return nil, fmt.Errorf("session %s: %w: configured for %d producers, got %d sources",
			s.id, ErrInvalidTopology, s.cfg.Producers, len(sources))
	}
	buf, err := buffer.BoundedN[stream.Item[T]](s.cfg.Capacity, s.bufferOptions()...)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.id, err)
	}

	var term *stream.Terminator
	if len(sources) > 1 || s.cfg.Consumers > 1 {
		if term, err = stream.NewTerminator(len(sources), s.cfg.Consumers); err != nil {
			return nil, fmt.Errorf("session %s: %w: %w", s.id, ErrInvalidTopology, err)
		}
	}

	tasks := make([]task, 0, len(sources)+s.cfg.Consumers)
	for i, src := range sources {
		p := &stream.Producer[T]{
			Name:       producerName(i),
			Source:     src,
			Queue:      buf,
			Terminator: term,
			Pacing:     s.cfg.ProducerPacing,
			Logger:     s.log,
		}
		tasks = append(tasks, task{name: p.Name, producer: true, run: p.Run})
	}
	sinks := make([]*stream.SliceSink[T], s.cfg.Consumers)
	for i := range sinks {
		sinks[i] = &stream.SliceSink[T]{}
		c := &stream.Consumer[T]{
			Name:   consumerName(i),
			Queue:  buf,
			Sink:   sinks[i],
			Pacing: s.cfg.ConsumerPacing,
			Logger: s.log,
		}
		tasks = append(tasks, task{name: c.Name, run: c.Run})
	}

	err = s.execute(ctx, tasks, func(err error) { buf.CloseWithError(err) })
	return collect(s, sinks, err)
}

// TransferSentinel runs s with the poison-pill protocol: values travel
// unwrapped and sentinel marks the end of the stream. It supports a single
// producer and a single consumer. A source value equal to sentinel fails the
// session with stream.ErrSentinelCollision.
func TransferSentinel[T comparable](ctx context.Context, s *Session, source iter.Seq[T], sentinel T) (*Result[T], error) {
	if source == nil {
		return nil, fmt.Errorf("session %s: %w", s.id, ErrNoSource)
	}
	if s.cfg.Consumers != 1 || s.cfg.Producers > 1 {
		return nil, fmt.Errorf("session %s: %w: the sentinel protocol needs exactly one producer and one consumer",
			s.id, ErrInvalidTopology)
	}
	buf, err := buffer.BoundedN[T](s.cfg.Capacity, s.bufferOptions()...)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.id, err)
	}

	sink := &stream.SliceSink[T]{}
	p := &stream.SentinelProducer[T]{
		Name:     producerName(0),
		Source:   source,
		Queue:    buf,
		Sentinel: sentinel,
		Pacing:   s.cfg.ProducerPacing,
		Logger:   s.log,
	}
	c := &stream.SentinelConsumer[T]{
		Name:     consumerName(0),
		Queue:    buf,
		Sink:     sink,
		Sentinel: sentinel,
		Pacing:   s.cfg.ConsumerPacing,
		Logger:   s.log,
	}

	err = s.execute(ctx, []task{
		{name: p.Name, producer: true, run: p.Run},
		{name: c.Name, run: c.Run},
	}, func(err error) { buf.CloseWithError(err) })
	return collect(s, []*stream.SliceSink[T]{sink}, err)
}

func collect[T any](s *Session, sinks []*stream.SliceSink[T], err error) (*Result[T], error) {
	if errors.Is(err, ErrAlreadyRun) {
		return nil, err
	}
	delivered := 0
	for _, sk := range sinks {
		delivered += sk.Len()
	}
	s.finish(delivered)
	if err != nil {
		return &Result[T]{Report: s.Report()}, err
	}
	res := &Result[T]{
		Sinks:  make([][]T, len(sinks)),
		Report: s.Report(),
	}
	for i, sk := range sinks {
		res.Sinks[i] = sk.Items()
	}
	return res, nil
}

// Run transfers source through a buffer of the given capacity and returns
// the sink. It is the single-pair entry point: one producer, one consumer
// (unless overridden with WithConsumers), FIFO delivery.
func Run[T any](ctx context.Context, source []T, capacity int, opts ...Option) ([]T, error) {
	cfg := Config{Capacity: capacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	res, err := Transfer(ctx, s, slices.Values(source))
	if err != nil {
		return nil, err
	}
	return res.Items(), nil
}

// RunSentinel is Run with the poison-pill protocol.
func RunSentinel[T comparable](ctx context.Context, source []T, capacity int, sentinel T, opts ...Option) ([]T, error) {
	cfg := Config{Capacity: capacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	res, err := TransferSentinel(ctx, s, slices.Values(source), sentinel)
	if err != nil {
		return nil, err
	}
	return res.Items(), nil
}
