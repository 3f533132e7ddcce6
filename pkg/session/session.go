// Package session coordinates a bounded hand-off: it builds the buffer,
// starts producers and consumers as goroutines, joins them and exposes the
// collected sink.
//
// A session moves through the states
//
//	created -> running -> draining -> completed
//
// and into failed from any non-terminal state. It enters draining once
// every producer has returned and completed once every consumer has seen
// its end-of-stream marker. A failed session is abandoned: the buffer is
// closed, nothing is retried and partial sinks are discarded.
//
// A Session runs once. Use Run or RunSentinel for the common single-pair
// case.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/handoff/pkg/buffer"
	"github.com/haivivi/handoff/pkg/stream"
)

var (
	// ErrAlreadyRun is returned when a Session is run a second time.
	ErrAlreadyRun = errors.New("session: already run")

	// ErrNoSource is returned when a session is run without any source.
	ErrNoSource = errors.New("session: no source")

	// ErrInvalidTopology is returned for producer/consumer counts the
	// session cannot serve.
	ErrInvalidTopology = errors.New("session: invalid topology")

	// ErrTaskPanic wraps a value recovered from a panicking task.
	ErrTaskPanic = errors.New("session: task panicked")
)

// TaskFailure reports the failure of one producer or consumer.
type TaskFailure struct {
	SessionID string
	Task      string
	Err       error
}

func (f *TaskFailure) Error() string {
	return fmt.Sprintf("session %s: task %s failed: %v", f.SessionID, f.Task, f.Err)
}

func (f *TaskFailure) Unwrap() error { return f.Err }

// Config configures a Session.
type Config struct {
	// Capacity of the shared buffer. Required, at least 1.
	Capacity int

	// Producers, if non-zero, is the exact number of sources the session
	// must be run with.
	Producers int

	// Consumers is the number of consumer goroutines. Default is 1.
	Consumers int

	ProducerPacing stream.Pacing
	ConsumerPacing stream.Pacing

	// Hooks observe the shared buffer. See buffer.Hook.
	Hooks []buffer.Hook

	// OnFinish, if set, receives the final report of the session, whether
	// it completed or failed.
	OnFinish func(*Report)

	// TransitionHistory is the number of state transitions kept in the
	// report. Default is 16.
	TransitionHistory int

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Option adjusts a Config.
type Option func(*Config)

// WithConsumers sets the number of consumers.
func WithConsumers(n int) Option {
	return func(c *Config) { c.Consumers = n }
}

// WithPacing sets the simulated per-item work of producers and consumers.
func WithPacing(producer, consumer stream.Pacing) Option {
	return func(c *Config) {
		c.ProducerPacing = producer
		c.ConsumerPacing = consumer
	}
}

// WithHook adds a buffer hook.
func WithHook(h buffer.Hook) Option {
	return func(c *Config) { c.Hooks = append(c.Hooks, h) }
}

// WithOnFinish sets the report callback.
func WithOnFinish(f func(*Report)) Option {
	return func(c *Config) { c.OnFinish = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Session is one transfer from sources to sinks through a shared buffer.
type Session struct {
	id  string
	cfg Config
	log *slog.Logger

	fsm         *fsm.FSM
	transitions *buffer.RingBuffer[Transition]
	stats       stats

	ran atomic.Bool

	// Written by the running goroutine; read after Run returns.
	mu         sync.Mutex
	producers  int
	delivered  int
	startedAt  time.Time
	finishedAt time.Time
	err        error
}

// New validates cfg and returns a session in the created state.
func New(cfg Config) (*Session, error) {
	id := uuid.NewString()
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("session %s: %w: %d", id, buffer.ErrInvalidCapacity, cfg.Capacity)
	}
	if cfg.Consumers == 0 {
		cfg.Consumers = 1
	}
	if cfg.Consumers < 0 || cfg.Producers < 0 {
		return nil, fmt.Errorf("session %s: %w: %d producers, %d consumers", id, ErrInvalidTopology, cfg.Producers, cfg.Consumers)
	}
	if cfg.TransitionHistory <= 0 {
		cfg.TransitionHistory = 16
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		id:          id,
		cfg:         cfg,
		log:         log.With("session", id),
		transitions: buffer.RingN[Transition](cfg.TransitionHistory),
	}
	s.fsm = fsm.NewFSM(
		string(StateCreated),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StateCreated)}, Dst: string(StateRunning)},
			{Name: eventDrain, Src: []string{string(StateRunning)}, Dst: string(StateDraining)},
			{Name: eventComplete, Src: []string{string(StateDraining)}, Dst: string(StateCompleted)},
			{Name: eventFail, Src: []string{string(StateCreated), string(StateRunning), string(StateDraining)}, Dst: string(StateFailed)},
		},
		fsm.Callbacks{
			"enter_state": s.onEnterState,
		},
	)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return State(s.fsm.Current()) }

// Capacity returns the configured buffer capacity.
func (s *Session) Capacity() int { return s.cfg.Capacity }

func (s *Session) onEnterState(_ context.Context, e *fsm.Event) {
	s.transitions.Add(Transition{
		From:  State(e.Src),
		To:    State(e.Dst),
		Event: e.Event,
		At:    time.Now(),
	})
	s.log.Info("session state changed", "from", e.Src, "to", e.Dst, "event", e.Event)
}

func (s *Session) fire(event string) {
	if err := s.fsm.Event(context.Background(), event); err != nil {
		s.log.Warn("session transition rejected", "event", event, "state", s.fsm.Current(), "error", err)
	}
}

func (s *Session) bufferOptions() []buffer.Option {
	opts := []buffer.Option{buffer.WithHook(s.stats.observe)}
	for _, h := range s.cfg.Hooks {
		opts = append(opts, buffer.WithHook(h))
	}
	return opts
}

// task is one goroutine of the session.
type task struct {
	name     string
	producer bool
	run      func(context.Context) error
}

// execute runs tasks until all have returned. The first failure cancels the
// context shared by the tasks, which unblocks every Put and Take; abort is
// then called with that failure so the buffer can be discarded.
func (s *Session) execute(ctx context.Context, tasks []task, abort func(error)) error {
	if !s.ran.CompareAndSwap(false, true) {
		return fmt.Errorf("session %s: %w", s.id, ErrAlreadyRun)
	}
	s.mu.Lock()
	s.startedAt = time.Now()
	for _, t := range tasks {
		if t.producer {
			s.producers++
		}
	}
	s.mu.Unlock()
	s.fire(eventStart)

	g, gctx := errgroup.WithContext(ctx)
	var (
		producers      sync.WaitGroup
		producerFailed atomic.Bool
	)
	for _, t := range tasks {
		if t.producer {
			producers.Add(1)
		}
		g.Go(func() error {
			if t.producer {
				defer producers.Done()
			}
			err := s.runTask(gctx, t)
			if err != nil && t.producer {
				producerFailed.Store(true)
			}
			return err
		})
	}

	producers.Wait()
	if !producerFailed.Load() {
		s.fire(eventDrain)
	}

	err := g.Wait()
	s.mu.Lock()
	s.finishedAt = time.Now()
	s.err = err
	s.mu.Unlock()
	if err != nil {
		abort(err)
		s.fire(eventFail)
		s.log.Error("session failed", "error", err)
		return err
	}
	s.fire(eventComplete)
	return nil
}

func (s *Session) runTask(ctx context.Context, t task) (err error) {
	log := s.log.With("task", t.name)
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
		if err == nil {
			log.Debug("task finished")
			return
		}
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			log.Debug("task stopped", "error", err)
		} else {
			log.Error("task failed", "error", err)
		}
		err = &TaskFailure{SessionID: s.id, Task: t.name, Err: err}
	}()
	log.Debug("task started")
	return t.run(ctx)
}

// finish records the number of delivered items and hands the report to
// OnFinish.
func (s *Session) finish(delivered int) {
	s.mu.Lock()
	s.delivered = delivered
	s.mu.Unlock()
	if s.cfg.OnFinish != nil {
		s.cfg.OnFinish(s.Report())
	}
}

func producerName(i int) string { return fmt.Sprintf("producer-%d", i) }
func consumerName(i int) string { return fmt.Sprintf("consumer-%d", i) }
