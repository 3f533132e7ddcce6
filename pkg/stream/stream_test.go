package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/haivivi/handoff/pkg/buffer"
)

func newQueue[T any](t *testing.T, capacity int) *buffer.BoundedBuffer[T] {
	t.Helper()
	bb, err := buffer.BoundedN[T](capacity)
	if err != nil {
		t.Fatal(err)
	}
	return bb
}

func TestItem(t *testing.T) {
	v, ok := Value(0).Get()
	if !ok || v != 0 {
		t.Fatalf("Value(0).Get() = (%d, %v)", v, ok)
	}
	if Value("").IsEnd() {
		t.Fatal("zero value treated as end of stream")
	}
	if !EndOfStream[int]().IsEnd() {
		t.Fatal("EndOfStream not recognised")
	}
	if _, ok := EndOfStream[int]().Get(); ok {
		t.Fatal("EndOfStream.Get reported a value")
	}
	if s := EndOfStream[int]().String(); s != "EndOfStream" {
		t.Fatalf("String()=%q", s)
	}
	if s := Value(3).String(); s != "Value(3)" {
		t.Fatalf("String()=%q", s)
	}
}

func TestProducerConsumer(t *testing.T) {
	for _, tc := range []struct {
		name     string
		source   []int
		capacity int
	}{
		{"empty", nil, 3},
		{"single", []int{42}, 1},
		{"cap=1", []int{1, 2, 3, 4, 5}, 1},
		{"cap=2", []int{1, 2, 3, 4, 5}, 2},
		{"zero values", []int{0, 0, 0}, 2},
		{"cap>n", []int{9, 8, 7}, 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := newQueue[Item[int]](t, tc.capacity)
			sink := &SliceSink[int]{}
			p := &Producer[int]{Source: slices.Values(tc.source), Queue: q}
			c := &Consumer[int]{Queue: q, Sink: sink}

			errc := make(chan error, 2)
			go func() { errc <- p.Run(context.Background()) }()
			go func() { errc <- c.Run(context.Background()) }()
			for range 2 {
				if err := <-errc; err != nil {
					t.Fatal(err)
				}
			}
			want := tc.source
			if want == nil {
				want = []int{}
			}
			if diff := cmp.Diff(want, sink.Items()); diff != "" {
				t.Fatalf("sink (-want +got):\n%s", diff)
			}
			if q.Len() != 0 {
				t.Fatalf("%d items left in queue", q.Len())
			}
		})
	}
}

func TestConsumerSinkError(t *testing.T) {
	q := newQueue[Item[string]](t, 4)
	q.Put(Value("ok"))
	q.Put(Value("bad"))
	boom := errors.New("disk full")
	var got []string
	c := &Consumer[string]{
		Queue: q,
		Sink: SinkFunc[string](func(v string) error {
			if v == "bad" {
				return boom
			}
			got = append(got, v)
			return nil
		}),
	}
	err := c.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
	if diff := cmp.Diff([]string{"ok"}, got); diff != "" {
		t.Fatalf("sink (-want +got):\n%s", diff)
	}
}

func TestProducerCanceled(t *testing.T) {
	q := newQueue[Item[int]](t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p := &Producer[int]{Source: slices.Values([]int{1, 2, 3}), Queue: q}
	err := p.Run(ctx)
	if !errors.Is(err, buffer.ErrTimeout) {
		t.Fatalf("err=%v, want ErrTimeout", err)
	}
	if q.Len() != 1 {
		t.Fatalf("len=%d, want 1", q.Len())
	}
}

func TestTerminator(t *testing.T) {
	if _, err := NewTerminator(0, 1); err == nil {
		t.Fatal("expected error for zero producers")
	}
	if _, err := NewTerminator(1, 0); err == nil {
		t.Fatal("expected error for zero consumers")
	}

	term, err := NewTerminator(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n := term.leave(); n != 0 {
		t.Fatalf("first leave=%d", n)
	}
	if n := term.leave(); n != 0 {
		t.Fatalf("second leave=%d", n)
	}
	if term.Remaining() != 1 {
		t.Fatalf("remaining=%d", term.Remaining())
	}
	if n := term.leave(); n != 2 {
		t.Fatalf("last leave=%d, want 2", n)
	}
}

func TestManyProducersManyConsumers(t *testing.T) {
	const (
		producers   = 4
		consumers   = 3
		perProducer = 500
	)
	q := newQueue[Item[string]](t, 2)
	term, err := NewTerminator(producers, consumers)
	if err != nil {
		t.Fatal(err)
	}

	sinks := make([]*SliceSink[string], consumers)
	var wg sync.WaitGroup
	errc := make(chan error, producers+consumers)
	for i := range producers {
		src := make([]string, perProducer)
		for j := range src {
			src[j] = fmt.Sprintf("p%d-%04d", i, j)
		}
		p := &Producer[string]{Name: fmt.Sprintf("producer-%d", i), Source: slices.Values(src), Queue: q, Terminator: term}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(context.Background()); err != nil {
				errc <- err
			}
		}()
	}
	for i := range consumers {
		sinks[i] = &SliceSink[string]{}
		c := &Consumer[string]{Name: fmt.Sprintf("consumer-%d", i), Queue: q, Sink: sinks[i]}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Run(context.Background()); err != nil {
				errc <- err
			}
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		t.Fatal(err)
	}

	var all []string
	for _, s := range sinks {
		items := s.Items()
		// Per-producer order survives within each consumer.
		last := map[string]string{}
		for _, v := range items {
			prefix := v[:2]
			if prev, ok := last[prefix]; ok && prev >= v {
				t.Fatalf("out of order within consumer: %s after %s", v, prev)
			}
			last[prefix] = v
		}
		all = append(all, items...)
	}
	if len(all) != producers*perProducer {
		t.Fatalf("got %d items, want %d", len(all), producers*perProducer)
	}
	sort.Strings(all)
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1] {
			t.Fatalf("duplicate %s", all[i])
		}
	}
	if q.Len() != 0 {
		t.Fatalf("%d items left in queue", q.Len())
	}
}

func TestSentinel(t *testing.T) {
	t.Run("transfer", func(t *testing.T) {
		q := newQueue[int](t, 2)
		sink := &SliceSink[int]{}
		p := &SentinelProducer[int]{Source: slices.Values([]int{1, 2, 3}), Queue: q, Sentinel: -1}
		c := &SentinelConsumer[int]{Queue: q, Sink: sink, Sentinel: -1}
		errc := make(chan error, 2)
		go func() { errc <- p.Run(context.Background()) }()
		go func() { errc <- c.Run(context.Background()) }()
		for range 2 {
			if err := <-errc; err != nil {
				t.Fatal(err)
			}
		}
		if diff := cmp.Diff([]int{1, 2, 3}, sink.Items()); diff != "" {
			t.Fatalf("sink (-want +got):\n%s", diff)
		}
	})

	t.Run("collision", func(t *testing.T) {
		q := newQueue[int](t, 8)
		p := &SentinelProducer[int]{Source: slices.Values([]int{1, 0, 2}), Queue: q, Sentinel: 0}
		err := p.Run(context.Background())
		if !errors.Is(err, ErrSentinelCollision) {
			t.Fatalf("err=%v, want ErrSentinelCollision", err)
		}
		if diff := cmp.Diff([]int{1}, q.Snapshot()); diff != "" {
			t.Fatalf("queued (-want +got):\n%s", diff)
		}
	})
}

func TestPacing(t *testing.T) {
	p := Pacing{Delay: time.Millisecond, Jitter: 5 * time.Millisecond}
	for range 100 {
		d := p.next()
		if d < time.Millisecond || d >= 6*time.Millisecond {
			t.Fatalf("paced duration %v out of range", d)
		}
	}
	if d := (Pacing{}).next(); d != 0 {
		t.Fatalf("zero pacing = %v", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Pacing{Delay: time.Hour}).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}
