package buffer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBoundedN(t *testing.T) {
	for _, c := range []int{0, -1, -5} {
		bb, err := BoundedN[int](c)
		if !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("BoundedN(%d) err=%v, want ErrInvalidCapacity", c, err)
		}
		if bb != nil {
			t.Errorf("BoundedN(%d) returned a buffer", c)
		}
	}

	bb, err := BoundedN[int](3)
	if err != nil {
		t.Fatalf("BoundedN(3): %v", err)
	}
	if bb.Cap() != 3 || bb.Len() != 0 {
		t.Fatalf("cap=%d len=%d", bb.Cap(), bb.Len())
	}
}

func TestBoundedBufferFIFO(t *testing.T) {
	bb, _ := BoundedN[string](10)
	items := []string{"a", "b", "c", "d"}
	for _, v := range items {
		if err := bb.Put(v); err != nil {
			t.Fatalf("put %q: %v", v, err)
		}
	}
	var got []string
	for range items {
		v, err := bb.Take()
		if err != nil {
			t.Fatalf("take: %v", err)
		}
		got = append(got, v)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBoundedBufferWrapAround(t *testing.T) {
	bb, _ := BoundedN[int](3)
	for round := 0; round < 5; round++ {
		for i := 0; i < 3; i++ {
			bb.Put(round*10 + i)
		}
		want := []int{round * 10, round*10 + 1, round*10 + 2}
		if diff := cmp.Diff(want, bb.Snapshot()); diff != "" {
			t.Fatalf("round %d snapshot (-want +got):\n%s", round, diff)
		}
		for _, w := range want {
			v, _ := bb.Take()
			if v != w {
				t.Fatalf("round %d: got %d want %d", round, v, w)
			}
		}
	}
}

func TestBoundedBufferPutBlocksWhenFull(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bb, _ := BoundedN[string](1)
		if err := bb.Put("first"); err != nil {
			t.Fatal(err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := bb.Put("second"); err != nil {
				t.Errorf("put second: %v", err)
			}
		}()

		synctest.Wait()
		select {
		case <-done:
			t.Fatal("put returned while the buffer was full")
		default:
		}

		v, err := bb.Take()
		if err != nil || v != "first" {
			t.Fatalf("take got (%q, %v)", v, err)
		}

		synctest.Wait()
		select {
		case <-done:
		default:
			t.Fatal("put still blocked after take freed a slot")
		}
		if v, _ := bb.Take(); v != "second" {
			t.Fatalf("take got %q, want second", v)
		}
	})
}

func TestBoundedBufferTakeBlocksWhenEmpty(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bb, _ := BoundedN[string](1)
		got := make(chan string, 1)
		go func() {
			v, err := bb.Take()
			if err != nil {
				t.Errorf("take: %v", err)
			}
			got <- v
		}()

		synctest.Wait()
		select {
		case v := <-got:
			t.Fatalf("take returned %q from an empty buffer", v)
		default:
		}

		bb.Put("value")
		synctest.Wait()
		select {
		case v := <-got:
			if v != "value" {
				t.Fatalf("got %q", v)
			}
		default:
			t.Fatal("take still blocked after put")
		}
	})
}

func TestBoundedBufferContext(t *testing.T) {
	t.Run("put deadline", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			bb, _ := BoundedN[int](1)
			bb.Put(1)
			ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := bb.PutContext(ctx, 2)
			if !errors.Is(err, ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("err=%v, want ErrTimeout and DeadlineExceeded", err)
			}
			if d := time.Since(start); d < 50*time.Millisecond {
				t.Fatalf("returned after %v", d)
			}
			if bb.Len() != 1 {
				t.Fatalf("len=%d after timed out put", bb.Len())
			}
		})
	})

	t.Run("take cancel", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			bb, _ := BoundedN[int](1)
			ctx, cancel := context.WithCancel(t.Context())
			errc := make(chan error, 1)
			go func() {
				_, err := bb.TakeContext(ctx)
				errc <- err
			}()
			synctest.Wait()
			cancel()
			err := <-errc
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("err=%v, want context.Canceled", err)
			}
			if errors.Is(err, ErrTimeout) {
				t.Fatalf("cancel must not report a timeout: %v", err)
			}
		})
	})

	t.Run("no wait when ready", func(t *testing.T) {
		bb, _ := BoundedN[int](1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := bb.PutContext(ctx, 7); err != nil {
			t.Fatalf("put on free buffer with done ctx: %v", err)
		}
		v, err := bb.TakeContext(ctx)
		if err != nil || v != 7 {
			t.Fatalf("take got (%d, %v)", v, err)
		}
	})
}

func TestBoundedBufferClose(t *testing.T) {
	t.Run("close write drains", func(t *testing.T) {
		bb, _ := BoundedN[int](4)
		bb.Put(1)
		bb.Put(2)
		if err := bb.CloseWrite(); err != nil {
			t.Fatal(err)
		}
		if err := bb.Put(3); !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("put after close write: %v", err)
		}
		for _, want := range []int{1, 2} {
			v, err := bb.Take()
			if err != nil || v != want {
				t.Fatalf("take got (%d, %v), want %d", v, err, want)
			}
		}
		if _, err := bb.Take(); !errors.Is(err, io.EOF) {
			t.Fatalf("take on drained buffer: %v", err)
		}
	})

	t.Run("close with error wakes waiters", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			bb, _ := BoundedN[int](1)
			boom := errors.New("boom")
			errc := make(chan error, 1)
			go func() {
				_, err := bb.Take()
				errc <- err
			}()
			synctest.Wait()
			bb.CloseWithError(boom)
			if err := <-errc; !errors.Is(err, boom) {
				t.Fatalf("take err=%v, want boom", err)
			}
			if err := bb.Put(1); !errors.Is(err, boom) {
				t.Fatalf("put err=%v, want boom", err)
			}
			if !errors.Is(bb.Error(), boom) {
				t.Fatalf("Error()=%v", bb.Error())
			}
			bb.CloseWithError(errors.New("second"))
			if !errors.Is(bb.Error(), boom) {
				t.Fatal("second close replaced the first error")
			}
		})
	})
}

func TestBoundedBufferTry(t *testing.T) {
	bb, _ := BoundedN[int](1)
	if _, ok := bb.TryTake(); ok {
		t.Fatal("TryTake on empty buffer succeeded")
	}
	if !bb.TryPut(1) {
		t.Fatal("TryPut on empty buffer failed")
	}
	if bb.TryPut(2) {
		t.Fatal("TryPut on full buffer succeeded")
	}
	if v, ok := bb.TryTake(); !ok || v != 1 {
		t.Fatalf("TryTake got (%d, %v)", v, ok)
	}
	bb.Close()
	if bb.TryPut(3) {
		t.Fatal("TryPut on closed buffer succeeded")
	}
}

func TestBoundedBufferHooks(t *testing.T) {
	const n = 2000
	for _, capacity := range []int{1, 2, 7, 64} {
		t.Run("cap="+strconv.Itoa(capacity), func(t *testing.T) {
			var (
				mu        sync.Mutex
				puts      int
				takes     int
				maxLen    int
				violation string
			)
			hook := func(ev Event) {
				mu.Lock()
				defer mu.Unlock()
				if ev.Len < 0 || ev.Len > ev.Cap {
					violation = fmt.Sprintf("%s: len=%d cap=%d", ev.Op, ev.Len, ev.Cap)
				}
				maxLen = max(maxLen, ev.Len)
				switch ev.Op {
				case OpPut:
					puts++
				case OpTake:
					takes++
				}
			}
			bb, _ := BoundedN[int](capacity, WithHook(hook))

			producerErr := make(chan error, 1)
			go func() {
				for i := 0; i < n; i++ {
					if err := bb.Put(i); err != nil {
						producerErr <- err
						return
					}
				}
				producerErr <- bb.CloseWrite()
			}()

			for want := 0; ; want++ {
				v, err := bb.Take()
				if errors.Is(err, io.EOF) {
					if want != n {
						t.Fatalf("EOF after %d items, want %d", want, n)
					}
					break
				}
				if err != nil {
					t.Fatalf("take: %v", err)
				}
				if v != want {
					t.Fatalf("got %d want %d", v, want)
				}
			}
			if err := <-producerErr; err != nil {
				t.Fatal(err)
			}

			mu.Lock()
			defer mu.Unlock()
			if violation != "" {
				t.Fatal(violation)
			}
			if puts != n || takes != n {
				t.Fatalf("puts=%d takes=%d, want %d", puts, takes, n)
			}
			if maxLen > capacity {
				t.Fatalf("max len %d exceeds capacity %d", maxLen, capacity)
			}
		})
	}
}

func BenchmarkBoundedBuffer(b *testing.B) {
	bb, _ := BoundedN[int](1024)
	go func() {
		for i := 0; i < b.N; i++ {
			bb.Put(i)
		}
		bb.CloseWrite()
	}()
	for {
		if _, err := bb.Take(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			b.Fatal(err)
		}
	}
}
