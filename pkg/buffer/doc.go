// Package buffer provides the thread-safe buffers used to hand items between
// goroutines.
//
//   - BoundedBuffer: a fixed-capacity FIFO that blocks writers while full and
//     readers while empty. It is a classic monitor: one mutex and two
//     condition variables ("not full", "not empty").
//
//   - RingBuffer: a fixed-size buffer that overwrites its oldest element when
//     full. Useful for keeping the most recent N events of a session.
//
// BoundedBuffer supports graceful shutdown through CloseWrite (reads drain
// the remaining items, then return io.EOF) and CloseWithError (every pending
// and future call fails with the given error).
//
// Example usage:
//
//	bb, err := buffer.BoundedN[int](2)
//	if err != nil {
//		return err
//	}
//
//	go func() {
//		for i := range 5 {
//			bb.Put(i)
//		}
//		bb.CloseWrite()
//	}()
//
//	for {
//		v, err := bb.Take()
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		fmt.Println(v)
//	}
package buffer
