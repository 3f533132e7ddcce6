package session

import (
	"sync/atomic"

	"github.com/haivivi/handoff/pkg/buffer"
)

// stats accumulates buffer events. observe runs under the buffer lock, so
// writers are serialized; atomics only make concurrent reads safe.
type stats struct {
	puts         atomic.Int64
	takes        atomic.Int64
	putWaits     atomic.Int64
	takeWaits    atomic.Int64
	maxOccupancy atomic.Int64
}

func (st *stats) observe(ev buffer.Event) {
	switch ev.Op {
	case buffer.OpPut:
		st.puts.Add(1)
	case buffer.OpTake:
		st.takes.Add(1)
	case buffer.OpPutWait:
		st.putWaits.Add(1)
	case buffer.OpTakeWait:
		st.takeWaits.Add(1)
	}
	if n := int64(ev.Len); n > st.maxOccupancy.Load() {
		st.maxOccupancy.Store(n)
	}
}
