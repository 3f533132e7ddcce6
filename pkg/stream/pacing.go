package stream

import (
	"context"
	"math"
	"time"

	"github.com/valyala/fastrand"
)

// Pacing simulates per-item work. After each item the task sleeps for Delay
// plus a uniformly random duration in [0, Jitter).
type Pacing struct {
	Delay  time.Duration
	Jitter time.Duration
}

func (p Pacing) next() time.Duration {
	d := p.Delay
	if p.Jitter > 0 {
		j := min(int64(p.Jitter), math.MaxUint32)
		d += time.Duration(fastrand.Uint32n(uint32(j)))
	}
	return d
}

// Wait sleeps for the next paced duration or until ctx is done.
func (p Pacing) Wait(ctx context.Context) error {
	d := p.next()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
