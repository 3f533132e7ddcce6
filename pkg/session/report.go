package session

import (
	"errors"
	"time"
)

// Report summarizes a session. Puts and Takes count every buffer operation,
// end-of-stream markers included, so a successful single-pair session over N
// items reports N+1 of each.
type Report struct {
	ID           string       `json:"id" yaml:"id"`
	State        State        `json:"state" yaml:"state"`
	Capacity     int          `json:"capacity" yaml:"capacity"`
	Producers    int          `json:"producers" yaml:"producers"`
	Consumers    int          `json:"consumers" yaml:"consumers"`
	Delivered    int          `json:"delivered" yaml:"delivered"`
	Puts         int          `json:"puts" yaml:"puts"`
	Takes        int          `json:"takes" yaml:"takes"`
	PutWaits     int          `json:"put_waits" yaml:"put_waits"`
	TakeWaits    int          `json:"take_waits" yaml:"take_waits"`
	MaxOccupancy int          `json:"max_occupancy" yaml:"max_occupancy"`
	StartedAt    time.Time    `json:"started_at" yaml:"started_at"`
	ElapsedMS    int64        `json:"elapsed_ms" yaml:"elapsed_ms"`
	FailedTask   string       `json:"failed_task,omitempty" yaml:"failed_task,omitempty"`
	Error        string       `json:"error,omitempty" yaml:"error,omitempty"`
	Transitions  []Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// Elapsed returns the wall time of the session.
func (r *Report) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMS) * time.Millisecond
}

// Report returns a snapshot of the session report.
func (s *Session) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Report{
		ID:           s.id,
		State:        s.State(),
		Capacity:     s.cfg.Capacity,
		Producers:    s.producers,
		Consumers:    s.cfg.Consumers,
		Delivered:    s.delivered,
		Puts:         int(s.stats.puts.Load()),
		Takes:        int(s.stats.takes.Load()),
		PutWaits:     int(s.stats.putWaits.Load()),
		TakeWaits:    int(s.stats.takeWaits.Load()),
		MaxOccupancy: int(s.stats.maxOccupancy.Load()),
		StartedAt:    s.startedAt,
		Transitions:  s.transitions.Items(),
	}
	if !s.startedAt.IsZero() {
		end := s.finishedAt
		if end.IsZero() {
			end = time.Now()
		}
		r.ElapsedMS = end.Sub(s.startedAt).Milliseconds()
	}
	if s.err != nil {
		r.Error = s.err.Error()
		var tf *TaskFailure
		if errors.As(s.err, &tf) {
			r.FailedTask = tf.Task
		}
	}
	return r
}
