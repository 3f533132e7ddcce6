// Package metrics exports prometheus metrics for hand-off sessions.
//
// A Recorder is fed from two places: its Hook observes every buffer
// operation and ObserveReport counts finished sessions. Recorders register
// on a caller-supplied registry, so a process may hold several.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haivivi/handoff/pkg/buffer"
	"github.com/haivivi/handoff/pkg/session"
)

const namespace = "handoff"

// Recorder holds the collectors of one registry.
type Recorder struct {
	sessions  *prometheus.CounterVec
	delivered prometheus.Counter
	ops       *prometheus.CounterVec
	occupancy prometheus.Gauge
	elapsed   prometheus.Histogram
}

// NewRecorder creates the collectors and registers them on reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Count of finished sessions by final state.",
			},
			[]string{"state"},
		),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_delivered_total",
			Help:      "Count of items appended to consumer sinks.",
		}),
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "buffer",
				Name:      "operations_total",
				Help:      "Count of buffer operations, waits included.",
			},
			[]string{"op"},
		),
		occupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "occupancy",
			Help:      "Number of items held by the buffer after the last operation.",
		}),
		elapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of finished sessions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{r.sessions, r.delivered, r.ops, r.occupancy, r.elapsed} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return r, nil
}

// Hook returns a buffer hook that counts operations and tracks occupancy.
func (r *Recorder) Hook() buffer.Hook {
	return func(ev buffer.Event) {
		r.ops.WithLabelValues(ev.Op.String()).Inc()
		r.occupancy.Set(float64(ev.Len))
	}
}

// ObserveReport records a finished session. It fits session.Config.OnFinish.
func (r *Recorder) ObserveReport(rep *session.Report) {
	if rep == nil {
		return
	}
	r.sessions.WithLabelValues(string(rep.State)).Inc()
	r.delivered.Add(float64(rep.Delivered))
	r.elapsed.Observe(rep.Elapsed().Seconds())
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
