// Package metrics exports frame-loop activity as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mgarez/redhill"
)

// Collector is a redhill.Observer that updates Prometheus metrics.
type Collector struct {
	frames   prometheus.Counter
	presents prometheus.Counter
	waits    *prometheus.CounterVec
	waitTime prometheus.Histogram
	drains   prometheus.Counter
	inFlight prometheus.Gauge
	fence    *prometheus.GaugeVec
}

var _ redhill.Observer = (*Collector)(nil)

// New creates the metrics and registers them on reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		frames: f.NewCounter(prometheus.CounterOpts{
			Name: "redhill_frames_submitted_total",
			Help: "Frames submitted to the GPU queue",
		}),
		presents: f.NewCounter(prometheus.CounterOpts{
			Name: "redhill_presents_total",
			Help: "Surface presents",
		}),
		waits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redhill_fence_waits_total",
				Help: "Times the CPU blocked on the frame fence, by slot",
			},
			[]string{"slot"},
		),
		waitTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "redhill_fence_wait_seconds",
			Help:    "Time the CPU spent blocked on the frame fence",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		drains: f.NewCounter(prometheus.CounterOpts{
			Name: "redhill_drains_total",
			Help: "Full GPU drains",
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "redhill_frames_in_flight",
			Help: "Slots with submitted work not yet observed complete",
		}),
		fence: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redhill_fence_value",
				Help: "Fence values by kind: signaled or completed",
			},
			[]string{"kind"},
		),
	}
}

// Observe implements redhill.Observer.
func (c *Collector) Observe(e redhill.Event) {
	c.inFlight.Set(float64(e.InFlight))
	switch e.Kind {
	case redhill.EventSubmit:
		c.frames.Inc()
		c.fence.WithLabelValues("signaled").Set(float64(e.Value))
	case redhill.EventPresent:
		c.presents.Inc()
	case redhill.EventWaitEnd:
		c.waits.WithLabelValues(strconv.Itoa(e.Slot)).Inc()
		c.waitTime.Observe(e.Wait.Seconds())
		c.fence.WithLabelValues("completed").Set(float64(e.Completed))
	case redhill.EventAdvance:
		c.fence.WithLabelValues("completed").Set(float64(e.Completed))
	case redhill.EventDrain:
		c.drains.Inc()
		c.fence.WithLabelValues("signaled").Set(float64(e.Value))
		c.fence.WithLabelValues("completed").Set(float64(e.Completed))
	}
}
