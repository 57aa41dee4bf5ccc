// Package timeline records frame-loop events and renders them as a PNG
// chart: per slot, when the CPU recorded into it and when the GPU was
// working on it, plus the intervals the CPU spent blocked on the fence.
package timeline

import (
	"sync"
	"time"

	"github.com/mgarez/redhill"
)

// SpanKind classifies a timeline span.
type SpanKind int

const (
	// SpanCPU is the CPU recording a frame: BeginFrame to SubmitFrame.
	SpanCPU SpanKind = iota

	// SpanGPU is a frame's GPU work: SubmitFrame until its fence value was
	// first observed complete.
	SpanGPU

	// SpanWait is the CPU blocked on the fence.
	SpanWait
)

func (k SpanKind) String() string {
	switch k {
	case SpanCPU:
		return "cpu"
	case SpanGPU:
		return "gpu"
	case SpanWait:
		return "wait"
	default:
		return "unknown"
	}
}

// Span is one interval on the timeline.
type Span struct {
	Kind  SpanKind
	Slot  int
	Value uint64
	Start time.Time
	End   time.Time
}

// Recorder is a redhill.Observer that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []redhill.Event
}

var _ redhill.Observer = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Observe implements redhill.Observer.
func (r *Recorder) Observe(e redhill.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []redhill.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]redhill.Event(nil), r.events...)
}

// Spans derives the timeline spans from the recorded events. Spans still
// open at the last event end there.
func (r *Recorder) Spans() []Span {
	events := r.Events()
	if len(events) == 0 {
		return nil
	}

	var spans []Span
	cpu, wait := -1, -1 // indexes of the open CPU and wait spans
	var gpu []int       // open GPU spans, in value order
	for _, e := range events {
		switch e.Kind {
		case redhill.EventBegin:
			if cpu < 0 {
				spans = append(spans, Span{Kind: SpanCPU, Slot: e.Slot, Start: e.At})
				cpu = len(spans) - 1
			}
		case redhill.EventSubmit:
			if cpu >= 0 {
				spans[cpu].End = e.At
				spans[cpu].Value = e.Value
				cpu = -1
			}
			spans = append(spans, Span{Kind: SpanGPU, Slot: e.Slot, Value: e.Value, Start: e.At})
			gpu = append(gpu, len(spans)-1)
		case redhill.EventWaitStart:
			spans = append(spans, Span{Kind: SpanWait, Slot: e.Slot, Value: e.Value, Start: e.At})
			wait = len(spans) - 1
		case redhill.EventWaitEnd:
			if wait >= 0 {
				spans[wait].End = e.At
				wait = -1
			}
		}
		// Close every GPU span whose value the event reports complete.
		n := 0
		for n < len(gpu) && spans[gpu[n]].Value <= e.Completed {
			spans[gpu[n]].End = e.At
			n++
		}
		gpu = gpu[n:]
	}

	last := events[len(events)-1].At
	for i := range spans {
		if spans[i].End.IsZero() {
			spans[i].End = last
		}
	}
	return spans
}
