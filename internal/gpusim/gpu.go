// Package gpusim simulates a GPU command queue, fence and swap chain for
// exercising the frame loop without graphics hardware.
package gpusim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mgarez/redhill"
)

var (
	// ErrStopped is returned by Wait when the GPU is stopped before the
	// value completes.
	ErrStopped = errors.New("gpusim: gpu stopped")

	// ErrNonMonotonic is returned by Signal for a value not above the last
	// signaled value.
	ErrNonMonotonic = errors.New("gpusim: signal value not increasing")
)

// Mode selects how the simulated GPU makes progress.
type Mode int

const (
	// ModeTimed runs a background executor that spends each batch's cost in
	// real time before moving on.
	ModeTimed Mode = iota

	// ModeOnWait completes work only when Wait is called, and then exactly
	// up to the value waited for. Fully deterministic on one goroutine.
	ModeOnWait

	// ModeManual completes work only through Step and CompleteThrough. Wait
	// blocks until another goroutine makes progress.
	ModeManual
)

// Work is a command batch with an explicit GPU cost.
type Work time.Duration

type opKind int

const (
	opBatch opKind = iota
	opSignal
)

type op struct {
	kind  opKind
	value uint64
	cost  time.Duration
}

// GPU is a simulated command queue and fence. It implements redhill.Queue
// and redhill.Fence.
type GPU struct {
	mode    Mode
	latency time.Duration

	mu        sync.Mutex
	cond      *sync.Cond
	ops       []op
	signaled  uint64
	completed uint64
	executed  int
	waits     []uint64
	stopped   bool

	signalErr error
	waitErr   error
	execErr   error

	done chan struct{}
}

var (
	_ redhill.Queue = (*GPU)(nil)
	_ redhill.Fence = (*GPU)(nil)
)

// Option configures a GPU.
type Option func(*GPU)

// WithLatency sets the cost of batches that are not Work values.
func WithLatency(d time.Duration) Option {
	return func(g *GPU) {
		g.latency = d
	}
}

// WithInitialValue starts the fence at v, as if v values had already
// been signaled and completed.
func WithInitialValue(v uint64) Option {
	return func(g *GPU) {
		g.signaled = v
		g.completed = v
	}
}

// New creates a simulated GPU. In ModeTimed a background executor is
// started; call Stop to end it.
func New(mode Mode, opts ...Option) *GPU {
	g := &GPU{
		mode: mode,
		done: make(chan struct{}),
	}
	g.cond = sync.NewCond(&g.mu)
	for _, opt := range opts {
		opt(g)
	}
	if mode == ModeTimed {
		go g.run()
	} else {
		close(g.done)
	}
	return g
}

// Execute queues batches for execution.
func (g *GPU) Execute(batches ...redhill.CommandBatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return ErrStopped
	}
	if g.execErr != nil {
		return g.execErr
	}
	for _, b := range batches {
		cost := g.latency
		if w, ok := b.(Work); ok {
			cost = time.Duration(w)
		}
		g.ops = append(g.ops, op{kind: opBatch, cost: cost})
	}
	g.cond.Broadcast()
	return nil
}

// Signal queues a fence signal behind all previously executed batches.
func (g *GPU) Signal(value uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return ErrStopped
	}
	if g.signalErr != nil {
		return g.signalErr
	}
	if value <= g.signaled {
		return fmt.Errorf("%w: %d after %d", ErrNonMonotonic, value, g.signaled)
	}
	g.signaled = value
	g.ops = append(g.ops, op{kind: opSignal, value: value})
	g.cond.Broadcast()
	return nil
}

// Completed returns the highest fence value the GPU has reached.
func (g *GPU) Completed() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completed
}

// Wait blocks until the fence reaches value.
func (g *GPU) Wait(value uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.waits = append(g.waits, value)
	if g.waitErr != nil {
		return g.waitErr
	}
	if g.mode == ModeOnWait {
		g.completeThrough(value)
	}
	for g.completed < value {
		if g.stopped {
			return fmt.Errorf("%w: waiting for %d, completed %d", ErrStopped, value, g.completed)
		}
		g.cond.Wait()
	}
	return nil
}

// Step executes the next queued operation. It returns false when the
// queue is empty. Only meaningful in ModeManual and ModeOnWait.
func (g *GPU) Step() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ops) == 0 {
		return false
	}
	g.apply(g.pop())
	return true
}

// CompleteThrough executes queued operations until the fence reaches value
// or the queue is empty.
func (g *GPU) CompleteThrough(value uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completeThrough(value)
}

// Stop halts the GPU. Pending waits return ErrStopped; queued work is
// abandoned.
func (g *GPU) Stop() {
	g.mu.Lock()
	g.stopped = true
	g.cond.Broadcast()
	g.mu.Unlock()
	<-g.done
}

// Waits returns every value passed to Wait, in call order.
func (g *GPU) Waits() []uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uint64(nil), g.waits...)
}

// Executed returns the number of batches the GPU has finished.
func (g *GPU) Executed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.executed
}

// Signaled returns the last value passed to Signal.
func (g *GPU) Signaled() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.signaled
}

// Pending returns the number of queued operations not yet executed.
func (g *GPU) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ops)
}

// FailExecute makes every later Execute return err.
func (g *GPU) FailExecute(err error) { g.inject(&g.execErr, err) }

// FailSignal makes every later Signal return err.
func (g *GPU) FailSignal(err error) { g.inject(&g.signalErr, err) }

// FailWait makes every later Wait return err.
func (g *GPU) FailWait(err error) { g.inject(&g.waitErr, err) }

func (g *GPU) inject(dst *error, err error) {
	g.mu.Lock()
	*dst = err
	g.mu.Unlock()
}

func (g *GPU) completeThrough(value uint64) {
	for g.completed < value && len(g.ops) > 0 {
		g.apply(g.pop())
	}
}

func (g *GPU) pop() op {
	o := g.ops[0]
	g.ops = g.ops[1:]
	return o
}

// apply runs o with g.mu held.
func (g *GPU) apply(o op) {
	switch o.kind {
	case opBatch:
		g.executed++
	case opSignal:
		g.completed = o.value
		g.cond.Broadcast()
	}
}

// run is the ModeTimed executor.
func (g *GPU) run() {
	defer close(g.done)
	log := redhill.Logger()
	for {
		g.mu.Lock()
		for len(g.ops) == 0 && !g.stopped {
			g.cond.Wait()
		}
		if g.stopped {
			g.mu.Unlock()
			return
		}
		o := g.pop()
		g.mu.Unlock()

		if o.kind == opBatch && o.cost > 0 {
			time.Sleep(o.cost)
		}

		g.mu.Lock()
		g.apply(o)
		if o.kind == opSignal {
			log.Debug("gpusim: fence reached", "value", o.value)
		}
		g.mu.Unlock()
	}
}
