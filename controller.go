package redhill

import (
	"errors"
	"fmt"
	"time"
)

// Stats summarizes controller activity.
type Stats struct {
	// Frames is the number of successful SubmitFrame calls.
	Frames uint64

	// Waits is the number of times AdvanceFrame or Drain blocked on the fence.
	Waits uint64

	// WaitTime is the total time spent blocked.
	WaitTime time.Duration

	// Drains is the number of completed Drain calls.
	Drains uint64

	// ReleaseErrors counts deferred releases that returned an error.
	ReleaseErrors uint64
}

// FrameSyncController paces a frame loop against the GPU.
//
// It owns one pending fence value per frame slot and guarantees the CPU never
// begins recording into a slot whose previous GPU work has not completed,
// while letting the CPU run up to N-1 frames ahead.
//
// A typical loop:
//
//	slot := ctrl.BeginFrame()
//	// record commands for slot
//	if err := ctrl.SubmitFrame(slot, cmds); err != nil {
//	    return err
//	}
//	if err := ctrl.Present(); err != nil {
//	    return err
//	}
//	if _, err := ctrl.AdvanceFrame(); err != nil {
//	    return err
//	}
//
// FrameSyncController is not safe for concurrent use. A single goroutine
// drives it; the GPU is the only concurrent party.
type FrameSyncController struct {
	queue    Queue
	fence    Fence
	surface  Surface
	policy   Policy
	observer Observer

	slots   []slotRecord
	current int

	// value is the last fence value handed to Queue.Signal.
	value uint64

	err    error
	closed bool
	stats  Stats
}

// New creates a controller over the given submission queue and fence.
//
// All slots start Idle with a pending value equal to the initial counter, so
// the first N frames never wait.
func New(queue Queue, fence Fence, opts ...Option) (*FrameSyncController, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	if fence == nil {
		return nil, ErrNilFence
	}
	if o.slots < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSlotCount, o.slots)
	}

	c := &FrameSyncController{
		queue:    queue,
		fence:    fence,
		surface:  o.surface,
		policy:   o.policy,
		observer: o.observer,
		slots:    make([]slotRecord, o.slots),
		value:    o.initial,
	}
	for i := range c.slots {
		c.slots[i].pending = o.initial
	}
	if c.surface != nil {
		if idx, ok := c.surface.CurrentSlot(); ok {
			if idx < 0 || idx >= len(c.slots) {
				return nil, fmt.Errorf("%w: surface reported %d of %d", ErrSlotOutOfRange, idx, len(c.slots))
			}
			c.current = idx
		}
	}

	Logger().Info("redhill: frame sync controller created",
		"slots", len(c.slots),
		"policy", c.policy.String(),
		"initial", o.initial,
		"surface", c.surface != nil)
	return c, nil
}

// SlotCount returns N, the number of frame slots.
func (c *FrameSyncController) SlotCount() int { return len(c.slots) }

// Current returns the index of the slot the CPU is recording into.
func (c *FrameSyncController) Current() int { return c.current }

// FenceValue returns the last fence value signaled.
func (c *FrameSyncController) FenceValue() uint64 { return c.value }

// PendingValue returns the fence value slot i must reach before reuse.
// It panics if i is not in 0..SlotCount()-1, like State and Retired.
func (c *FrameSyncController) PendingValue(i int) uint64 { return c.slots[i].pending }

// State returns the synchronization state of slot i. It panics if i is
// out of range.
func (c *FrameSyncController) State(i int) SlotState { return c.slots[i].state }

// Stats returns a snapshot of controller counters.
func (c *FrameSyncController) Stats() Stats { return c.stats }

// Err returns the latched fatal error, or nil.
func (c *FrameSyncController) Err() error { return c.err }

// BeginFrame returns the slot to record into. It never blocks: the slot was
// made safe to reuse by the wait in the preceding AdvanceFrame.
func (c *FrameSyncController) BeginFrame() Slot {
	s := c.slot(c.current)
	c.emit(Event{Kind: EventBegin, Slot: s.Index, Value: c.slots[s.Index].pending})
	return s
}

// SubmitFrame executes the recorded batches for slot, increments the fence
// counter and asks the queue to signal the new value. It records the value
// as the slot's pending value and returns without waiting.
//
// Queue failures are fatal: the error is latched and returned by every
// subsequent call.
func (c *FrameSyncController) SubmitFrame(slot Slot, batches ...CommandBatch) error {
	if err := c.usable(); err != nil {
		return err
	}
	if slot.Index != c.current {
		return fmt.Errorf("%w: got %d, current %d", ErrWrongSlot, slot.Index, c.current)
	}
	rec := &c.slots[slot.Index]
	if rec.submitted {
		return fmt.Errorf("%w: slot %d", ErrAlreadySubmitted, slot.Index)
	}

	if len(batches) > 0 {
		if err := c.queue.Execute(batches...); err != nil {
			return c.fail(fmt.Errorf("execute slot %d: %w", slot.Index, err))
		}
	}
	v := c.value + 1
	if err := c.queue.Signal(v); err != nil {
		return c.fail(fmt.Errorf("signal %d: %w", v, err))
	}
	c.value = v
	rec.pending = v
	rec.state = SlotSubmitted
	rec.submitted = true
	c.stats.Frames++

	Logger().Debug("redhill: frame submitted", "slot", slot.Index, "value", v)
	c.emit(Event{Kind: EventSubmit, Slot: slot.Index, Value: v})
	return nil
}

// Present flips the surface. It is a no-op when no surface is attached.
func (c *FrameSyncController) Present() error {
	if err := c.usable(); err != nil {
		return err
	}
	if c.surface == nil {
		return nil
	}
	if err := c.surface.Present(); err != nil {
		return c.fail(fmt.Errorf("present slot %d: %w", c.current, err))
	}
	c.emit(Event{Kind: EventPresent, Slot: c.current, Value: c.slots[c.current].pending})
	return nil
}

// AdvanceFrame moves to the next slot and blocks until the GPU has finished
// the work previously recorded for it.
//
// The next slot comes from the surface when it reports its current
// backbuffer, otherwise from round robin. Under PolicySerialized the wait
// covers the most recent submission instead of the next slot's.
//
// Resources retired to slots that are found complete are released here.
// Release failures are logged and counted but do not abort the frame loop.
func (c *FrameSyncController) AdvanceFrame() (Slot, error) {
	if err := c.usable(); err != nil {
		return Slot{}, err
	}

	next := (c.current + 1) % len(c.slots)
	if c.surface != nil {
		if idx, ok := c.surface.CurrentSlot(); ok {
			if idx < 0 || idx >= len(c.slots) {
				return Slot{}, c.fail(fmt.Errorf("%w: surface reported %d of %d", ErrSlotOutOfRange, idx, len(c.slots)))
			}
			next = idx
		}
	}

	target := c.slots[next].pending
	if c.policy == PolicySerialized {
		target = c.value
	}
	completed, err := c.waitFor(next, target)
	if err != nil {
		return Slot{}, err
	}

	if err := c.reclaim(completed); err != nil {
		Logger().Warn("redhill: deferred release failed", "slot", next, "error", err)
	}
	c.slots[next].submitted = false
	c.current = next

	s := c.slot(next)
	c.emit(Event{Kind: EventAdvance, Slot: next, Value: c.slots[next].pending, Completed: completed})
	return s, nil
}

// Drain signals one more fence value and blocks until the GPU reaches it.
// Afterwards no GPU work is in flight, every slot is Idle and every retired
// resource has been released. Release errors are joined and returned.
func (c *FrameSyncController) Drain() error {
	if err := c.usable(); err != nil {
		return err
	}
	v := c.value + 1
	if err := c.queue.Signal(v); err != nil {
		return c.fail(fmt.Errorf("drain signal %d: %w", v, err))
	}
	c.value = v

	start := time.Now()
	completed, err := c.waitFor(c.current, v)
	if err != nil {
		return err
	}
	relErr := c.reclaim(completed)
	c.stats.Drains++

	Logger().Info("redhill: drained", "value", v, "completed", completed)
	c.emit(Event{Kind: EventDrain, Slot: c.current, Value: v, Completed: completed, Wait: time.Since(start)})
	return relErr
}

// Close drains the GPU and releases everything retired to the slots.
// Close is idempotent. After a fatal error it returns that error without
// releasing anything, since the GPU may still reference the resources.
func (c *FrameSyncController) Close() error {
	if c.closed {
		return nil
	}
	if c.err != nil {
		c.closed = true
		return c.err
	}
	err := c.Drain()
	c.closed = true
	Logger().Info("redhill: controller closed", "frames", c.stats.Frames, "waits", c.stats.Waits)
	return err
}

// waitFor blocks until the fence reaches target and returns the completed
// value observed afterwards.
func (c *FrameSyncController) waitFor(slot int, target uint64) (uint64, error) {
	completed := c.fence.Completed()
	if completed >= target {
		return completed, nil
	}

	c.emit(Event{Kind: EventWaitStart, Slot: slot, Value: target, Completed: completed})
	start := time.Now()
	if err := c.fence.Wait(target); err != nil {
		return 0, c.fail(fmt.Errorf("wait %d: %w", target, err))
	}
	waited := time.Since(start)
	c.stats.Waits++
	c.stats.WaitTime += waited

	completed = max(c.fence.Completed(), target)
	Logger().Debug("redhill: waited for GPU", "slot", slot, "value", target, "wait", waited)
	c.emit(Event{Kind: EventWaitEnd, Slot: slot, Value: target, Completed: completed, Wait: waited})
	return completed, nil
}

// reclaim moves every submitted slot whose pending value is covered by
// completed back to Idle and releases what was retired to it.
func (c *FrameSyncController) reclaim(completed uint64) error {
	var errs []error
	for i := range c.slots {
		rec := &c.slots[i]
		if rec.pending > completed {
			continue
		}
		rec.state = SlotIdle
		for j, r := range rec.retired {
			if err := r.Release(); err != nil {
				c.stats.ReleaseErrors++
				errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
			}
			rec.retired[j] = nil
		}
		rec.retired = rec.retired[:0]
	}
	return errors.Join(errs...)
}

func (c *FrameSyncController) usable() error {
	if c.closed {
		return ErrClosed
	}
	return c.err
}

func (c *FrameSyncController) fail(err error) error {
	c.err = fmt.Errorf("%w: %w", ErrFailed, err)
	Logger().Error("redhill: fatal GPU synchronization failure", "error", err)
	return c.err
}

func (c *FrameSyncController) slot(i int) Slot {
	s := Slot{Index: i}
	if c.surface != nil {
		s.Backbuffer = c.surface.Backbuffer(i)
	}
	return s
}

func (c *FrameSyncController) inFlight() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].state == SlotSubmitted {
			n++
		}
	}
	return n
}

func (c *FrameSyncController) emit(e Event) {
	if c.observer == nil {
		return
	}
	e.At = time.Now()
	e.InFlight = c.inFlight()
	c.observer.Observe(e)
}
