package redhill

import "fmt"

// Releaser is a resource whose release must wait until the GPU is done
// with it: an upload buffer, a command allocator, a disposed texture.
type Releaser interface {
	Release() error
}

// ReleaseFunc adapts a function to Releaser.
type ReleaseFunc func() error

// Release calls f.
func (f ReleaseFunc) Release() error { return f() }

// Retire hands r to the current slot. It is released the first time
// AdvanceFrame or Drain observes that the slot's pending fence value has
// completed, which covers the frame being recorded.
//
// Only the current slot is accepted: another slot may already be Idle, and
// r would be released at the next AdvanceFrame while this frame's GPU work
// still uses it. Retire returns ErrWrongSlot in that case.
func (c *FrameSyncController) Retire(slot Slot, r Releaser) error {
	if err := c.usable(); err != nil {
		return err
	}
	if slot.Index < 0 || slot.Index >= len(c.slots) {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot.Index)
	}
	if slot.Index != c.current {
		return fmt.Errorf("%w: retire to slot %d, current is %d", ErrWrongSlot, slot.Index, c.current)
	}
	if r == nil {
		return nil
	}
	rec := &c.slots[slot.Index]
	rec.retired = append(rec.retired, r)
	return nil
}

// Retired returns how many resources are waiting for release on slot i.
// It panics if i is out of range.
func (c *FrameSyncController) Retired(i int) int {
	return len(c.slots[i].retired)
}
