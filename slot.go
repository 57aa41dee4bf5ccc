package redhill

import "fmt"

// Slot identifies one of the N rotating frame slots.
type Slot struct {
	// Index is the slot position in 0..N-1.
	Index int

	// Backbuffer is the surface image bound to this slot, if a Surface is
	// attached. It is owned by the surface.
	Backbuffer any
}

// SlotState is the synchronization state of a slot.
type SlotState int

const (
	// SlotIdle means the GPU has finished all work recorded for the slot.
	SlotIdle SlotState = iota

	// SlotSubmitted means work was signaled for the slot and completion has
	// not yet been observed by AdvanceFrame or Drain.
	SlotSubmitted
)

// String returns the state name.
func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "Idle"
	case SlotSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// slotRecord is the controller-side bookkeeping of one slot.
type slotRecord struct {
	pending   uint64
	state     SlotState
	submitted bool // submitted during the current occupancy
	retired   []Releaser
}
