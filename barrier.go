package redhill

import (
	"fmt"
	"strings"
)

// ResourceState is the usage state a GPU resource is in, as seen by the
// command stream. Values are bit flags so read-only states can be combined.
type ResourceState uint32

const (
	StateCommon              ResourceState = 0
	StateVertexAndConstant   ResourceState = 1 << 0
	StateIndexBuffer         ResourceState = 1 << 1
	StateRenderTarget        ResourceState = 1 << 2
	StatePixelShaderResource ResourceState = 1 << 3
	StateCopyDest            ResourceState = 1 << 4
	StateCopySource          ResourceState = 1 << 5

	// StateGenericRead is the state upload-heap resources live in.
	StateGenericRead = StateVertexAndConstant | StateIndexBuffer | StatePixelShaderResource | StateCopySource

	// StatePresent is the state a backbuffer must be in when presented. It
	// shares its encoding with StateCommon.
	StatePresent = StateCommon
)

var stateNames = []struct {
	bit  ResourceState
	name string
}{
	{StateVertexAndConstant, "VertexAndConstant"},
	{StateIndexBuffer, "IndexBuffer"},
	{StateRenderTarget, "RenderTarget"},
	{StatePixelShaderResource, "PixelShaderResource"},
	{StateCopyDest, "CopyDest"},
	{StateCopySource, "CopySource"},
}

// String returns the state as a |-separated list of flag names.
func (s ResourceState) String() string {
	if s == StateCommon {
		return "Common"
	}
	if s == StateGenericRead {
		return "GenericRead"
	}
	var parts []string
	for _, n := range stateNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ResourceID identifies a tracked resource.
type ResourceID string

// Barrier is a single resource state transition to record before the
// resource is used in its new role.
type Barrier struct {
	Resource ResourceID
	Before   ResourceState
	After    ResourceState
}

func (b Barrier) String() string {
	return fmt.Sprintf("%s: %s -> %s", b.Resource, b.Before, b.After)
}

// StateTracker tracks the current state of resources and produces the
// transition barriers needed to move them between states.
//
// The backbuffer flip of a frame is:
//
//	t.Transition("backbuffer0", redhill.StateRenderTarget) // Present -> RenderTarget
//	// draw
//	t.Transition("backbuffer0", redhill.StatePresent)      // RenderTarget -> Present
//
// and a default-buffer upload is Common -> CopyDest, copy, CopyDest -> Common.
type StateTracker struct {
	states  map[ResourceID]ResourceState
	pending []Barrier
}

// NewStateTracker returns an empty tracker.
func NewStateTracker() *StateTracker {
	return &StateTracker{states: make(map[ResourceID]ResourceState)}
}

// Track starts tracking id in the given initial state. Tracking an already
// tracked resource resets its state.
func (t *StateTracker) Track(id ResourceID, initial ResourceState) {
	t.states[id] = initial
}

// Forget stops tracking id.
func (t *StateTracker) Forget(id ResourceID) {
	delete(t.states, id)
}

// State returns the tracked state of id.
func (t *StateTracker) State(id ResourceID) (ResourceState, bool) {
	s, ok := t.states[id]
	return s, ok
}

// Transition moves id to the state to and queues the barrier. It returns
// ok=false, and queues nothing, when id is already in that state.
func (t *StateTracker) Transition(id ResourceID, to ResourceState) (Barrier, bool, error) {
	from, ok := t.states[id]
	if !ok {
		return Barrier{}, false, fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	if from == to {
		return Barrier{}, false, nil
	}
	b := Barrier{Resource: id, Before: from, After: to}
	t.states[id] = to
	t.pending = append(t.pending, b)
	return b, true, nil
}

// Flush returns the queued barriers in recording order and clears the queue.
func (t *StateTracker) Flush() []Barrier {
	out := t.pending
	t.pending = nil
	return out
}
