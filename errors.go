package redhill

import "errors"

var (
	// ErrInvalidSlotCount is returned by New when the slot count is below one.
	ErrInvalidSlotCount = errors.New("redhill: slot count must be at least 1")

	// ErrNilQueue is returned by New when no submission queue is supplied.
	ErrNilQueue = errors.New("redhill: nil queue")

	// ErrNilFence is returned by New when no completion fence is supplied.
	ErrNilFence = errors.New("redhill: nil fence")

	// ErrWrongSlot is returned by SubmitFrame and Retire for a slot that is
	// not current.
	ErrWrongSlot = errors.New("redhill: slot is not the current frame slot")

	// ErrAlreadySubmitted is returned by SubmitFrame when the current slot was
	// already submitted and AdvanceFrame has not run since.
	ErrAlreadySubmitted = errors.New("redhill: slot already submitted this frame")

	// ErrSlotOutOfRange is returned when a surface reports a backbuffer index
	// outside 0..N-1.
	ErrSlotOutOfRange = errors.New("redhill: slot index out of range")

	// ErrFailed wraps the first fatal collaborator error. Once latched, every
	// operation on the controller returns it.
	ErrFailed = errors.New("redhill: frame loop aborted")

	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("redhill: controller closed")

	// ErrSlotBusy is returned when CPU writes target a slot still owned by the GPU.
	ErrSlotBusy = errors.New("redhill: slot has GPU work in flight")

	// ErrConstantTooLarge is returned when constant data exceeds its region.
	ErrConstantTooLarge = errors.New("redhill: constant data exceeds region size")

	// ErrUnknownResource is returned by StateTracker for untracked resources.
	ErrUnknownResource = errors.New("redhill: resource is not tracked")
)
