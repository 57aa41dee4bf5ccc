package redhill

// DefaultSlotCount is the number of frame slots used when WithSlotCount is
// not given. It matches a double-buffered swap chain.
const DefaultSlotCount = 2

// Policy selects how AdvanceFrame decides whether to wait.
type Policy int

const (
	// PolicyPerSlot tracks one fence value per slot and waits only for the
	// slot about to be reused, letting the CPU run up to N-1 frames ahead.
	PolicyPerSlot Policy = iota

	// PolicySerialized waits for the most recent submission every frame.
	// CPU and GPU never overlap. Useful as a baseline when measuring.
	PolicySerialized
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyPerSlot:
		return "per-slot"
	case PolicySerialized:
		return "serialized"
	default:
		return "unknown"
	}
}

// Option configures a FrameSyncController during creation.
//
// Example:
//
//	ctrl, err := redhill.New(queue, fence,
//	    redhill.WithSlotCount(3),
//	    redhill.WithSurface(swapchain),
//	)
type Option func(*options)

type options struct {
	slots    int
	surface  Surface
	initial  uint64
	policy   Policy
	observer Observer
}

func defaultOptions() options {
	return options{
		slots:  DefaultSlotCount,
		policy: PolicyPerSlot,
	}
}

// WithSlotCount sets the number of frame slots. It should equal the swap
// chain buffer count.
func WithSlotCount(n int) Option {
	return func(o *options) {
		o.slots = n
	}
}

// WithSurface attaches a presentation surface. When the surface can report
// its current backbuffer index, that index overrides round robin.
func WithSurface(s Surface) Option {
	return func(o *options) {
		o.surface = s
	}
}

// WithInitialValue sets the starting fence counter. Every slot's pending
// value starts here, so unused slots never wait. The fence passed to New
// must already report at least this value as completed.
func WithInitialValue(v uint64) Option {
	return func(o *options) {
		o.initial = v
	}
}

// WithPolicy selects the wait policy. The default is PolicyPerSlot.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithObserver registers an observer for frame events. Combine several
// with Observers.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
