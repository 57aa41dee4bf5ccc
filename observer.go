package redhill

import "time"

// EventKind identifies a frame-loop event.
type EventKind int

const (
	EventBegin EventKind = iota
	EventSubmit
	EventWaitStart
	EventWaitEnd
	EventAdvance
	EventPresent
	EventDrain
)

var eventKindNames = [...]string{
	EventBegin:     "begin",
	EventSubmit:    "submit",
	EventWaitStart: "wait-start",
	EventWaitEnd:   "wait-end",
	EventAdvance:   "advance",
	EventPresent:   "present",
	EventDrain:     "drain",
}

// String returns the event kind name.
func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event describes one step of the frame loop.
type Event struct {
	Kind EventKind

	// Slot is the slot the event applies to.
	Slot int

	// Value is the fence value involved: the value signaled for EventSubmit
	// and EventDrain, the value waited on for EventWaitStart/EventWaitEnd.
	Value uint64

	// Completed is the fence completion reported when the event fired.
	Completed uint64

	// At is the wall-clock time of the event.
	At time.Time

	// Wait is the time spent blocked, set on EventWaitEnd and EventDrain.
	Wait time.Duration

	// InFlight is the number of slots in the Submitted state after the event.
	InFlight int
}

// Observer receives frame-loop events. Observe runs on the frame-loop
// goroutine and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans events out to several observers in order. Nil entries are
// skipped.
func Observers(obs ...Observer) Observer {
	list := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return multiObserver(list)
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}
