// Package vksync binds the frame sync controller to a Vulkan queue through
// vulkan-go.
//
// Vulkan 1.0 has binary fences only, so each signaled value gets its own
// VkFence, submitted with an empty vkQueueSubmit behind the frame's work.
// Completed fences are reset and recycled. The Vulkan code builds with the
// "vulkan" build tag since vulkan-go needs cgo and the Vulkan loader.
package vksync

import (
	"errors"
	"fmt"
)

// ErrNonMonotonic is returned by Signal for a value not above the last
// signaled value.
var ErrNonMonotonic = errors.New("vksync: signal value not increasing")

type mark[F any] struct {
	value uint64
	fence F
}

// tracker keeps signaled values and their fences in submission order and
// recycles the fences once they complete.
type tracker[F any] struct {
	marks     []mark[F]
	free      []F
	signaled  uint64
	completed uint64
}

func (t *tracker[F]) check(value uint64) error {
	if value <= t.signaled {
		return fmt.Errorf("%w: %d after %d", ErrNonMonotonic, value, t.signaled)
	}
	return nil
}

func (t *tracker[F]) push(value uint64, fence F) {
	t.signaled = value
	t.marks = append(t.marks, mark[F]{value: value, fence: fence})
}

// take returns a recycled fence, if any.
func (t *tracker[F]) take() (F, bool) {
	var zero F
	if len(t.free) == 0 {
		return zero, false
	}
	f := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	return f, true
}

// retire pops leading marks whose fence done reports complete and returns
// the completed value. Fences signal in order, so it stops at the first
// incomplete one.
func (t *tracker[F]) retire(done func(F) bool) uint64 {
	n := 0
	for n < len(t.marks) && done(t.marks[n].fence) {
		t.completed = t.marks[n].value
		t.free = append(t.free, t.marks[n].fence)
		n++
	}
	if n > 0 {
		t.marks = append(t.marks[:0], t.marks[n:]...)
	}
	return t.completed
}

// covering returns the fence of the first mark at or above value.
func (t *tracker[F]) covering(value uint64) (F, bool) {
	for _, m := range t.marks {
		if m.value >= value {
			return m.fence, true
		}
	}
	var zero F
	return zero, false
}

// fences returns every fence the tracker owns.
func (t *tracker[F]) fences() []F {
	out := append([]F(nil), t.free...)
	for _, m := range t.marks {
		out = append(out, m.fence)
	}
	return out
}
