package gpusim

import (
	"fmt"
	"sync"

	"github.com/mgarez/redhill"
)

// Surface simulates a swap chain.
//
// With an order set, CurrentSlot reports the backbuffer index the swap
// chain hands out next, advancing through the order on each Present. With
// no order it cannot tell, and the controller falls back to round robin.
type Surface struct {
	mu          sync.Mutex
	order       []int
	pos         int
	presents    int
	backbuffers []string
	presentErr  error
}

var _ redhill.Surface = (*Surface)(nil)

// NewSurface returns a surface with n named backbuffers. order, if given,
// is the backbuffer index sequence the swap chain reports.
func NewSurface(n int, order ...int) *Surface {
	s := &Surface{order: order}
	for i := range n {
		s.backbuffers = append(s.backbuffers, fmt.Sprintf("backbuffer%d", i))
	}
	return s
}

// CurrentSlot returns the next backbuffer index, when an order is set.
func (s *Surface) CurrentSlot() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return 0, false
	}
	return s.order[s.pos%len(s.order)], true
}

// Backbuffer returns the name of backbuffer i, or nil when out of range.
func (s *Surface) Backbuffer(i int) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.backbuffers) {
		return nil
	}
	return s.backbuffers[i]
}

// Present flips the swap chain.
func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presentErr != nil {
		return s.presentErr
	}
	s.presents++
	s.pos++
	return nil
}

// Presents returns the number of successful Present calls.
func (s *Surface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// FailPresent makes every later Present return err.
func (s *Surface) FailPresent(err error) {
	s.mu.Lock()
	s.presentErr = err
	s.mu.Unlock()
}
