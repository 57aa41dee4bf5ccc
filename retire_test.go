package redhill_test

import (
	"errors"
	"testing"

	"github.com/mgarez/redhill"
	"github.com/mgarez/redhill/internal/gpusim"
)

type counter struct {
	released int
	err      error
}

func (c *counter) Release() error {
	c.released++
	return c.err
}

func TestRetireReleasedAfterSlotWait(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)

	upload := &counter{}
	slot := c.BeginFrame()
	if err := c.Retire(slot, upload); err != nil {
		t.Fatalf("Retire: %v", err)
	}
	if err := c.SubmitFrame(slot); err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}
	if _, err := c.AdvanceFrame(); err != nil {
		t.Fatalf("AdvanceFrame: %v", err)
	}
	// Slot 0's work (value 1) has not been waited on yet.
	if upload.released != 0 {
		t.Fatalf("released while GPU work in flight")
	}
	if c.Retired(0) != 1 {
		t.Errorf("Retired(0) = %d, want 1", c.Retired(0))
	}

	frame(t, c) // waits for value 1 before returning to slot 0
	if upload.released != 1 {
		t.Errorf("released = %d, want 1", upload.released)
	}
	if c.Retired(0) != 0 {
		t.Errorf("Retired(0) = %d after release", c.Retired(0))
	}
}

func TestRetireReleaseErrors(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)

	bad := errors.New("double free")
	slot := c.BeginFrame()
	_ = c.Retire(slot, &counter{err: bad})
	_ = c.Retire(slot, redhill.ReleaseFunc(func() error { return nil }))
	_ = c.Retire(slot, nil)
	if c.Retired(0) != 2 {
		t.Fatalf("Retired(0) = %d, want 2", c.Retired(0))
	}
	if err := c.SubmitFrame(slot); err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}

	if err := c.Drain(); !errors.Is(err, bad) {
		t.Errorf("Drain = %v, want release error", err)
	}
	if c.Stats().ReleaseErrors != 1 {
		t.Errorf("ReleaseErrors = %d, want 1", c.Stats().ReleaseErrors)
	}
	// Release failures are not fatal.
	if c.Err() != nil {
		t.Errorf("Err() = %v", c.Err())
	}
}

func TestRetireOutOfRange(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)

	if err := c.Retire(redhill.Slot{Index: 5}, &counter{}); !errors.Is(err, redhill.ErrSlotOutOfRange) {
		t.Errorf("Retire(5) = %v, want ErrSlotOutOfRange", err)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g, redhill.WithSlotCount(3))

	res := make([]*counter, 3)
	for i := range res {
		res[i] = &counter{}
		slot := c.BeginFrame()
		_ = c.Retire(slot, res[i])
		if err := c.SubmitFrame(slot); err != nil {
			t.Fatalf("SubmitFrame: %v", err)
		}
		if i < 2 {
			if _, err := c.AdvanceFrame(); err != nil {
				t.Fatalf("AdvanceFrame: %v", err)
			}
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i, r := range res {
		if r.released != 1 {
			t.Errorf("resource %d released %d times, want 1", i, r.released)
		}
	}
}

func TestRetireRejectsOtherSlot(t *testing.T) {
	g := gpusim.New(gpusim.ModeManual)
	defer g.Stop()
	c := newController(t, g)

	upload := &counter{}
	slot := c.BeginFrame()
	err := c.Retire(redhill.Slot{Index: 1}, upload)
	if !errors.Is(err, redhill.ErrWrongSlot) {
		t.Fatalf("Retire(slot 1) while slot 0 is current = %v, want ErrWrongSlot", err)
	}
	if c.Retired(1) != 0 {
		t.Fatalf("Retired(1) = %d, want 0", c.Retired(1))
	}

	if err := c.Retire(slot, upload); err != nil {
		t.Fatalf("Retire(current): %v", err)
	}
	if err := c.SubmitFrame(slot); err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}
	// Slot 1 is idle, so advancing does not wait for frame value 1.
	if _, err := c.AdvanceFrame(); err != nil {
		t.Fatalf("AdvanceFrame: %v", err)
	}
	if upload.released != 0 {
		t.Errorf("released while GPU completed=%d < frame value %d", g.Completed(), c.PendingValue(0))
	}
}

func TestRetireAfterSubmitWaitsForFrame(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)

	slot := c.BeginFrame()
	if err := c.SubmitFrame(slot); err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}
	late := &counter{}
	if err := c.Retire(slot, late); err != nil {
		t.Fatalf("Retire after SubmitFrame: %v", err)
	}
	if _, err := c.AdvanceFrame(); err != nil {
		t.Fatalf("AdvanceFrame: %v", err)
	}
	if late.released != 0 {
		t.Fatal("released before slot 0's frame completed")
	}
	frame(t, c)
	if late.released != 1 {
		t.Errorf("released = %d, want 1", late.released)
	}
}

func TestSlotAccessorsPanicOutOfRange(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)

	tests := []struct {
		name string
		fn   func()
	}{
		{"PendingValue", func() { c.PendingValue(2) }},
		{"State", func() { c.State(-1) }},
		{"Retired", func() { c.Retired(2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic on an out-of-range slot", tt.name)
				}
			}()
			tt.fn()
		})
	}
}
