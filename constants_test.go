package redhill_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mgarez/redhill"
	"github.com/mgarez/redhill/internal/gpusim"
)

func TestAlignConstant(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0},
		{1, 256},
		{64, 256},
		{256, 256},
		{257, 512},
	}
	for _, tt := range tests {
		if got := redhill.AlignConstant(tt.in); got != tt.want {
			t.Errorf("AlignConstant(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestConstantRingLayout(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g, redhill.WithSlotCount(3))

	r := redhill.NewConstantRing(c, 80)
	if r.RegionSize() != 256 {
		t.Fatalf("RegionSize() = %d, want 256", r.RegionSize())
	}
	if len(r.Bytes()) != 768 {
		t.Errorf("len(Bytes()) = %d, want 768", len(r.Bytes()))
	}
	if off := r.Offset(redhill.Slot{Index: 2}); off != 512 {
		t.Errorf("Offset(2) = %d, want 512", off)
	}
}

func TestConstantRingRefusesBusySlot(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)
	r := redhill.NewConstantRing(c, 16)

	slot := c.BeginFrame()
	data := []byte("offset=0.25")
	if err := r.Write(slot, data); err != nil {
		t.Fatalf("Write to idle slot: %v", err)
	}
	if !bytes.HasPrefix(r.Region(slot), data) {
		t.Errorf("Region(%d) = %q", slot.Index, r.Region(slot)[:len(data)])
	}
	if err := c.SubmitFrame(slot); err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}
	if err := r.Write(slot, data); !errors.Is(err, redhill.ErrSlotBusy) {
		t.Errorf("Write to submitted slot = %v, want ErrSlotBusy", err)
	}

	if _, err := c.AdvanceFrame(); err != nil {
		t.Fatalf("AdvanceFrame: %v", err)
	}
	// Slot 1's frame, then back to slot 0 after its wait.
	if next := frame(t, c); next.Index != 0 {
		t.Fatalf("frame returned slot %d, want 0", next.Index)
	}
	if err := r.Write(slot, data); err != nil {
		t.Errorf("Write after slot reclaimed: %v", err)
	}
}

func TestConstantRingErrors(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)
	r := redhill.NewConstantRing(c, 16)

	if err := r.Write(redhill.Slot{Index: 2}, nil); !errors.Is(err, redhill.ErrSlotOutOfRange) {
		t.Errorf("Write(slot 2) = %v, want ErrSlotOutOfRange", err)
	}
	if err := r.Write(redhill.Slot{Index: 0}, make([]byte, 257)); !errors.Is(err, redhill.ErrConstantTooLarge) {
		t.Errorf("Write(257 bytes) = %v, want ErrConstantTooLarge", err)
	}
}

// fixedStates reports a fixed slot count with every slot Idle.
type fixedStates int

func (n fixedStates) SlotCount() int { return int(n) }

func (n fixedStates) State(int) redhill.SlotState { return redhill.SlotIdle }

func TestConstantRingSizedByController(t *testing.T) {
	g := gpusim.New(gpusim.ModeOnWait)
	defer g.Stop()
	c := newController(t, g)

	r := redhill.NewConstantRing(c, 16)
	if got, want := len(r.Bytes()), c.SlotCount()*r.RegionSize(); got != want {
		t.Fatalf("len(Bytes()) = %d, want %d", got, want)
	}
	// One past the controller's last slot is rejected, not passed on to State.
	if err := r.Write(redhill.Slot{Index: c.SlotCount()}, []byte{1}); !errors.Is(err, redhill.ErrSlotOutOfRange) {
		t.Errorf("Write(slot %d) = %v, want ErrSlotOutOfRange", c.SlotCount(), err)
	}

	r = redhill.NewConstantRing(fixedStates(4), 16)
	if err := r.Write(redhill.Slot{Index: 3}, []byte{1}); err != nil {
		t.Errorf("Write(slot 3) on a 4-slot ring: %v", err)
	}
}
