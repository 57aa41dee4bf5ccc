package halsync

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"github.com/mgarez/redhill"
)

// slotStates reports a fixed slot count with every slot Idle.
type slotStates int

func (n slotStates) SlotCount() int { return int(n) }

func (n slotStates) State(int) redhill.SlotState { return redhill.SlotIdle }

func TestUniformBufferUploadsSlotRegion(t *testing.T) {
	device, queue := createNoopDevice(t)
	d := New(device, queue)

	ring := redhill.NewConstantRing(slotStates(2), 8)
	ub, err := d.NewUniformBuffer("scene constants", len(ring.Bytes()))
	if err != nil {
		t.Fatalf("NewUniformBuffer: %v", err)
	}
	defer ub.Destroy()

	slot := redhill.Slot{Index: 1}
	data := []byte("frame 42")
	if err := ring.Write(slot, data); err != nil {
		t.Fatalf("ring.Write: %v", err)
	}
	if err := ub.Write(ring.Offset(slot), ring.Region(slot)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	m, err := device.MapBuffer(ub.Buffer(), uint64(ring.Offset(slot)), uint64(len(data)))
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	got := bytes.Clone(unsafe.Slice((*byte)(m.Ptr), len(data)))
	if err := device.UnmapBuffer(ub.Buffer()); err != nil {
		t.Errorf("UnmapBuffer: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("buffer at offset %d = %q, want %q", ring.Offset(slot), got, data)
	}
}

func TestUniformBufferRange(t *testing.T) {
	device, queue := createNoopDevice(t)
	d := New(device, queue)

	if _, err := d.NewUniformBuffer("empty", 0); !errors.Is(err, ErrBufferRange) {
		t.Errorf("NewUniformBuffer(0) = %v, want ErrBufferRange", err)
	}
	ub, err := d.NewUniformBuffer("small", 256)
	if err != nil {
		t.Fatalf("NewUniformBuffer: %v", err)
	}
	defer ub.Destroy()

	tests := []struct {
		name   string
		offset int
		n      int
	}{
		{"negative offset", -1, 1},
		{"past end", 200, 57},
		{"offset at end", 256, 1},
	}
	for _, tt := range tests {
		if err := ub.Write(tt.offset, make([]byte, tt.n)); !errors.Is(err, ErrBufferRange) {
			t.Errorf("%s: Write = %v, want ErrBufferRange", tt.name, err)
		}
	}
	if err := ub.Write(0, make([]byte, 256)); err != nil {
		t.Errorf("Write(full buffer): %v", err)
	}
}
