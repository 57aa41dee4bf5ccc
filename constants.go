package redhill

import "fmt"

// ConstantAlignment is the required size alignment of a constant buffer
// view.
const ConstantAlignment = 256

// AlignConstant rounds n up to a multiple of ConstantAlignment.
func AlignConstant(n int) int {
	return (n + ConstantAlignment - 1) &^ (ConstantAlignment - 1)
}

// SlotStater reports slot synchronization state. FrameSyncController
// implements it.
type SlotStater interface {
	SlotCount() int
	State(i int) SlotState
}

// ConstantRing is a persistently mapped constant buffer split into one
// aligned region per frame slot. The CPU may only write the region of a
// slot that is Idle; writing a slot still owned by the GPU would corrupt the
// frame being rendered.
type ConstantRing struct {
	states SlotStater
	region int
	data   []byte
}

// NewConstantRing allocates one region of AlignConstant(size) bytes for
// each slot states reports.
func NewConstantRing(states SlotStater, size int) *ConstantRing {
	region := AlignConstant(max(size, 1))
	return &ConstantRing{
		states: states,
		region: region,
		data:   make([]byte, region*states.SlotCount()),
	}
}

// RegionSize returns the aligned size of one slot's region.
func (r *ConstantRing) RegionSize() int { return r.region }

// Offset returns the byte offset of slot's region, the value a constant
// buffer view for that slot points at.
func (r *ConstantRing) Offset(slot Slot) int { return slot.Index * r.region }

// Write copies data into slot's region. Bytes past len(data) are left as
// they were.
func (r *ConstantRing) Write(slot Slot, data []byte) error {
	if slot.Index < 0 || (slot.Index+1)*r.region > len(r.data) {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, slot.Index)
	}
	if len(data) > r.region {
		return fmt.Errorf("%w: %d > %d", ErrConstantTooLarge, len(data), r.region)
	}
	if r.states.State(slot.Index) != SlotIdle {
		return fmt.Errorf("%w: slot %d", ErrSlotBusy, slot.Index)
	}
	copy(r.data[r.Offset(slot):], data)
	return nil
}

// Region returns slot's region of the mapped buffer. It panics if slot is
// out of range.
func (r *ConstantRing) Region(slot Slot) []byte {
	off := r.Offset(slot)
	return r.data[off : off+r.region]
}

// Bytes returns the whole mapped buffer, for uploading to the GPU.
func (r *ConstantRing) Bytes() []byte { return r.data }
