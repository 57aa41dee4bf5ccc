package halsync

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrBufferRange is returned by UniformBuffer.Write for data that does not
// fit the buffer at the given offset.
var ErrBufferRange = errors.New("halsync: write outside buffer")

// UniformBuffer is a GPU constant buffer filled through hal.Queue.WriteBuffer.
// Pair it with a redhill.ConstantRing of the same size and upload one slot's
// region per frame.
type UniformBuffer struct {
	device *Device
	buffer hal.Buffer
	size   uint64
}

// NewUniformBuffer creates a uniform buffer of size bytes.
func (d *Device) NewUniformBuffer(label string, size int) (*UniformBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrBufferRange, size)
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("halsync: create buffer %q: %w", label, err)
	}
	return &UniformBuffer{device: d, buffer: buf, size: uint64(size)}, nil
}

// Buffer returns the underlying HAL buffer, for binding.
func (b *UniformBuffer) Buffer() hal.Buffer { return b.buffer }

// Write copies data into the buffer at offset. The write is ordered before
// any later submission on the queue.
func (b *UniformBuffer) Write(offset int, data []byte) error {
	if offset < 0 || uint64(offset)+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: %d bytes at %d, size %d", ErrBufferRange, len(data), offset, b.size)
	}
	if err := b.device.queue.WriteBuffer(b.buffer, uint64(offset), data); err != nil {
		return fmt.Errorf("halsync: write buffer: %w", err)
	}
	return nil
}

// Destroy frees the buffer. The GPU must be done with it; drain the
// controller first.
func (b *UniformBuffer) Destroy() {
	if b.buffer == nil {
		return
	}
	b.device.device.DestroyBuffer(b.buffer)
	b.buffer = nil
}
