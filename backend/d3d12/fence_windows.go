//go:build windows

package d3d12sync

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal/dx12/d3d12"
	"golang.org/x/sys/windows"

	"github.com/mgarez/redhill"
)

// ErrBatchType is returned by Execute for batches that are not
// *d3d12.ID3D12GraphicsCommandList values.
var ErrBatchType = errors.New("d3d12sync: command batch is not a *d3d12.ID3D12GraphicsCommandList")

// Queue is a D3D12 direct command queue with one fence shared by all frame
// slots. It implements redhill.Queue and redhill.Fence.
type Queue struct {
	queue *d3d12.ID3D12CommandQueue
	fence *d3d12.ID3D12Fence
	event windows.Handle

	// last is the last completed value read before any device removal.
	last uint64
}

var (
	_ redhill.Queue = (*Queue)(nil)
	_ redhill.Fence = (*Queue)(nil)
)

// New creates the frame fence on device, starting at initial, and the
// event used to wait on it. The caller keeps ownership of queue.
func New(device *d3d12.ID3D12Device, queue *d3d12.ID3D12CommandQueue, initial uint64) (*Queue, error) {
	fence, err := device.CreateFence(initial, d3d12.D3D12_FENCE_FLAG_NONE)
	if err != nil {
		return nil, fmt.Errorf("d3d12sync: create fence: %w", err)
	}
	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		fence.Release()
		return nil, fmt.Errorf("d3d12sync: create event: %w", err)
	}
	redhill.Logger().Info("d3d12sync: frame fence created", "initial", initial)
	return &Queue{queue: queue, fence: fence, event: event, last: initial}, nil
}

// Execute runs the command lists on the queue, in order.
func (q *Queue) Execute(batches ...redhill.CommandBatch) error {
	lists := make([]*d3d12.ID3D12GraphicsCommandList, 0, len(batches))
	for i, b := range batches {
		l, ok := b.(*d3d12.ID3D12GraphicsCommandList)
		if !ok || l == nil {
			return fmt.Errorf("%w: batch %d is %T", ErrBatchType, i, b)
		}
		lists = append(lists, l)
	}
	if len(lists) == 0 {
		return nil
	}
	q.queue.ExecuteCommandLists(uint32(len(lists)), &lists[0])
	return nil
}

// Signal enqueues a fence signal behind the executed command lists.
func (q *Queue) Signal(value uint64) error {
	if err := q.queue.Signal(q.fence, value); err != nil {
		return fmt.Errorf("d3d12sync: signal %d: %w", value, err)
	}
	return nil
}

// Completed returns the fence's completed value. After device removal it
// keeps returning the last value seen before it, so the next Wait reports
// ErrDeviceRemoved instead of every slot looking complete.
func (q *Queue) Completed() uint64 {
	v := q.fence.GetCompletedValue()
	if deviceRemoved(v) {
		return q.last
	}
	q.last = v
	return v
}

// Wait blocks until the fence reaches value, with no timeout.
func (q *Queue) Wait(value uint64) error {
	completed := q.fence.GetCompletedValue()
	if deviceRemoved(completed) {
		return ErrDeviceRemoved
	}
	if completed >= value {
		return nil
	}
	if err := q.fence.SetEventOnCompletion(value, uintptr(q.event)); err != nil {
		return fmt.Errorf("d3d12sync: set event on completion %d: %w", value, err)
	}
	if _, err := windows.WaitForSingleObject(q.event, windows.INFINITE); err != nil {
		return fmt.Errorf("d3d12sync: wait for %d: %w", value, err)
	}
	if deviceRemoved(q.fence.GetCompletedValue()) {
		return ErrDeviceRemoved
	}
	return nil
}

// Close releases the fence and the event. Drain the controller first.
func (q *Queue) Close() error {
	if q.fence != nil {
		q.fence.Release()
		q.fence = nil
	}
	if q.event != 0 {
		err := windows.CloseHandle(q.event)
		q.event = 0
		if err != nil {
			return fmt.Errorf("d3d12sync: close event: %w", err)
		}
	}
	return nil
}
