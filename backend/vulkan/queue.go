//go:build vulkan

package vksync

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mgarez/redhill"
)

// ErrBatchType is returned by Execute for batches that are not
// vk.CommandBuffer values.
var ErrBatchType = errors.New("vksync: command batch is not a vk.CommandBuffer")

// Queue adapts a vk.Queue to redhill.Queue and redhill.Fence.
//
// Queue is not safe for concurrent use, like the frame loop driving it.
type Queue struct {
	device vk.Device
	queue  vk.Queue
	t      tracker[vk.Fence]
}

var (
	_ redhill.Queue = (*Queue)(nil)
	_ redhill.Fence = (*Queue)(nil)
)

// New returns a Queue submitting to queue. Fences are created on device as
// needed. initial is the value the fence counter starts at.
func New(device vk.Device, queue vk.Queue, initial uint64) *Queue {
	q := &Queue{device: device, queue: queue}
	q.t.signaled = initial
	q.t.completed = initial
	return q
}

// Execute submits the command buffers in one vkQueueSubmit.
func (q *Queue) Execute(batches ...redhill.CommandBatch) error {
	cmds := make([]vk.CommandBuffer, 0, len(batches))
	for i, b := range batches {
		cb, ok := b.(vk.CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: batch %d is %T", ErrBatchType, i, b)
		}
		cmds = append(cmds, cb)
	}
	if len(cmds) == 0 {
		return nil
	}
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(cmds)),
		PCommandBuffers:    cmds,
	}}
	if err := vk.Error(vk.QueueSubmit(q.queue, 1, submit, vk.NullFence)); err != nil {
		return fmt.Errorf("vksync: queue submit: %w", err)
	}
	return nil
}

// Signal submits an empty batch carrying a fence for value. The fence
// signals once every earlier submission on the queue has completed.
func (q *Queue) Signal(value uint64) error {
	if err := q.t.check(value); err != nil {
		return err
	}
	fence, err := q.fence()
	if err != nil {
		return err
	}
	if err := vk.Error(vk.QueueSubmit(q.queue, 0, nil, fence)); err != nil {
		q.t.free = append(q.t.free, fence)
		return fmt.Errorf("vksync: signal %d: %w", value, err)
	}
	q.t.push(value, fence)
	return nil
}

// Completed checks outstanding fences and returns the highest completed
// value.
func (q *Queue) Completed() uint64 {
	return q.t.retire(q.signaled)
}

// Wait blocks in vkWaitForFences, with no timeout, until value completes.
func (q *Queue) Wait(value uint64) error {
	if q.Completed() >= value {
		return nil
	}
	fence, ok := q.t.covering(value)
	if !ok {
		return fmt.Errorf("vksync: value %d was never signaled (last %d)", value, q.t.signaled)
	}
	fences := []vk.Fence{fence}
	if err := vk.Error(vk.WaitForFences(q.device, 1, fences, vk.True, vk.MaxUint64)); err != nil {
		return fmt.Errorf("vksync: wait for %d: %w", value, err)
	}
	q.Completed()
	return nil
}

// Close waits for every outstanding fence and destroys all of them.
func (q *Queue) Close() error {
	var err error
	if len(q.t.marks) > 0 {
		last := q.t.marks[len(q.t.marks)-1].value
		err = q.Wait(last)
	}
	for _, f := range q.t.fences() {
		vk.DestroyFence(q.device, f, nil)
	}
	q.t.marks, q.t.free = nil, nil
	return err
}

func (q *Queue) signaled(f vk.Fence) bool {
	if vk.GetFenceStatus(q.device, f) != vk.Success {
		return false
	}
	vk.ResetFences(q.device, 1, []vk.Fence{f})
	return true
}

func (q *Queue) fence() (vk.Fence, error) {
	if f, ok := q.t.take(); ok {
		return f, nil
	}
	var f vk.Fence
	ret := vk.CreateFence(q.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &f)
	if err := vk.Error(ret); err != nil {
		return f, fmt.Errorf("vksync: create fence: %w", err)
	}
	redhill.Logger().Debug("vksync: fence created", "total", len(q.t.fences())+1)
	return f, nil
}
