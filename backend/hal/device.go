// Package halsync binds the frame sync controller to a gogpu/wgpu HAL device.
//
// HAL queues do not expose a fence the caller can signal. Instead every
// Submit returns a monotonically increasing submission index and
// PollCompleted reports the highest index the GPU has finished. [Device]
// maps controller fence values onto those indices: a value is complete once
// the last submission made before it was signaled has completed.
package halsync

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/mgarez/redhill"
)

var (
	// ErrBatchType is returned by Execute for batches that are not
	// hal.CommandBuffer values.
	ErrBatchType = errors.New("halsync: command batch is not a hal.CommandBuffer")

	// ErrNonMonotonic is returned by Signal for a value not above the last
	// signaled value.
	ErrNonMonotonic = errors.New("halsync: signal value not increasing")
)

const (
	defaultPollInterval = 50 * time.Microsecond
	maxPollInterval     = 2 * time.Millisecond
	defaultPollBudget   = 2000
)

// mark ties a controller fence value to the submission index it waits for.
type mark struct {
	value uint64
	index uint64
}

// Device adapts a hal.Device and hal.Queue to redhill.Queue and
// redhill.Fence.
type Device struct {
	device hal.Device
	queue  hal.Queue

	pollInterval time.Duration
	pollBudget   int

	mu        sync.Mutex
	marks     []mark
	lastIndex uint64
	signaled  uint64
	completed uint64

	// close releases what Open created; nil for borrowed devices.
	close func()
}

var (
	_ redhill.Queue = (*Device)(nil)
	_ redhill.Fence = (*Device)(nil)
)

// Option configures a Device.
type Option func(*Device)

// WithPollInterval sets the first sleep between completion polls in Wait.
// The interval doubles on each poll up to 2ms.
func WithPollInterval(d time.Duration) Option {
	return func(dev *Device) {
		if d > 0 {
			dev.pollInterval = d
		}
	}
}

// WithPollBudget sets how many polls Wait makes before it falls back to
// hal.Device.WaitIdle.
func WithPollBudget(n int) Option {
	return func(dev *Device) {
		if n > 0 {
			dev.pollBudget = n
		}
	}
}

// WithInitialValue starts the value mapping at v, for controllers created
// with redhill.WithInitialValue(v).
func WithInitialValue(v uint64) Option {
	return func(dev *Device) {
		dev.signaled = v
		dev.completed = v
	}
}

// New wraps an existing device and queue. The caller keeps ownership of both.
func New(device hal.Device, queue hal.Queue, opts ...Option) *Device {
	d := &Device{
		device:       device,
		queue:        queue,
		pollInterval: defaultPollInterval,
		pollBudget:   defaultPollBudget,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HalDevice returns the wrapped hal.Device.
func (d *Device) HalDevice() hal.Device { return d.device }

// HalQueue returns the wrapped hal.Queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

// Execute submits the batches, which must be hal.CommandBuffer values, as
// one queue submission.
func (d *Device) Execute(batches ...redhill.CommandBatch) error {
	cmds := make([]hal.CommandBuffer, 0, len(batches))
	for i, b := range batches {
		cb, ok := b.(hal.CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: batch %d is %T", ErrBatchType, i, b)
		}
		cmds = append(cmds, cb)
	}
	idx, err := d.queue.Submit(cmds)
	if err != nil {
		return fmt.Errorf("halsync: submit: %w", err)
	}
	d.mu.Lock()
	d.lastIndex = max(d.lastIndex, idx)
	d.mu.Unlock()
	return nil
}

// Signal records that value completes with the most recent submission.
// When nothing was ever submitted the value is complete immediately.
func (d *Device) Signal(value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if value <= d.signaled {
		return fmt.Errorf("%w: %d after %d", ErrNonMonotonic, value, d.signaled)
	}
	d.signaled = value
	if d.lastIndex == 0 {
		d.completed = max(d.completed, value)
		return nil
	}
	d.marks = append(d.marks, mark{value: value, index: d.lastIndex})
	return nil
}

// Completed polls the queue and returns the highest completed value.
func (d *Device) Completed() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pollLocked()
}

// Wait blocks until value completes. It polls with exponential backoff and
// after the poll budget is spent blocks in hal.Device.WaitIdle, which
// completes every value signaled so far.
func (d *Device) Wait(value uint64) error {
	interval := d.pollInterval
	for range d.pollBudget {
		if d.Completed() >= value {
			return nil
		}
		time.Sleep(interval)
		interval = min(interval*2, maxPollInterval)
	}

	redhill.Logger().Debug("halsync: poll budget spent, waiting for idle", "value", value)
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("halsync: wait idle: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.marks = d.marks[:0]
	d.completed = max(d.completed, d.signaled)
	if d.completed < value {
		return fmt.Errorf("halsync: value %d was never signaled (last %d)", value, d.signaled)
	}
	return nil
}

// pollLocked retires every mark whose submission has completed.
func (d *Device) pollLocked() uint64 {
	if len(d.marks) == 0 {
		return d.completed
	}
	done := d.queue.PollCompleted()
	n := 0
	for n < len(d.marks) && d.marks[n].index <= done {
		d.completed = max(d.completed, d.marks[n].value)
		n++
	}
	if n > 0 {
		d.marks = append(d.marks[:0], d.marks[n:]...)
	}
	return d.completed
}

// Record encodes an empty command buffer labeled label. The returned
// Releaser frees the buffer and its encoder; retire it to the slot the
// buffer is submitted from.
func (d *Device) Record(label string) (hal.CommandBuffer, redhill.Releaser, error) {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, nil, fmt.Errorf("halsync: create encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.Destroy()
		return nil, nil, fmt.Errorf("halsync: begin encoding: %w", err)
	}
	cb, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		enc.Destroy()
		return nil, nil, fmt.Errorf("halsync: end encoding: %w", err)
	}
	release := redhill.ReleaseFunc(func() error {
		d.device.FreeCommandBuffer(cb)
		enc.Destroy()
		return nil
	})
	return cb, release, nil
}

// Close waits for the GPU to go idle and destroys the device if it was
// created by Open.
func (d *Device) Close() error {
	err := d.device.WaitIdle()
	if d.close != nil {
		d.close()
		d.close = nil
	}
	if err != nil {
		return fmt.Errorf("halsync: wait idle: %w", err)
	}
	return nil
}
