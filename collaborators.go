package redhill

// CommandBatch is a recorded batch of GPU commands. Its concrete type belongs
// to the Queue implementation (hal.CommandBuffer, *d3d12.ID3D12GraphicsCommandList,
// vk.CommandBuffer, ...); the controller only forwards it.
type CommandBatch any

// Queue is the command submission sink.
//
// Batches passed to Execute run on the GPU in submission order. Signal asks
// the GPU to set the shared fence to value once every batch executed before
// it has completed. Neither call blocks on GPU progress.
type Queue interface {
	Execute(batches ...CommandBatch) error
	Signal(value uint64) error
}

// Fence is the completion query for values signaled through a Queue.
//
// Completed must not block. Wait blocks the calling goroutine until
// Completed() >= value. There is no timeout: a hung GPU hangs the caller.
type Fence interface {
	Completed() uint64
	Wait(value uint64) error
}

// Surface is the presentation surface.
//
// CurrentSlot reports the backbuffer index the swap chain will render into
// next. When ok is false the controller falls back to round robin.
// Backbuffer returns the opaque resource for an index, or nil.
type Surface interface {
	CurrentSlot() (index int, ok bool)
	Backbuffer(index int) any
	Present() error
}
