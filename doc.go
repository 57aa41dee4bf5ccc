// Package redhill paces a multi-frame-in-flight render loop against the GPU.
//
// # Overview
//
// A renderer keeps N frame slots (command allocators, constant buffer
// regions, backbuffers). The CPU records frame k into one slot while the GPU
// is still executing earlier frames from the others. [FrameSyncController]
// owns one fence value per slot and makes sure the CPU never reuses a slot
// before the GPU has finished with it, allowing up to N-1 frames of overlap.
//
// # Quick Start
//
//	ctrl, err := redhill.New(queue, fence, redhill.WithSurface(swapchain))
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	for running {
//	    slot := ctrl.BeginFrame()
//	    cmds := record(slot)
//	    if err := ctrl.SubmitFrame(slot, cmds); err != nil {
//	        return err
//	    }
//	    if err := ctrl.Present(); err != nil {
//	        return err
//	    }
//	    if _, err := ctrl.AdvanceFrame(); err != nil {
//	        return err
//	    }
//	}
//
// # Collaborators
//
// The controller does not talk to a graphics API directly. It depends on
// three small interfaces:
//   - [Queue]: executes command batches in FIFO order and signals fence values
//   - [Fence]: reports the completed value and blocks until a value is reached
//   - [Surface]: reports the next backbuffer index and presents
//
// Implementations live in backend/hal (gogpu/wgpu HAL, any backend),
// backend/d3d12 (Windows, ID3D12Fence plus an event handle) and
// backend/vulkan (vulkan-go fences, build tag "vulkan").
//
// # Waiting
//
// The only blocking calls are [FrameSyncController.AdvanceFrame] and
// [FrameSyncController.Drain]. Waits have no timeout: a GPU that never
// completes blocks the caller forever. Callers that need cancellation must
// run their own watchdog.
//
// # Errors
//
// Any failure from the queue, fence or surface is fatal. The controller
// latches it, wrapped in [ErrFailed], and returns it from every later call.
// Device loss is not recovered.
package redhill
