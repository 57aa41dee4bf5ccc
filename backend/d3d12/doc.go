// Package d3d12sync binds the frame sync controller to a Direct3D 12 command
// queue and ID3D12Fence through gogpu/wgpu's d3d12 bindings.
//
// Waiting uses SetEventOnCompletion with an auto-reset event and an
// infinite WaitForSingleObject, the same pattern as a D3D12 sample's
// WaitForGpu. The package only builds on Windows; elsewhere it is empty
// apart from the device-removal helper.
package d3d12sync

import "errors"

// ErrDeviceRemoved is returned when the fence reports UINT64_MAX, which
// D3D12 does after the device has been removed.
var ErrDeviceRemoved = errors.New("d3d12sync: device removed")

// removedValue is what ID3D12Fence::GetCompletedValue returns after device
// removal.
const removedValue = ^uint64(0)

func deviceRemoved(completed uint64) bool { return completed == removedValue }
