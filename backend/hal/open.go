package halsync

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/mgarez/redhill"
)

var (
	// ErrBackendNotRegistered is returned by Open when no HAL backend of the
	// requested variant has been registered.
	ErrBackendNotRegistered = errors.New("halsync: backend not registered")

	// ErrNoAdapter is returned by Open when the backend exposes no adapter.
	ErrNoAdapter = errors.New("halsync: no GPU adapter found")

	// ErrProvider is returned by FromProvider when the provider does not
	// hand out HAL types.
	ErrProvider = errors.New("halsync: provider does not expose HAL device and queue")
)

// Open creates a standalone device on the first suitable adapter of a
// registered backend. Discrete and integrated GPUs are preferred.
//
// Backends register themselves on import; import
// github.com/gogpu/wgpu/hal/allbackends, or hal/noop for tests.
func Open(variant gputypes.Backend, opts ...Option) (*Device, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotRegistered, variant)
	}
	return OpenBackend(backend, opts...)
}

// OpenBackend is Open for a backend value that is not in the registry.
func OpenBackend(backend hal.Backend, opts ...Option) (*Device, error) {
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("halsync: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, backend.Variant())
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("halsync: open device: %w", err)
	}

	d := New(open.Device, open.Queue, opts...)
	d.close = func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	redhill.Logger().Info("halsync: device opened",
		"backend", backend.Variant().String(),
		"adapter", selected.Info.Name)
	return d, nil
}

// FromProvider borrows the device and queue of a host application. The
// provider's Device and Queue must be hal.Device and hal.Queue, or the
// provider must expose them through HalDevice() and HalQueue() methods.
// The returned Device does not destroy them on Close.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	var device, queue any = p.Device(), p.Queue()

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if hp, ok := p.(halProvider); ok {
		device, queue = hp.HalDevice(), hp.HalQueue()
	}

	dev, ok := device.(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: device is %T", ErrProvider, device)
	}
	q, ok := queue.(hal.Queue)
	if !ok || q == nil {
		return nil, fmt.Errorf("%w: queue is %T", ErrProvider, queue)
	}

	info := p.AdapterInfo()
	redhill.Logger().Info("halsync: using provided device",
		"adapter", info.Name,
		"type", info.Type.String())
	return New(dev, q, opts...), nil
}
