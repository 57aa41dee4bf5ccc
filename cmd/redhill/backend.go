package main

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/mgarez/redhill"
	halsync "github.com/mgarez/redhill/backend/hal"
	"github.com/mgarez/redhill/internal/gpusim"
)

// gpu is a queue and fence pair plus how to record a frame for it.
type gpu struct {
	queue  redhill.Queue
	fence  redhill.Fence
	record func(slot redhill.Slot) (redhill.CommandBatch, redhill.Releaser, error)
	close  func() error

	// constants creates the GPU buffer the constant ring is uploaded to.
	// nil when the backend has no buffers.
	constants func(size int) (constantSink, error)
}

// constantSink receives each frame's constant region.
type constantSink interface {
	Write(offset int, data []byte) error
	Destroy()
}

var halBackends = map[string]gputypes.Backend{
	"vulkan": gputypes.BackendVulkan,
	"dx12":   gputypes.BackendDX12,
	"metal":  gputypes.BackendMetal,
	"gl":     gputypes.BackendGL,
}

func openGPU(cfg config) (*gpu, error) {
	switch cfg.backend {
	case "sim":
		g := gpusim.New(gpusim.ModeTimed)
		return &gpu{
			queue: g,
			fence: g,
			record: func(redhill.Slot) (redhill.CommandBatch, redhill.Releaser, error) {
				return gpusim.Work(cfg.gpuCost), nil, nil
			},
			close: func() error {
				g.Stop()
				return nil
			},
		}, nil
	case "noop":
		return openHAL(halsync.OpenBackend(noop.API{}))
	}
	variant, ok := halBackends[cfg.backend]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
	if _, ok := hal.GetBackend(variant); !ok {
		return nil, fmt.Errorf("backend %s is not available on this platform", variant)
	}
	return openHAL(halsync.Open(variant))
}

func openHAL(d *halsync.Device, err error) (*gpu, error) {
	if err != nil {
		return nil, err
	}
	return &gpu{
		queue: d,
		fence: d,
		record: func(slot redhill.Slot) (redhill.CommandBatch, redhill.Releaser, error) {
			return d.Record(fmt.Sprintf("frame slot %d", slot.Index))
		},
		close: d.Close,
		constants: func(size int) (constantSink, error) {
			ub, err := d.NewUniformBuffer("scene constants", size)
			if err != nil {
				return nil, err
			}
			return ub, nil
		},
	}, nil
}
