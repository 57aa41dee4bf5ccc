package halsync

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/mgarez/redhill"
)

// ErrNoTexture is returned by Present when no surface texture was acquired.
var ErrNoTexture = errors.New("halsync: no surface texture acquired")

// Surface adapts a configured hal.Surface to redhill.Surface.
//
// HAL swap chains do not report which backbuffer they will hand out, so
// CurrentSlot never overrides round robin. The texture for a frame is
// acquired on the first Backbuffer call after the previous Present.
type Surface struct {
	surface hal.Surface
	device  hal.Device
	queue   hal.Queue

	acquired   hal.SurfaceTexture
	acquireErr error
	suboptimal bool
}

var _ redhill.Surface = (*Surface)(nil)

// NewSurface configures surface for device and returns the adapter.
func NewSurface(d *Device, surface hal.Surface, config *hal.SurfaceConfiguration) (*Surface, error) {
	if err := surface.Configure(d.device, config); err != nil {
		return nil, fmt.Errorf("halsync: configure surface: %w", err)
	}
	return &Surface{surface: surface, device: d.device, queue: d.queue}, nil
}

// CurrentSlot always reports ok=false.
func (s *Surface) CurrentSlot() (int, bool) { return 0, false }

// Backbuffer returns the acquired hal.SurfaceTexture for the current frame,
// acquiring one if needed. It returns nil when acquisition fails; the error
// is reported by the next Present.
func (s *Surface) Backbuffer(int) any {
	if s.acquired != nil {
		return s.acquired
	}
	if s.acquireErr != nil {
		return nil
	}
	tex, err := s.surface.AcquireTexture(nil)
	if err != nil {
		s.acquireErr = err
		redhill.Logger().Warn("halsync: acquire surface texture failed", "error", err)
		return nil
	}
	if tex.Suboptimal && !s.suboptimal {
		redhill.Logger().Info("halsync: surface configuration is suboptimal")
	}
	s.suboptimal = tex.Suboptimal
	s.acquired = tex.Texture
	return s.acquired
}

// Present presents the acquired texture.
func (s *Surface) Present() error {
	if s.acquireErr != nil {
		err := s.acquireErr
		s.acquireErr = nil
		return fmt.Errorf("halsync: acquire: %w", err)
	}
	if s.acquired == nil {
		return ErrNoTexture
	}
	tex := s.acquired
	s.acquired = nil
	if err := s.queue.Present(s.surface, tex, nil); err != nil {
		return fmt.Errorf("halsync: present: %w", err)
	}
	return nil
}

// Suboptimal reports whether the last acquired texture was flagged
// suboptimal.
func (s *Surface) Suboptimal() bool { return s.suboptimal }

// Close discards any acquired texture and unconfigures the surface.
func (s *Surface) Close() {
	if s.acquired != nil {
		s.surface.DiscardTexture(s.acquired)
		s.acquired = nil
	}
	s.surface.Unconfigure(s.device)
}
