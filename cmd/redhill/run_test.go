package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgarez/redhill"
)

func TestRunSimulated(t *testing.T) {
	out := filepath.Join(t.TempDir(), "timeline.png")
	stats, _, err := run(config{
		frames:   8,
		slots:    3,
		backend:  "sim",
		gpuCost:  time.Millisecond,
		timeline: out,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Frames != 8 {
		t.Errorf("Frames = %d, want 8", stats.Frames)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("timeline not written: %v", err)
	}
}

func TestRunNoop(t *testing.T) {
	stats, _, err := run(config{frames: 5, slots: 2, backend: "noop", serialized: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Frames != 5 {
		t.Errorf("Frames = %d, want 5", stats.Frames)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	if _, _, err := run(config{frames: 1, slots: 2, backend: "glide"}); err == nil {
		t.Error("run with unknown backend succeeded")
	}
}

type upload struct {
	offset int
	frame  uint32
}

// recordingSink keeps the frame number of every uploaded region.
type recordingSink struct {
	uploads   []upload
	destroyed bool
}

func (s *recordingSink) Write(offset int, data []byte) error {
	s.uploads = append(s.uploads, upload{offset, binary.LittleEndian.Uint32(data)})
	return nil
}

func (s *recordingSink) Destroy() { s.destroyed = true }

func TestFrameLoopUploadsSlotConstants(t *testing.T) {
	cfg := config{frames: 4, slots: 2, backend: "sim"}
	g, err := openGPU(cfg)
	if err != nil {
		t.Fatalf("openGPU: %v", err)
	}
	defer g.close()
	ctrl, err := redhill.New(g.queue, g.fence, redhill.WithSlotCount(cfg.slots))
	if err != nil {
		t.Fatalf("redhill.New: %v", err)
	}
	ring := redhill.NewConstantRing(ctrl, binary.Size(sceneConstants{}))
	sink := &recordingSink{}

	if err := frameLoop(cfg, g, ctrl, ring, sink); err != nil {
		t.Fatalf("frameLoop: %v", err)
	}
	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	region := ring.RegionSize()
	want := []upload{{0, 0}, {region, 1}, {0, 2}, {region, 3}}
	if len(sink.uploads) != len(want) {
		t.Fatalf("uploads = %v, want %v", sink.uploads, want)
	}
	for i := range want {
		if sink.uploads[i] != want[i] {
			t.Errorf("upload %d = %+v, want %+v", i, sink.uploads[i], want[i])
		}
	}
}

func TestNoopConstantBuffer(t *testing.T) {
	g, err := openGPU(config{backend: "noop"})
	if err != nil {
		t.Fatalf("openGPU: %v", err)
	}
	defer g.close()
	if g.constants == nil {
		t.Fatal("noop backend has no constant buffer")
	}
	sink, err := g.constants(512)
	if err != nil {
		t.Fatalf("constants: %v", err)
	}
	defer sink.Destroy()
	if err := sink.Write(256, make([]byte, 256)); err != nil {
		t.Errorf("Write(slot 1 region): %v", err)
	}
	if err := sink.Write(256, make([]byte, 257)); err == nil {
		t.Error("Write past the buffer end succeeded")
	}
}
