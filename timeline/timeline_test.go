package timeline

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgarez/redhill"
	"github.com/mgarez/redhill/internal/gpusim"
)

func record(t *testing.T, frames int) *Recorder {
	t.Helper()
	rec := NewRecorder()
	g := gpusim.New(gpusim.ModeOnWait)
	t.Cleanup(g.Stop)

	ctrl, err := redhill.New(g, g, redhill.WithObserver(rec))
	if err != nil {
		t.Fatalf("redhill.New: %v", err)
	}
	for range frames {
		slot := ctrl.BeginFrame()
		if err := ctrl.SubmitFrame(slot); err != nil {
			t.Fatalf("SubmitFrame: %v", err)
		}
		if _, err := ctrl.AdvanceFrame(); err != nil {
			t.Fatalf("AdvanceFrame: %v", err)
		}
	}
	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return rec
}

func TestSpans(t *testing.T) {
	rec := record(t, 3)

	var cpu, gpu, wait int
	for _, s := range rec.Spans() {
		if s.End.Before(s.Start) {
			t.Errorf("%v span for value %d ends before it starts", s.Kind, s.Value)
		}
		switch s.Kind {
		case SpanCPU:
			cpu++
		case SpanGPU:
			gpu++
		case SpanWait:
			wait++
		}
	}
	if cpu != 3 || gpu != 3 {
		t.Errorf("cpu, gpu spans = %d, %d; want 3, 3", cpu, gpu)
	}
	// Frames 2 and 3 wait, then the drain in Close.
	if wait != 3 {
		t.Errorf("wait spans = %d, want 3", wait)
	}
}

func TestGPUSpanClosesOnCompletion(t *testing.T) {
	base := time.Unix(0, 0)
	rec := NewRecorder()
	for _, e := range []redhill.Event{
		{Kind: redhill.EventBegin, Slot: 0, At: base},
		{Kind: redhill.EventSubmit, Slot: 0, Value: 1, At: base.Add(1 * time.Millisecond)},
		{Kind: redhill.EventAdvance, Slot: 1, At: base.Add(2 * time.Millisecond)},
		{Kind: redhill.EventBegin, Slot: 1, At: base.Add(2 * time.Millisecond)},
		{Kind: redhill.EventSubmit, Slot: 1, Value: 2, At: base.Add(3 * time.Millisecond)},
		{Kind: redhill.EventWaitStart, Slot: 0, Value: 1, At: base.Add(3 * time.Millisecond)},
		{Kind: redhill.EventWaitEnd, Slot: 0, Value: 1, Completed: 1, At: base.Add(7 * time.Millisecond)},
	} {
		rec.Observe(e)
	}

	spans := rec.Spans()
	var first Span
	for _, s := range spans {
		if s.Kind == SpanGPU && s.Value == 1 {
			first = s
		}
	}
	if got := first.End.Sub(first.Start); got != 6*time.Millisecond {
		t.Errorf("value 1 GPU span = %v, want 6ms", got)
	}
	for _, s := range spans {
		if s.Kind == SpanGPU && s.Value == 2 && !s.End.Equal(base.Add(7*time.Millisecond)) {
			t.Errorf("open GPU span should end at the last event, ends at %v", s.End.Sub(base))
		}
	}
}

func TestRenderAndWritePNG(t *testing.T) {
	rec := record(t, 6)

	img, err := rec.Render(400)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 400 {
		t.Errorf("width = %d, want 400", img.Bounds().Dx())
	}
	// Two slot rows and the wait row.
	if want := 2*margin + 3*rowHeight + 2*rowGap; img.Bounds().Dy() != want {
		t.Errorf("height = %d, want %d", img.Bounds().Dy(), want)
	}

	path := filepath.Join(t.TempDir(), "timeline.png")
	if err := rec.WritePNG(path, 400); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("written file is not a PNG: %v", err)
	}
}

func TestRenderEmpty(t *testing.T) {
	img, err := NewRecorder().Render(10)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() < labelWidth {
		t.Errorf("width = %d, want at least the label column", img.Bounds().Dx())
	}
}
