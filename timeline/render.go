package timeline

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	labelWidth = 64
	rowHeight  = 28
	rowGap     = 6
	margin     = 8
)

var (
	background = color.RGBA{0x1e, 0x1e, 0x24, 0xff}
	gridColor  = color.RGBA{0x3a, 0x3a, 0x44, 0xff}
	textColor  = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	waitColor  = color.RGBA{0xd9, 0x48, 0x3b, 0xff}

	slotColors = []color.RGBA{
		{0x4c, 0x9a, 0xff, 0xff},
		{0x5c, 0xc9, 0x7a, 0xff},
		{0xf2, 0xb1, 0x34, 0xff},
		{0xb0, 0x7c, 0xf0, 0xff},
	}
)

var labelFace = sync.OnceValues(func() (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
})

// Render draws the recorded timeline into a width-wide image. There is one
// row per slot, CPU recording in the top half and GPU work in the bottom
// half, and a final row for fence waits.
func (r *Recorder) Render(width int) (*image.RGBA, error) {
	spans := r.Spans()
	slots := 0
	for _, s := range spans {
		slots = max(slots, s.Slot+1)
	}
	rows := slots + 1
	height := 2*margin + rows*rowHeight + (rows-1)*rowGap
	width = max(width, labelWidth+2*margin+1)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	face, err := labelFace()
	if err != nil {
		return nil, fmt.Errorf("timeline: load font: %w", err)
	}
	for row := range rows {
		top := margin + row*(rowHeight+rowGap)
		label := "wait"
		if row < slots {
			label = fmt.Sprintf("slot %d", row)
		}
		drawLabel(img, face, label, margin, top+rowHeight/2+4)
		fill(img, image.Rect(margin+labelWidth, top+rowHeight-1, width-margin, top+rowHeight), gridColor)
	}
	if len(spans) == 0 {
		return img, nil
	}

	start, end := spans[0].Start, spans[0].End
	for _, s := range spans {
		if s.Start.Before(start) {
			start = s.Start
		}
		if s.End.After(end) {
			end = s.End
		}
	}
	x := scaler(start, end, margin+labelWidth, width-margin)

	for _, s := range spans {
		x0, x1 := x(s.Start), max(x(s.End), x(s.Start)+1)
		var rect image.Rectangle
		var c color.RGBA
		switch s.Kind {
		case SpanCPU:
			top := margin + s.Slot*(rowHeight+rowGap)
			rect = image.Rect(x0, top+2, x1, top+rowHeight/2-1)
			c = slotColors[s.Slot%len(slotColors)]
		case SpanGPU:
			top := margin + s.Slot*(rowHeight+rowGap)
			rect = image.Rect(x0, top+rowHeight/2+1, x1, top+rowHeight-2)
			c = dim(slotColors[s.Slot%len(slotColors)])
		case SpanWait:
			top := margin + slots*(rowHeight+rowGap)
			rect = image.Rect(x0, top+4, x1, top+rowHeight-4)
			c = waitColor
		}
		fill(img, rect, c)
	}
	return img, nil
}

// WritePNG renders the timeline and writes it to path.
func (r *Recorder) WritePNG(path string, width int) error {
	img, err := r.Render(width)
	if err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("timeline: encode png: %w", err)
	}
	return f.Close()
}

func scaler(start, end time.Time, left, right int) func(time.Time) int {
	total := end.Sub(start)
	if total <= 0 {
		return func(time.Time) int { return left }
	}
	span := float64(right - left)
	return func(t time.Time) int {
		return left + int(span*float64(t.Sub(start))/float64(total))
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func dim(c color.RGBA) color.RGBA {
	return color.RGBA{c.R / 2, c.G / 2, c.B / 2, c.A}
}

func drawLabel(img *image.RGBA, face font.Face, s string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
