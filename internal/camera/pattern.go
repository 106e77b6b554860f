package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync/atomic"
	"time"
)

// Classic colour-bar order, white to black.
var patternBars = []color.RGBA{
	{0xff, 0xff, 0xff, 0xff},
	{0xff, 0xff, 0x00, 0xff},
	{0x00, 0xff, 0xff, 0xff},
	{0x00, 0xff, 0x00, 0xff},
	{0xff, 0x00, 0xff, 0xff},
	{0xff, 0x00, 0x00, 0xff},
	{0x00, 0x00, 0xff, 0xff},
	{0x00, 0x00, 0x00, 0xff},
}

// PatternSource renders a colour-bar test card with a moving marker, so
// consecutive frames differ and a stalled stream is visible at a glance.
type PatternSource struct {
	width   int
	height  int
	quality int
	seq     atomic.Uint64
}

// NewPatternSource creates a generated source. Non-positive dimensions fall
// back to 640x480; quality outside 1..100 falls back to 80.
func NewPatternSource(width, height, quality int) *PatternSource {
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}
	if quality < 1 || quality > 100 {
		quality = 80
	}
	return &PatternSource{width: width, height: height, quality: quality}
}

// Frame renders and encodes the next frame.
func (s *PatternSource) Frame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seq := s.seq.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))

	barWidth := s.width / len(patternBars)
	if barWidth < 1 {
		barWidth = 1
	}
	for i, c := range patternBars {
		x0 := i * barWidth
		x1 := x0 + barWidth
		if i == len(patternBars)-1 {
			x1 = s.width
		}
		draw.Draw(img, image.Rect(x0, 0, x1, s.height), image.NewUniform(c), image.Point{}, draw.Src)
	}

	// Marker strip cycling across the bottom edge.
	markerH := s.height / 16
	if markerH < 4 {
		markerH = 4
	}
	step := int(seq) % len(patternBars)
	x0 := step * barWidth
	draw.Draw(img,
		image.Rect(x0, s.height-markerH, x0+barWidth, s.height),
		image.NewUniform(color.RGBA{0x80, 0x80, 0x80, 0xff}),
		image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("%w: encoding frame: %v", ErrCaptureFailed, err)
	}

	return &Frame{
		Data:       buf.Bytes(),
		Format:     "image/jpeg",
		CapturedAt: time.Now().UTC(),
	}, nil
}
