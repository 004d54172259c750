package glyphcast

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"time"
)

// gifDecoder composites GIF frames onto a screen the way browsers do,
// respecting per-frame delays and disposal methods.
type gifDecoder struct {
	giff   *gif.GIF
	i      int
	played int
	screen *image.RGBA
}

func (d *gifDecoder) next() (image.Image, time.Duration, error) {
	if d.i >= len(d.giff.Image) {
		return nil, 0, io.EOF
	}
	frame := d.giff.Image[d.i]

	// Always draw the first frame from scratch
	if d.i == 0 || d.screen == nil {
		d.screen = image.NewRGBA(d.bounds())
	}

	disposal := byte(0)
	if d.i < len(d.giff.Disposal) {
		disposal = d.giff.Disposal[d.i]
	}

	var previous *image.RGBA
	if disposal == gif.DisposalPrevious {
		previous = cloneRGBA(d.screen)
	}
	draw.Draw(d.screen, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
	out := cloneRGBA(d.screen)

	switch disposal {
	// Dispose previous essentially means draw then undo
	case gif.DisposalPrevious:
		d.screen = previous
	// Dispose background clears what was just drawn
	case gif.DisposalBackground:
		draw.Draw(d.screen, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
	}

	delay := 100 * time.Millisecond
	if d.i < len(d.giff.Delay) && d.giff.Delay[d.i] > 0 {
		delay = time.Duration(d.giff.Delay[d.i]) * time.Second / 100
	}
	d.i++
	return out, delay, nil
}

func (d *gifDecoder) bounds() image.Rectangle {
	if d.giff.Config.Width > 0 && d.giff.Config.Height > 0 {
		return image.Rect(0, 0, d.giff.Config.Width, d.giff.Config.Height)
	}
	var r image.Rectangle
	for _, f := range d.giff.Image {
		r = r.Union(f.Bounds())
	}
	return r
}

// rewind honours the GIF loop count: 0 loops forever, -1 plays once, n
// repeats n more times.
func (d *gifDecoder) rewind() error {
	if d.giff.LoopCount < 0 || (d.giff.LoopCount > 0 && d.played >= d.giff.LoopCount) {
		return errNoRewind
	}
	d.played++
	d.i = 0
	return nil
}

func (d *gifDecoder) close() error { return nil }

// OpenGIF decodes an animated GIF and plays it. Looping follows the file's
// loop count.
func OpenGIF(r io.Reader, opts ...SourceOpt) (Source, error) {
	giff, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(giff.Image) == 0 {
		return nil, fmt.Errorf("decode gif: no frames")
	}
	return newStream("gif", &gifDecoder{giff: giff}, append([]SourceOpt{WithLoop(true)}, opts...)...), nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
