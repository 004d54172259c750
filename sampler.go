package glyphcast

import (
	"errors"
	"image"
	"image/draw"
	"iter"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// MaxWorkingWidth bounds the width of the buffer frames are sampled from, so
// per-frame cost does not grow with the source resolution.
const MaxWorkingWidth = 640

// SampleCell is one sampled grid position for the current tick.
type SampleCell struct {
	X, Y      int
	Luminance float64
	Color     RGB
}

// Grid is the sampler's output for one tick. Cells can be ranged over once;
// later iterations yield nothing.
type Grid struct {
	Width, Height int
	Step          int
	Cells         iter.Seq[SampleCell]
}

func emptyGrid(step int) *Grid {
	return &Grid{Step: step, Cells: func(func(SampleCell) bool) {}}
}

// Luminance weights RGB channels by perceived brightness (Rec. 709):
// 0.2126 R + 0.7152 G + 0.0722 B.
func Luminance(r, g, b uint8) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

// WorkingSize scales width down to at most MaxWorkingWidth, keeping the
// aspect ratio. Sources narrower than the ceiling are not scaled up.
func WorkingSize(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	scale := math.Min(1, MaxWorkingWidth/float64(width))
	w, h := int(float64(width)*scale), int(float64(height)*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// FrameSampler reduces a source frame to a grid of luminance cells.
type FrameSampler struct {
	// Interp is the resampling filter used to shrink frames to the working
	// size. The zero value is nearest neighbour; NewFrameSampler picks
	// bilinear.
	Interp resize.InterpolationFunction
}

func NewFrameSampler() *FrameSampler {
	return &FrameSampler{Interp: resize.Bilinear}
}

// Sample reads the source's current frame once and returns its cell grid.
// When the source has no frame yet it returns an empty grid and ErrNotReady.
//
// Each cell reads a single pixel at its top-left corner rather than averaging
// the cell's area.
func (fs *FrameSampler) Sample(src Source, cfg RenderConfig) (*Grid, error) {
	step := cfg.StepSize()
	if src == nil || !src.Ready() {
		return emptyGrid(step), ErrNotReady
	}
	pal, err := LookupPalette(cfg.Palette)
	if err != nil {
		return emptyGrid(step), err
	}
	frame, err := src.Frame()
	if err != nil {
		return emptyGrid(step), err
	}
	if frame.Bounds().Empty() {
		return emptyGrid(step), ErrNotReady
	}

	buf := fs.workingBuffer(frame, cfg.Adjust)
	width, height := buf.Rect.Dx(), buf.Rect.Dy()
	consumed := false
	cells := func(yield func(SampleCell) bool) {
		if consumed {
			return
		}
		consumed = true
		pix := buf
		buf = nil
		for y := 0; y < height; y += step {
			for x := 0; x < width; x += step {
				i := pix.PixOffset(x, y)
				l := Luminance(pix.Pix[i], pix.Pix[i+1], pix.Pix[i+2])
				if !yield(SampleCell{X: x, Y: y, Luminance: l, Color: pal.ColorAt(l)}) {
					return
				}
			}
		}
	}
	Logger().Debug("frame sampled", "width", width, "height", height, "step", step)
	return &Grid{Width: width, Height: height, Step: step, Cells: cells}, nil
}

// workingBuffer shrinks the frame to the working size, applies tone
// adjustments and copies the result into a private RGBA buffer.
func (fs *FrameSampler) workingBuffer(frame image.Image, adj Adjustments) *image.RGBA {
	b := frame.Bounds()
	w, h := WorkingSize(b.Dx(), b.Dy())

	img := frame
	if w != b.Dx() || h != b.Dy() {
		img = resize.Resize(uint(w), uint(h), frame, fs.Interp)
	}
	if !adj.Identity() {
		img = adjust(img, adj)
	}

	buf := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(buf, buf.Rect, img, img.Bounds().Min, draw.Src)
	return buf
}

func adjust(img image.Image, adj Adjustments) image.Image {
	var out *image.NRGBA
	apply := func(f func(image.Image) *image.NRGBA) {
		if out == nil {
			out = f(img)
		} else {
			out = f(out)
		}
	}
	if adj.Gamma != 0 && adj.Gamma != 1 {
		apply(func(i image.Image) *image.NRGBA { return imaging.AdjustGamma(i, adj.Gamma) })
	}
	if adj.Brightness != 0 {
		apply(func(i image.Image) *image.NRGBA { return imaging.AdjustBrightness(i, adj.Brightness) })
	}
	if adj.Sharpen != 0 {
		apply(func(i image.Image) *image.NRGBA { return imaging.Sharpen(i, adj.Sharpen) })
	}
	if adj.Contrast != 0 {
		apply(func(i image.Image) *image.NRGBA { return imaging.AdjustContrast(i, adj.Contrast) })
	}
	if adj.SigmoidFactor != 0 {
		apply(func(i image.Image) *image.NRGBA {
			return imaging.AdjustSigmoid(i, adj.SigmoidMidpoint, adj.SigmoidFactor)
		})
	}
	if adj.Invert {
		apply(func(i image.Image) *image.NRGBA { return imaging.Invert(i) })
	}
	if adj.Mirror {
		apply(func(i image.Image) *image.NRGBA { return imaging.FlipH(i) })
	}
	if out == nil {
		return img
	}
	return out
}

// IsNotReady reports whether err means the source had nothing to sample.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}
