package glyphcast

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

// Surface is the raster the renderer paints on. Drawing happens between a
// Clear and a Present; readers only ever see presented frames.
type Surface interface {
	Size() (width, height int)
	Resize(width, height int)
	Clear(c color.Color)
	// DrawGlyph draws r centred on (x, y) with a pixel font size.
	DrawGlyph(r rune, x, y, size float64, c color.Color)
	// DrawDisk fills a circle centred on (x, y).
	DrawDisk(x, y, radius float64, c color.Color)
	// Present publishes everything drawn since the last Clear.
	Present() error
	// Snapshot returns a copy of the last presented frame.
	Snapshot() (*image.RGBA, error)
}

// ImageSurface draws into an off-screen RGBA back buffer and copies it to a
// front buffer on Present, so a concurrent Snapshot never sees a half drawn
// frame.
type ImageSurface struct {
	back  *image.RGBA
	gc    *draw2dimg.GraphicContext
	faces *faceCache

	mu    sync.RWMutex // guards front and the back buffer pointer
	front *image.RGBA
}

func NewImageSurface(width, height int) *ImageSurface {
	s := &ImageSurface{faces: newFaceCache(nil)}
	s.Resize(width, height)
	return s
}

// LoadFont replaces the glyph font with a TrueType font, for character sets
// the built-in Go Mono font does not cover.
func (s *ImageSurface) LoadFont(ttf []byte) error {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return err
	}
	s.faces = newFaceCache(f)
	return nil
}

// Size may be called while another goroutine draws.
func (s *ImageSurface) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.back.Rect.Dx(), s.back.Rect.Dy()
}

func (s *ImageSurface) Resize(width, height int) {
	if s.back != nil && s.back.Rect.Dx() == width && s.back.Rect.Dy() == height {
		return
	}
	back := image.NewRGBA(image.Rect(0, 0, width, height))
	s.mu.Lock()
	s.back = back
	s.mu.Unlock()
	s.gc = draw2dimg.NewGraphicContext(back)
}

func (s *ImageSurface) Clear(c color.Color) {
	draw.Draw(s.back, s.back.Rect, image.NewUniform(c), image.Point{}, draw.Src)
}

func (s *ImageSurface) DrawDisk(x, y, radius float64, c color.Color) {
	if radius <= 0 {
		return
	}
	s.gc.SetFillColor(c)
	s.gc.BeginPath()
	draw2dkit.Circle(s.gc, x, y, radius)
	s.gc.Fill()
}

func (s *ImageSurface) DrawGlyph(r rune, x, y, size float64, c color.Color) {
	if size <= 0 {
		return
	}
	face := s.faces.face(size)
	d := &font.Drawer{
		Dst:  s.back,
		Src:  image.NewUniform(c),
		Face: face,
	}
	str := string(r)
	advance := d.MeasureString(str)
	m := face.Metrics()
	// Centre horizontally on the advance and vertically on the ascent/descent
	// box, which matches a "middle" text baseline.
	d.Dot = fixed.Point26_6{
		X: toFixed(x) - advance/2,
		Y: toFixed(y) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(str)
}

func (s *ImageSurface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.front == nil || s.front.Rect != s.back.Rect {
		s.front = image.NewRGBA(s.back.Rect)
	}
	copy(s.front.Pix, s.back.Pix)
	return nil
}

func (s *ImageSurface) Snapshot() (*image.RGBA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.front == nil {
		return nil, ErrNotReady
	}
	return cloneRGBA(s.front), nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

// faceCache keeps one font face per half-pixel size step. Faces are not safe
// for concurrent use; a cache belongs to one surface.
type faceCache struct {
	font  *truetype.Font
	faces map[int]font.Face
}

var parseMono = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(gomono.TTF)
})

func newFaceCache(f *truetype.Font) *faceCache {
	if f == nil {
		mono, err := parseMono()
		if err != nil {
			Logger().Warn("go mono parse failed, using basicfont", "err", err)
		}
		f = mono
	}
	return &faceCache{font: f, faces: make(map[int]font.Face)}
}

func (fc *faceCache) face(size float64) font.Face {
	if fc.font == nil {
		return basicfont.Face7x13
	}
	key := int(math.Round(size * 2))
	if key < 1 {
		key = 1
	}
	if f, ok := fc.faces[key]; ok {
		return f
	}
	f := truetype.NewFace(fc.font, &truetype.Options{
		Size:    float64(key) / 2,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	fc.faces[key] = f
	return f
}

// MultiSurface fans every drawing call out to several surfaces, e.g. a
// terminal preview and a raster that is being recorded.
type MultiSurface []Surface

func (ms MultiSurface) Size() (int, int) {
	if len(ms) == 0 {
		return 0, 0
	}
	return ms[0].Size()
}

func (ms MultiSurface) Resize(width, height int) {
	for _, s := range ms {
		s.Resize(width, height)
	}
}

func (ms MultiSurface) Clear(c color.Color) {
	for _, s := range ms {
		s.Clear(c)
	}
}

func (ms MultiSurface) DrawGlyph(r rune, x, y, size float64, c color.Color) {
	for _, s := range ms {
		s.DrawGlyph(r, x, y, size, c)
	}
}

func (ms MultiSurface) DrawDisk(x, y, radius float64, c color.Color) {
	for _, s := range ms {
		s.DrawDisk(x, y, radius, c)
	}
}

func (ms MultiSurface) Present() error {
	var errs []error
	for _, s := range ms {
		if err := s.Present(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns the first snapshot a member surface can produce.
func (ms MultiSurface) Snapshot() (*image.RGBA, error) {
	err := ErrNoReadback
	for _, s := range ms {
		img, serr := s.Snapshot()
		if serr == nil {
			return img, nil
		}
		if !errors.Is(serr, ErrNoReadback) {
			err = serr
		}
	}
	return nil, err
}

// Zoom scales a rendered frame by a percentage for display. It never feeds
// back into sampling.
func Zoom(img image.Image, percent float64) image.Image {
	if percent <= 0 || percent == 100 {
		return img
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * percent / 100))
	h := int(math.Round(float64(b.Dy()) * percent / 100))
	if w < 1 || h < 1 {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
