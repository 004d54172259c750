package glyphcast

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// stillDecoder shows one image forever.
type stillDecoder struct {
	img image.Image
}

func (d stillDecoder) next() (image.Image, time.Duration, error) {
	return d.img, 100 * time.Millisecond, nil
}

func (stillDecoder) rewind() error { return nil }
func (stillDecoder) close() error  { return nil }

// OpenImage decodes a still image (png, jpeg, gif, bmp, webp) and presents
// it as a source that never ends.
func OpenImage(r io.Reader, opts ...SourceOpt) (Source, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	Logger().Debug("image decoded", "format", format, "bounds", img.Bounds())
	return NewImageSource(img, opts...), nil
}

// NewImageSource presents img as a source that never ends.
func NewImageSource(img image.Image, opts ...SourceOpt) Source {
	return newStream("image", stillDecoder{img: img}, opts...)
}
