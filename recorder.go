package glyphcast

import (
	"bytes"
	"fmt"
	"image"
	colorpalette "image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"os"
	"path/filepath"
)

// Recorder encodes captured frames into chunks. Encode may return an empty
// chunk when the format only produces output at the end.
type Recorder interface {
	Encode(img *image.RGBA) ([]byte, error)
	// Close finalises the clip and returns any trailing bytes.
	Close() ([]byte, error)
	MIMEType() string
	Extension() string
}

// RecorderFactory opens a recorder for frames of the given size.
type RecorderFactory func(width, height, fps int) (Recorder, error)

func defaultRecorders() map[Format]RecorderFactory {
	return map[Format]RecorderFactory{
		FormatWebM:  NewWebMRecorder,
		FormatMJPEG: NewMJPEGRecorder,
		FormatGIF:   NewGIFRecorder,
	}
}

// ParseFormat maps a name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "webm", ".webm":
		return FormatWebM, nil
	case "mjpeg", "mjpg", ".mjpeg", ".mjpg":
		return FormatMJPEG, nil
	case "gif", ".gif":
		return FormatGIF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// mjpegRecorder emits one JPEG per frame; the concatenated chunks form a
// motion-JPEG stream that MJPEGReader (and ffmpeg) can play back.
type mjpegRecorder struct {
	opts jpeg.Options
}

func NewMJPEGRecorder(width, height, fps int) (Recorder, error) {
	return &mjpegRecorder{opts: jpeg.Options{Quality: 85}}, nil
}

func (r *mjpegRecorder) Encode(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &r.opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *mjpegRecorder) Close() ([]byte, error) { return nil, nil }
func (r *mjpegRecorder) MIMEType() string       { return "video/x-motion-jpeg" }
func (r *mjpegRecorder) Extension() string      { return "mjpeg" }

// gifRecorder dithers each frame onto the Plan 9 palette and writes the
// animation as a single trailing chunk.
type gifRecorder struct {
	delay int // hundredths of a second
	giff  gif.GIF
}

func NewGIFRecorder(width, height, fps int) (Recorder, error) {
	delay := 100 / fps
	if delay < 2 {
		delay = 2
	}
	return &gifRecorder{
		delay: delay,
		giff: gif.GIF{
			Config: image.Config{Width: width, Height: height},
		},
	}, nil
}

func (r *gifRecorder) Encode(img *image.RGBA) ([]byte, error) {
	paletted := image.NewPaletted(img.Bounds(), colorpalette.Plan9)
	draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), img, img.Bounds().Min)
	r.giff.Image = append(r.giff.Image, paletted)
	r.giff.Delay = append(r.giff.Delay, r.delay)
	return nil, nil
}

func (r *gifRecorder) Close() ([]byte, error) {
	if len(r.giff.Image) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &r.giff); err != nil {
		return nil, err
	}
	r.giff.Image, r.giff.Delay = nil, nil
	return buf.Bytes(), nil
}

func (r *gifRecorder) MIMEType() string  { return "image/gif" }
func (r *gifRecorder) Extension() string { return "gif" }

// webmRecorder pipes frames through ffmpeg into a VP9 WebM file and returns
// the whole file as one chunk when closed.
type webmRecorder struct {
	dir           string
	path          string
	width, height int
	enc           *ffmpegInput
	frames        int
}

// webmEncoder is the ffmpeg encoder WebM capture needs.
const webmEncoder = "libvpx-vp9"

// NewWebMRecorder needs ffmpeg built with libvpx-vp9 on PATH. Odd dimensions
// are rounded down because VP9 in yuv420p needs even sizes.
func NewWebMRecorder(width, height, fps int) (Recorder, error) {
	if err := probeEncoder(webmEncoder); err != nil {
		return nil, fmt.Errorf("%w: webm: %w", ErrUnsupportedFormat, err)
	}
	width, height = width&^1, height&^1
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("webm: frame too small")
	}
	if fps <= 0 {
		fps = 30
	}
	dir, err := os.MkdirTemp("", "glyphcast-")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "clip.webm")

	enc, err := startFFmpegInput(webmArgs(path, width, height, fps)...)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &webmRecorder{dir: dir, path: path, width: width, height: height, enc: enc}, nil
}

func (r *webmRecorder) Encode(img *image.RGBA) ([]byte, error) {
	if _, err := r.enc.Write(fitFrame(img, r.width, r.height).Pix); err != nil {
		return nil, fmt.Errorf("webm: %w", err)
	}
	r.frames++
	return nil, nil
}

func (r *webmRecorder) Close() ([]byte, error) {
	defer os.RemoveAll(r.dir)
	err := r.enc.Close()
	if r.frames == 0 {
		// ffmpeg refuses to finish a file with no frames.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return os.ReadFile(r.path)
}

func (r *webmRecorder) MIMEType() string  { return "video/webm" }
func (r *webmRecorder) Extension() string { return "webm" }
