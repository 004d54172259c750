package glyphcast

import (
	"bufio"
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"time"
)

type frame struct {
	img image.Image
	err error
}

// MJPEGReader splits a motion-JPEG byte stream (concatenated JPEGs, with or
// without multipart boundaries between them) into decoded frames.
type MJPEGReader struct {
	Reader io.Reader
}

// ReadAll decodes frames on a background goroutine until the reader is
// exhausted or stop is closed. The channel holds a single pending frame; a
// newer frame replaces a stale one, so a slow consumer always sees the newest.
func (mjpeg *MJPEGReader) ReadAll(stop <-chan struct{}) <-chan frame {
	frames := make(chan frame, 1)
	send := func(f frame) bool {
		for {
			select {
			case frames <- f:
				return true
			case <-stop:
				return false
			default:
				select {
				case <-frames:
				default:
				}
			}
		}
	}
	go func() {
		defer close(frames)

		r := bufio.NewReader(mjpeg.Reader)
		var buf bytes.Buffer
		var prev byte
		inFrame := false
		for {
			c, err := r.ReadByte()
			if err != nil {
				if err != io.EOF {
					send(frame{err: err})
				}
				return
			}

			switch {
			case !inFrame && prev == 0xff && c == 0xd8:
				// Start of image. Anything before it (multipart headers) is noise.
				buf.Reset()
				buf.Write([]byte{0xff, 0xd8})
				inFrame = true
			case inFrame:
				buf.WriteByte(c)
				if prev == 0xff && c == 0xd9 {
					inFrame = false
					img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
					buf.Reset()
					if err != nil {
						Logger().Debug("mjpeg frame dropped", "err", err)
						break
					}
					if !send(frame{img: img}) {
						return
					}
				}
			}
			prev = c
		}
	}()
	return frames
}

// mjpegDecoder adapts MJPEGReader to the stream decoder. Live streams cannot
// rewind.
type mjpegDecoder struct {
	r      io.Reader
	frames <-chan frame
	stop   chan struct{}
	delay  time.Duration
}

func (d *mjpegDecoder) next() (image.Image, time.Duration, error) {
	var f frame
	select {
	case got, ok := <-d.frames:
		if !ok {
			return nil, 0, io.EOF
		}
		f = got
	case <-d.stop:
		return nil, 0, io.EOF
	}
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.img, d.delay, nil
}

func (d *mjpegDecoder) rewind() error { return errNoRewind }

func (d *mjpegDecoder) interrupt() {
	close(d.stop)
	if c, ok := d.r.(io.Closer); ok {
		c.Close()
	}
}

func (d *mjpegDecoder) close() error { return nil }

// NewMJPEGSource plays a motion-JPEG stream, pacing frames at fps.
func NewMJPEGSource(r io.Reader, fps int, opts ...SourceOpt) Source {
	if fps <= 0 {
		fps = 30
	}
	stop := make(chan struct{})
	reader := MJPEGReader{Reader: r}
	dec := &mjpegDecoder{
		r:      r,
		frames: reader.ReadAll(stop),
		stop:   stop,
		delay:  time.Second / time.Duration(fps),
	}
	return newStream("mjpeg", dec, opts...)
}
