package glyphcast

import (
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	vidio "github.com/AlexEidt/Vidio"
)

// pipeDecoder reads packed RGBA frames from an ffmpeg pipe. Rewinding
// restarts the pipe from the beginning.
type pipeDecoder struct {
	open          func() (io.ReadCloser, error)
	width, height int
	delay         time.Duration

	mu      sync.Mutex
	out     io.ReadCloser
	stopped bool
}

func frameDelay(fps float64) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Duration(float64(time.Second) / fps)
}

func (d *pipeDecoder) next() (image.Image, time.Duration, error) {
	d.mu.Lock()
	out := d.out
	d.mu.Unlock()
	if out == nil {
		return nil, 0, io.EOF
	}
	img, err := readRawFrame(out, d.width, d.height)
	if err != nil {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if stopped {
			return nil, 0, io.EOF
		}
		return nil, 0, err
	}
	return img, d.delay, nil
}

func (d *pipeDecoder) rewind() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errNoRewind
	}
	if d.out != nil {
		d.out.Close()
		d.out = nil
	}
	out, err := d.open()
	if err != nil {
		return err
	}
	d.out = out
	return nil
}

// interrupt unblocks a pending read by tearing the pipe down.
func (d *pipeDecoder) interrupt() {
	d.mu.Lock()
	d.stopped = true
	out := d.out
	d.out = nil
	d.mu.Unlock()
	if out != nil {
		out.Close()
	}
}

func (d *pipeDecoder) close() error {
	d.interrupt()
	return nil
}

// OpenVideo plays a video file. Files loop by default; pass WithLoop(false)
// to end after the last frame.
func OpenVideo(path string, opts ...SourceOpt) (Source, error) {
	video, err := vidio.NewVideo(path)
	if err != nil {
		return nil, fmt.Errorf("open video %q: %w", path, err)
	}
	// Only metadata is taken from Vidio; it never starts its reader here.
	video.Close()
	Logger().Info("video opened", "path", path,
		"width", video.Width(), "height", video.Height(), "fps", video.FPS(), "codec", video.Codec())

	dec := &pipeDecoder{
		open:   func() (io.ReadCloser, error) { return ffmpegOutput(videoArgs(path)...) },
		width:  video.Width(),
		height: video.Height(),
		delay:  frameDelay(video.FPS()),
	}
	if err := dec.rewind(); err != nil {
		return nil, fmt.Errorf("open video %q: %w", path, err)
	}
	return newStream(path, dec, append([]SourceOpt{WithLoop(true)}, opts...)...), nil
}

// OpenCamera starts streaming from the capture device with the given index.
// Reads block until the device delivers, so frames are not paced further.
func OpenCamera(index int, opts ...SourceOpt) (Source, error) {
	camera, err := vidio.NewCamera(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	camera.Close()
	args, err := cameraArgs(camera.Name())
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	Logger().Info("camera opened", "index", index, "name", camera.Name(),
		"width", camera.Width(), "height", camera.Height(), "fps", camera.FPS())

	dec := &pipeDecoder{
		open:   func() (io.ReadCloser, error) { return ffmpegOutput(args...) },
		width:  camera.Width(),
		height: camera.Height(),
	}
	if err := dec.rewind(); err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	return newStream(fmt.Sprintf("camera:%d", index), dec, opts...), nil
}
