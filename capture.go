package glyphcast

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// CaptureFPS is the rate the capture sink samples the output surface at.
const CaptureFPS = 30

// Format names an encoded clip format.
type Format string

const (
	FormatWebM  Format = "webm"
	FormatMJPEG Format = "mjpeg"
	FormatGIF   Format = "gif"
)

// RecordingState is the capture lifecycle.
type RecordingState int

const (
	Idle RecordingState = iota
	Recording
)

func (s RecordingState) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Ticker paces capture. It is satisfied by wrapping *time.Ticker; tests
// substitute a manual one.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// Artifact is a finished clip.
type Artifact struct {
	Name     string
	MIMEType string
	Data     []byte
	Chunks   int // encoded chunks concatenated into Data
	Frames   int // surface frames captured
}

func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Data)
	return int64(n), err
}

// Save writes the artifact into dir under its own name and returns the path.
func (a *Artifact) Save(dir string) (string, error) {
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

type CaptureOpt func(s *CaptureSink)

// WithTicker replaces the wall-clock ticker that paces capture.
func WithTicker(newTicker func(time.Duration) Ticker) CaptureOpt {
	return func(s *CaptureSink) {
		s.newTicker = newTicker
	}
}

// WithClock replaces the clock used to timestamp artifact names.
func WithClock(now func() time.Time) CaptureOpt {
	return func(s *CaptureSink) {
		s.now = now
	}
}

// WithRecorder registers (or overrides) the recorder used for a format.
func WithRecorder(f Format, factory RecorderFactory) CaptureOpt {
	return func(s *CaptureSink) {
		s.recorders[f] = factory
	}
}

// CaptureSink records presented frames of a Surface into a clip. It only
// reads the surface.
type CaptureSink struct {
	surface   Surface
	fps       int
	newTicker func(time.Duration) Ticker
	now       func() time.Time
	recorders map[Format]RecorderFactory

	// opMu serialises Start and Stop.
	opMu sync.Mutex

	mu       sync.Mutex
	state    RecordingState
	session  uint64
	format   Format
	recorder Recorder
	width    int
	height   int
	chunks   [][]byte
	frames   int
	stop     chan struct{}
	done     chan struct{}
}

func NewCaptureSink(surface Surface, opts ...CaptureOpt) *CaptureSink {
	s := &CaptureSink{
		surface:   surface,
		fps:       CaptureFPS,
		newTicker: newTimeTicker,
		now:       time.Now,
		recorders: defaultRecorders(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Formats lists the formats this sink can record.
func (s *CaptureSink) Formats() []Format {
	formats := make([]Format, 0, len(s.recorders))
	for f := range s.recorders {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func (s *CaptureSink) State() RecordingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens a recorder for format sized to the surface and begins sampling
// presented frames. It fails with ErrAlreadyRecording while a session is
// active and with ErrUnsupportedFormat for unknown formats; on any failure
// the sink stays idle.
func (s *CaptureSink) Start(format Format) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == Recording {
		return ErrAlreadyRecording
	}

	factory, ok := s.recorders[format]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	width, height := s.surface.Size()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("start %s capture: surface has no size: %w", format, ErrNotReady)
	}
	rec, err := factory(width, height, s.fps)
	if err != nil {
		return fmt.Errorf("start %s capture: %w", format, err)
	}

	s.mu.Lock()
	s.session++
	session := s.session
	s.state = Recording
	s.format = format
	s.recorder = rec
	s.width, s.height = width, height
	s.chunks = nil
	s.frames = 0
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.run(session, rec, width, height, stop, done)
	Logger().Info("capture started", "format", format, "width", width, "height", height, "fps", s.fps)
	return nil
}

func (s *CaptureSink) run(session uint64, rec Recorder, width, height int, stop, done chan struct{}) {
	defer close(done)
	t := s.newTicker(time.Second / time.Duration(s.fps))
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C():
		}
		img, err := s.surface.Snapshot()
		if err != nil {
			Logger().Debug("capture frame skipped", "err", err)
			continue
		}
		chunk, err := rec.Encode(fitFrame(img, width, height))
		if err != nil {
			Logger().Warn("capture frame dropped", "err", err)
			continue
		}
		s.appendChunk(session, chunk, 1)
	}
}

// appendChunk keeps chunks in arrival order and drops any that belong to a
// session other than the active one.
func (s *CaptureSink) appendChunk(session uint64, chunk []byte, frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session || s.state != Recording {
		return
	}
	s.frames += frames
	if len(chunk) > 0 {
		s.chunks = append(s.chunks, chunk)
	}
}

// Stop halts sampling, flushes the recorder and returns the clip made of
// every chunk produced since Start, in order. The sink is idle afterwards
// even when finalising fails.
func (s *CaptureSink) Stop() (*Artifact, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	session, rec, format := s.session, s.recorder, s.format
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	tail, closeErr := rec.Close()
	if closeErr == nil {
		s.appendChunk(session, tail, 0)
	}

	s.mu.Lock()
	chunks, frames := s.chunks, s.frames
	s.chunks = nil
	s.frames = 0
	s.recorder = nil
	s.state = Idle
	s.mu.Unlock()

	if closeErr != nil {
		return nil, fmt.Errorf("finalise %s capture: %w", format, closeErr)
	}
	artifact := &Artifact{
		Name:     fmt.Sprintf("ascii-video-%d.%s", s.now().UnixMilli(), rec.Extension()),
		MIMEType: rec.MIMEType(),
		Data:     bytes.Join(chunks, nil),
		Chunks:   len(chunks),
		Frames:   frames,
	}
	Logger().Info("capture stopped", "name", artifact.Name, "frames", frames, "chunks", len(chunks), "bytes", len(artifact.Data))
	return artifact, nil
}

// fitFrame returns img at exactly width x height with a tight stride, which
// is what recorders expect.
func fitFrame(img *image.RGBA, width, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height && b.Min == (image.Point{}) && img.Stride == width*4 {
		return img
	}
	var src image.Image = img
	if b.Dx() != width || b.Dy() != height {
		src = imaging.Resize(img, width, height, imaging.Linear)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Rect, src, src.Bounds().Min, draw.Src)
	return dst
}
