package glyphcast

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"
)

// Source is a playable frame stream: a video file, a camera, an MJPEG feed, a
// GIF or a still image.
type Source interface {
	// Width and Height are zero until the first frame has been decoded.
	Width() int
	Height() int
	Ready() bool
	Paused() bool
	Ended() bool
	// Frame returns the frame currently on display. The image is never
	// mutated after it is returned, so callers may read it without copying.
	Frame() (image.Image, error)
	Play()
	Pause()
	// Close halts decoding and releases the device or file. It blocks until
	// the decoder has stopped.
	Close() error
}

// decoder yields successive frames for a stream. next returns io.EOF after
// the last frame.
type decoder interface {
	next() (img image.Image, delay time.Duration, err error)
	rewind() error
	close() error
}

// interrupter is implemented by decoders whose next can block indefinitely
// (pipes, sockets). interrupt must make a pending next return.
type interrupter interface {
	interrupt()
}

var errNoRewind = errors.New("source cannot rewind")

// SourceOpt configures a stream at construction.
type SourceOpt func(s *stream)

// WithLoop restarts the stream from its first frame when it ends.
func WithLoop(loop bool) SourceOpt {
	return func(s *stream) {
		s.loop = loop
	}
}

// WithStartPaused opens the stream without starting playback.
func WithStartPaused() SourceOpt {
	return func(s *stream) {
		s.paused = true
	}
}

// stream drives a decoder on its own goroutine, pacing frames by the delay
// the decoder reports, and publishes the latest frame for Frame to return.
type stream struct {
	name string
	dec  decoder
	loop bool

	mu       sync.Mutex
	current  image.Image
	paused   bool
	ended    bool
	err      error
	resume   chan struct{}
	closeErr error

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newStream(name string, dec decoder, opts ...SourceOpt) *stream {
	s := &stream{
		name:   name,
		dec:    dec,
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.paused {
		close(s.resume)
	}
	s.wg.Add(1)
	go s.run()
	Logger().Info("source opened", "source", name, "loop", s.loop)
	return s
}

func (s *stream) run() {
	defer s.wg.Done()
	defer func() {
		err := s.dec.close()
		s.mu.Lock()
		s.closeErr = err
		s.mu.Unlock()
	}()

	deadline := time.Now()
	// rewound is set until the first frame after a rewind. A pass that
	// yields nothing ends the stream instead of rewinding again.
	rewound := false
	for {
		if !s.waitPlaying() {
			return
		}
		img, delay, err := s.dec.next()
		if err == io.EOF && s.loop && !rewound {
			switch rerr := s.dec.rewind(); {
			case rerr == nil:
				rewound = true
				continue
			case !errors.Is(rerr, errNoRewind):
				err = rerr
			}
		}
		if err != nil {
			s.finish(err)
			return
		}
		rewound = false
		s.publish(img)

		// Pace against a running deadline so decode time is not added to the
		// frame delay. Fall back to wall clock when we lag a whole frame.
		deadline = deadline.Add(delay)
		if now := time.Now(); deadline.Before(now.Add(-delay)) {
			deadline = now.Add(delay)
		}
		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-timer.C:
		case <-s.done:
			timer.Stop()
			return
		}
	}
}

// waitPlaying blocks while the stream is paused. It returns false once the
// stream is closed.
func (s *stream) waitPlaying() bool {
	s.mu.Lock()
	resume := s.resume
	s.mu.Unlock()
	select {
	case <-resume:
	case <-s.done:
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *stream) publish(img image.Image) {
	s.mu.Lock()
	s.current = img
	s.mu.Unlock()
}

func (s *stream) finish(err error) {
	s.mu.Lock()
	s.ended = true
	if err != io.EOF {
		s.err = err
	}
	s.mu.Unlock()
	if err != io.EOF {
		Logger().Warn("source stopped", "source", s.name, "err", err)
	} else {
		Logger().Info("source ended", "source", s.name)
	}
}

func (s *stream) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.Bounds().Dx()
}

func (s *stream) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.Bounds().Dy()
}

func (s *stream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && !s.current.Bounds().Empty()
}

func (s *stream) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *stream) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Err returns the decode error that ended the stream, if any.
func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNotReady
	}
	return s.current, nil
}

func (s *stream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	close(s.resume)
}

func (s *stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	s.resume = make(chan struct{})
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if in, ok := s.dec.(interrupter); ok {
			in.interrupt()
		}
		s.wg.Wait()
		Logger().Info("source closed", "source", s.name)
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

// SourceSlot owns at most one Source at a time. Switching closes the current
// source before the next one is opened, so two devices never feed the sampler
// at once.
type SourceSlot struct {
	switchMu sync.Mutex

	mu  sync.RWMutex
	src Source
}

// Current returns the active source or nil.
func (s *SourceSlot) Current() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.src
}

// Switch releases the current source and installs the one returned by open.
// If open fails the slot stays empty.
func (s *SourceSlot) Switch(open func() (Source, error)) error {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	s.release()
	src, err := open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
	return nil
}

// Release closes the current source, if any.
func (s *SourceSlot) Release() error {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()
	return s.release()
}

func (s *SourceSlot) release() error {
	s.mu.Lock()
	src := s.src
	s.src = nil
	s.mu.Unlock()
	if src == nil {
		return nil
	}
	if err := src.Close(); err != nil {
		Logger().Warn("source close failed", "err", err)
		return err
	}
	return nil
}
