package glyphcast

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// Studio wires a source slot, render loop and capture sink around one output
// surface. It is what a UI or CLI drives.
type Studio struct {
	slot    SourceSlot
	loop    *RenderLoop
	capture *CaptureSink

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewStudio(surface Surface, sched Scheduler, cfg RenderConfig, opts ...CaptureOpt) (*Studio, error) {
	s := &Studio{
		capture: NewCaptureSink(surface, opts...),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	loop, err := NewRenderLoop(sched, surface, s.slot.Current, cfg)
	if err != nil {
		return nil, err
	}
	s.loop = loop
	return s, nil
}

func (s *Studio) Loop() *RenderLoop                { return s.loop }
func (s *Studio) Capture() *CaptureSink            { return s.capture }
func (s *Studio) Source() Source                   { return s.slot.Current() }
func (s *Studio) Config() RenderConfig             { return s.loop.Config() }
func (s *Studio) SetConfig(cfg RenderConfig) error { return s.loop.SetConfig(cfg) }

// Use switches input. The previous source is closed before open runs.
func (s *Studio) Use(open func() (Source, error)) error {
	return s.slot.Switch(open)
}

// Start starts the render loop.
func (s *Studio) Start() { s.loop.Start() }

// Play resumes the source. The loop keeps ticking either way.
func (s *Studio) Play() {
	if src := s.slot.Current(); src != nil {
		src.Play()
	}
}

func (s *Studio) Pause() {
	if src := s.slot.Current(); src != nil {
		src.Pause()
	}
}

// TogglePlay flips playback and reports whether the source is now playing.
func (s *Studio) TogglePlay() bool {
	src := s.slot.Current()
	if src == nil {
		return false
	}
	if src.Paused() {
		src.Play()
		return true
	}
	src.Pause()
	return false
}

// Configure applies edit to the current config and installs the result.
func (s *Studio) Configure(edit func(RenderConfig) RenderConfig) error {
	return s.loop.SetConfig(edit(s.loop.Config()))
}

// Randomize picks a random character set, palette, density and base size.
func (s *Studio) Randomize() error {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.Configure(func(c RenderConfig) RenderConfig {
		return c.Randomize(s.rng)
	})
}

// ToggleRecording starts a capture in format when idle, or stops the active
// one and returns its artifact.
func (s *Studio) ToggleRecording(format Format) (*Artifact, error) {
	if s.capture.State() == Recording {
		return s.capture.Stop()
	}
	return nil, s.capture.Start(format)
}

// Close stops capture (discarding the clip), the loop and the source.
func (s *Studio) Close() error {
	var errs []error
	if s.capture.State() == Recording {
		if _, err := s.capture.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	s.loop.Stop()
	if err := s.slot.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
