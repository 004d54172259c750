package glyphcast

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// RenderLoop drives sampler then renderer once per scheduled tick while
// running. Playback state and loop state are independent: a paused, ended or
// missing source turns ticks into no-ops but keeps the loop alive.
type RenderLoop struct {
	sched    Scheduler
	source   func() Source
	sampler  *FrameSampler
	renderer *MosaicRenderer
	surface  Surface
	config   atomic.Pointer[RenderConfig]

	mu         sync.Mutex
	running    bool
	gen        uint64
	pending    Token
	hasPending bool

	// tickMu keeps ticks strictly sequential, including the overlap of an
	// old chain's in-flight tick with a restarted chain.
	tickMu sync.Mutex
	frames atomic.Uint64
}

// NewRenderLoop builds a stopped loop. source is consulted on every tick and
// may return nil.
func NewRenderLoop(sched Scheduler, surface Surface, source func() Source, cfg RenderConfig) (*RenderLoop, error) {
	l := &RenderLoop{
		sched:    sched,
		source:   source,
		sampler:  NewFrameSampler(),
		renderer: NewMosaicRenderer(),
		surface:  surface,
	}
	if err := l.SetConfig(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// SetConfig validates and installs a new snapshot. It takes effect at the
// start of the next tick.
func (l *RenderLoop) SetConfig(cfg RenderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.config.Store(&cfg)
	return nil
}

func (l *RenderLoop) Config() RenderConfig {
	return *l.config.Load()
}

// Surface returns the surface ticks render to.
func (l *RenderLoop) Surface() Surface {
	return l.surface
}

func (l *RenderLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Frames counts ticks that rendered a frame.
func (l *RenderLoop) Frames() uint64 {
	return l.frames.Load()
}

// Start begins a fresh tick chain. Starting a running loop does nothing.
func (l *RenderLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.gen++
	l.scheduleLocked(l.gen)
	Logger().Info("render loop started")
}

// Stop cancels the pending tick. A tick already in progress completes but
// does not reschedule.
func (l *RenderLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	l.gen++
	if l.hasPending {
		l.sched.Cancel(l.pending)
		l.hasPending = false
	}
	Logger().Info("render loop stopped", "frames", l.frames.Load())
}

func (l *RenderLoop) scheduleLocked(gen uint64) {
	l.pending = l.sched.Schedule(func() { l.tick(gen) })
	l.hasPending = true
}

func (l *RenderLoop) tick(gen uint64) {
	l.mu.Lock()
	if !l.running || gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.hasPending = false
	l.mu.Unlock()

	if _, err := l.RenderOnce(); err != nil {
		Logger().Warn("tick failed", "err", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running && gen == l.gen {
		l.scheduleLocked(gen)
	}
}

// RenderOnce runs one sampler and renderer pass against the current source,
// whether or not the loop is running. It reports whether a frame was drawn.
// A source that is missing, paused, ended or not ready yields (false, nil).
func (l *RenderLoop) RenderOnce() (rendered bool, err error) {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			rendered, err = false, fmt.Errorf("render panic: %v", r)
		}
	}()

	cfg := *l.config.Load()
	src := l.source()
	if src == nil || !src.Ready() || src.Paused() || src.Ended() {
		return false, nil
	}
	grid, err := l.sampler.Sample(src, cfg)
	if IsNotReady(err) {
		Logger().Debug("tick skipped, source not ready")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := l.renderer.Render(l.surface, grid, cfg); err != nil {
		return false, err
	}
	l.frames.Add(1)
	return true, nil
}
