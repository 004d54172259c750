package glyphcast

import (
	"sync"
	"time"
)

// Token identifies a scheduled callback.
type Token uint64

// Scheduler runs callbacks at the next display refresh. A callback that has
// been cancelled never runs; one that has started is not interrupted.
type Scheduler interface {
	Schedule(fn func()) Token
	Cancel(t Token)
}

// FrameClock is a Scheduler aligned to a fixed refresh rate. Each callback
// fires on the first refresh boundary after the previous one fired.
type FrameClock struct {
	interval time.Duration

	mu     sync.Mutex
	next   Token
	timers map[Token]*time.Timer
	last   time.Time
}

// NewFrameClock returns a clock refreshing hz times per second.
func NewFrameClock(hz int) *FrameClock {
	if hz <= 0 {
		hz = 60
	}
	return &FrameClock{
		interval: time.Second / time.Duration(hz),
		timers:   make(map[Token]*time.Timer),
	}
}

func (c *FrameClock) Schedule(fn func()) Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	tok := c.next
	delay := c.interval - time.Since(c.last)
	if delay < 0 {
		delay = 0
	}
	c.timers[tok] = time.AfterFunc(delay, func() {
		c.mu.Lock()
		_, live := c.timers[tok]
		delete(c.timers, tok)
		c.last = time.Now()
		c.mu.Unlock()
		if live {
			fn()
		}
	})
	return tok
}

func (c *FrameClock) Cancel(tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[tok]; ok {
		t.Stop()
		delete(c.timers, tok)
	}
}
