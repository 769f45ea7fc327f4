package confetti

import (
	"image/color"
	"sync"
	"time"

	"github.com/rook-computer/confetti/internal/render"
)

// manualClock fires AfterFunc callbacks only from Advance, in deadline order.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

// Advance moves time forward, running due callbacks without holding the lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type drawnRect struct {
	rect  render.Rect
	color color.NRGBA
	alpha float64
}

// recordSurface keeps the rectangles drawn since the last Clear.
type recordSurface struct {
	width, height int
	clears        int
	resizes       int
	rects         []drawnRect
}

func (s *recordSurface) Size() (int, int) { return s.width, s.height }

func (s *recordSurface) Resize(width, height int) {
	s.resizes++
	s.width, s.height = width, height
}

func (s *recordSurface) Clear() {
	s.clears++
	s.rects = s.rects[:0]
}

func (s *recordSurface) FillRect(rect render.Rect, c color.NRGBA, alpha float64) {
	s.rects = append(s.rects, drawnRect{rect: rect, color: c, alpha: alpha})
}
