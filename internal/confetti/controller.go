package confetti

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
)

// visibleAlpha is the opacity at or below which a particle counts as gone.
const visibleAlpha = 0.01

type Phase int

const (
	Idle Phase = iota
	Running
	Fading
	Done
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return state.EffectIdle
	case Running:
		return state.EffectRunning
	case Fading:
		return state.EffectFading
	case Done:
		return state.EffectDone
	case Cancelled:
		return state.EffectCancelled
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Status is a point-in-time view of the controller.
type Status struct {
	Phase      Phase
	Active     bool
	Activation uint64
	Particles  int
	Alpha      float64
	Preset     string
	Duration   time.Duration
	Viewport   render.Viewport
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// Controller runs one confetti activation at a time on a surface.
//
// Activation is edge-triggered through SetActive. Frame must be called once
// per display frame by the host; it is a no-op outside of a run. The fade and
// stop timers run on Clock. All methods are safe for concurrent use.
type Controller struct {
	// Clock, Rand and Logger may be replaced before the first activation.
	Clock  Clock
	Rand   *rand.Rand
	Logger Logger

	mu       sync.Mutex
	surface  render.Surface
	preset   Preset
	duration time.Duration
	viewport render.Viewport

	active     bool
	closed     bool
	phase      Phase
	seq        uint64
	particles  []Particle
	start      time.Time
	fading     bool
	fadeStart  time.Time
	alpha      float64
	fadeTimer  Timer
	stopTimer  Timer
	frameCount uint64
}

// New returns an idle controller drawing into surface. The viewport defaults
// to the surface size at scale 1 and the duration to the preset's.
func New(surface render.Surface, preset Preset) *Controller {
	c := &Controller{
		Clock:    SystemClock{},
		Rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		surface:  surface,
		preset:   preset,
		duration: preset.Duration,
		alpha:    1,
	}
	if surface != nil {
		w, h := surface.Size()
		c.viewport = render.ViewportFromDevice(w, h, 1)
	}
	return c
}

// SetActive starts a run on a false to true transition and cancels the
// current run on a true to false transition. Repeating the current value has
// no effect.
func (c *Controller) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setActiveLocked(active)
}

// Trigger applies a duration and an active flag in one step.
func (c *Controller) Trigger(active bool, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setDurationLocked(d)
	c.setActiveLocked(active)
}

// SetDuration changes the run length. While a run is in progress, a
// different duration restarts it with the new length.
func (c *Controller) SetDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setDurationLocked(d)
}

// SetPreset replaces the preset used by the next activation.
func (c *Controller) SetPreset(p Preset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preset = p
}

// Restart discards the current run, if any, and starts a new one.
func (c *Controller) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setActiveLocked(false)
	c.setActiveLocked(true)
}

func (c *Controller) setActiveLocked(active bool) {
	if c.closed || active == c.active {
		return
	}
	c.active = active
	if active {
		c.startLocked()
		return
	}
	phase := c.phase
	if phase == Running || phase == Fading {
		phase = Cancelled
	}
	c.stopLocked(phase)
	c.infof("activation %d cancelled", c.seq)
}

func (c *Controller) setDurationLocked(d time.Duration) {
	if d == c.duration {
		return
	}
	c.duration = d
	if c.active && !c.closed && (c.phase == Running || c.phase == Fading) {
		c.startLocked()
	}
}

func (c *Controller) startLocked() {
	c.stopLocked(c.phase)
	c.seq++
	seq := c.seq
	c.fitSurfaceLocked()

	if c.duration <= 0 {
		c.phase = Done
		c.infof("activation %d: non-positive duration %s, completed immediately", seq, c.duration)
		return
	}

	v := c.viewport.Normalize()
	width, height := v.DeviceSize()
	count := c.preset.Count(v.Width)
	c.particles = make([]Particle, count)
	for i := range c.particles {
		c.particles[i] = spawn(&c.preset, c.Rand, float64(width), float64(height), v.Scale)
	}

	c.start = c.Clock.Now()
	c.fading = false
	c.alpha = 1
	c.phase = Running
	c.frameCount = 0

	fadeAt := c.duration - c.preset.FadeWindow
	if fadeAt < 0 {
		fadeAt = 0
	}
	c.fadeTimer = c.Clock.AfterFunc(fadeAt, func() { c.beginFade(seq) })
	c.stopTimer = c.Clock.AfterFunc(stopAfter(c.duration, c.preset.StopGrace), func() { c.finish(seq) })
	c.infof("activation %d: %d particles, preset=%s duration=%s viewport=%dx%d", seq, count, c.preset.Name, c.duration, width, height)
}

// stopAfter adds the grace period to d, saturating instead of wrapping.
func stopAfter(d, grace time.Duration) time.Duration {
	if grace > 0 && d > math.MaxInt64-grace {
		return math.MaxInt64
	}
	return d + grace
}

func (c *Controller) beginFade(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq || c.phase != Running {
		return
	}
	c.fading = true
	c.fadeStart = c.Clock.Now()
	c.phase = Fading
	c.infof("activation %d fading", seq)
}

func (c *Controller) finish(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq || (c.phase != Running && c.phase != Fading) {
		return
	}
	c.stopLocked(Done)
	c.infof("activation %d done after %d frames", seq, c.frameCount)
}

// stopLocked cancels both timers, releases the particle set and clears the
// surface. It is safe to call any number of times.
func (c *Controller) stopLocked(phase Phase) {
	if c.fadeTimer != nil {
		c.fadeTimer.Stop()
		c.fadeTimer = nil
	}
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
	c.particles = nil
	c.fading = false
	c.phase = phase
	if c.surface != nil {
		c.surface.Clear()
	}
}

// Frame runs one update and draw pass over every particle.
func (c *Controller) Frame(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Running && c.phase != Fading {
		return
	}
	if c.surface == nil {
		return
	}
	c.frameCount++
	c.surface.Clear()

	alpha := 1.0
	if c.fading {
		if window := c.preset.FadeWindow; window > 0 {
			alpha = 1 - float64(now.Sub(c.fadeStart))/float64(window)
		} else {
			alpha = 0
		}
	}
	alpha = clamp01(alpha)
	c.alpha = alpha

	scale := c.viewport.Normalize().Scale
	elapsed := now.Sub(c.start).Seconds()
	width, height := c.surface.Size()
	bottom := float64(height) + c.preset.RespawnMargin*scale

	visible := false
	for i := range c.particles {
		pt := &c.particles[i]
		pt.advance(&c.preset, elapsed, scale)
		if c.preset.Respawn && pt.Y > bottom {
			pt.respawn(&c.preset, c.Rand, float64(width), scale, c.fading)
		}
		pt.Opacity = clamp01(pt.base * alpha)
		if pt.Opacity > visibleAlpha {
			visible = true
		}
		if pt.Opacity > 0 {
			c.surface.FillRect(pt.rect(c.preset.Rotate), pt.Color, pt.Opacity)
		}
	}

	if c.fading && !visible {
		seq := c.seq
		c.stopLocked(Done)
		c.infof("activation %d done, all particles faded after %d frames", seq, c.frameCount)
	}
}

// Resize tracks a viewport change. The surface is resized; particles in
// flight keep their coordinates.
func (c *Controller) Resize(v render.Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = v.Normalize()
	c.fitSurfaceLocked()
}

func (c *Controller) fitSurfaceLocked() {
	if c.surface == nil {
		return
	}
	w, h := c.viewport.DeviceSize()
	c.surface.Resize(w, h)
}

// Close tears the controller down: the run stops, timers are cancelled and
// the surface is cleared. Later calls to any method have no effect.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	phase := c.phase
	if phase == Running || phase == Fading {
		phase = Cancelled
	}
	c.stopLocked(phase)
	c.active = false
	c.closed = true
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Phase:      c.phase,
		Active:     c.active,
		Activation: c.seq,
		Particles:  len(c.particles),
		Alpha:      c.alpha,
		Preset:     c.preset.Name,
		Duration:   c.duration,
		Viewport:   c.viewport,
	}
}

// Particles returns a copy of the live particle set.
func (c *Controller) Particles() []Particle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Particle, len(c.particles))
	copy(out, c.particles)
	return out
}

func (c *Controller) infof(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Infof("confetti", format, args...)
	}
}
