package confetti

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
)

const frameInterval = 16 * time.Millisecond

func newTestController(t *testing.T, preset Preset, v render.Viewport) (*Controller, *recordSurface, *manualClock) {
	t.Helper()
	surface := &recordSurface{}
	clock := newManualClock()
	c := New(surface, preset)
	c.Clock = clock
	c.Rand = rand.New(rand.NewPCG(1, 2))
	c.Resize(v)
	return c, surface, clock
}

// step advances the clock by one frame interval and renders a frame.
func step(c *Controller, clock *manualClock) {
	clock.Advance(frameInterval)
	c.Frame(clock.Now())
}

func TestParticleCountFollowsViewportWidth(t *testing.T) {
	cases := []struct {
		name   string
		preset Preset
		width  float64
		scale  float64
		want   int
	}{
		{"classic_1280", Classic(), 1280, 1, 142},
		{"classic_hidpi_counts_logical_width", Classic(), 1280, 2, 142},
		{"wave_1280", Wave(), 1280, 1, 213},
		{"wave_375", Wave(), 375, 3, 62},
		{"narrower_than_density", Classic(), 8, 1, 0},
		{"zero_width", Wave(), 0, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, _ := newTestController(t, tc.preset, render.Viewport{Width: tc.width, Height: 720, Scale: tc.scale})
			c.SetActive(true)
			if got := c.Status().Particles; got != tc.want {
				t.Fatalf("expected %d particles, got %d", tc.want, got)
			}
			if got := len(c.Particles()); got != tc.want {
				t.Fatalf("expected %d live particles, got %d", tc.want, got)
			}
		})
	}
}

func TestSurfaceSizedToViewportTimesScale(t *testing.T) {
	c, surface, _ := newTestController(t, Classic(), render.Viewport{Width: 800, Height: 600, Scale: 2})
	c.SetActive(true)
	if surface.width != 1600 || surface.height != 1200 {
		t.Fatalf("expected surface 1600x1200, got %dx%d", surface.width, surface.height)
	}
}

func TestOpacityStaysInUnitRange(t *testing.T) {
	for _, preset := range []Preset{Classic(), Wave()} {
		t.Run(preset.Name, func(t *testing.T) {
			c, surface, clock := newTestController(t, preset, render.Viewport{Width: 640, Height: 200, Scale: 1})
			c.SetActive(true)
			end := preset.Duration + preset.StopGrace + time.Second
			for elapsed := time.Duration(0); elapsed < end; elapsed += frameInterval {
				step(c, clock)
				for i, p := range c.Particles() {
					if p.Opacity < 0 || p.Opacity > 1 {
						t.Fatalf("at %s particle %d has opacity %f", elapsed, i, p.Opacity)
					}
				}
				for _, r := range surface.rects {
					if r.alpha < 0 || r.alpha > 1 {
						t.Fatalf("at %s drew alpha %f", elapsed, r.alpha)
					}
				}
			}
		})
	}
}

func TestOpacityIsFullBeforeFadeWindow(t *testing.T) {
	preset := Classic()
	c, surface, clock := newTestController(t, preset, render.Viewport{Width: 900, Height: 700, Scale: 1})
	c.SetActive(true)
	for _, p := range c.Particles() {
		if p.Opacity != 1 {
			t.Fatalf("expected initial opacity 1, got %f", p.Opacity)
		}
	}

	fadeAt := preset.Duration - preset.FadeWindow
	for elapsed := frameInterval; elapsed < fadeAt; elapsed += frameInterval {
		step(c, clock)
		if c.Status().Phase != Running {
			t.Fatalf("at %s expected running, got %s", elapsed, c.Status().Phase)
		}
		for _, r := range surface.rects {
			if r.alpha != 1 {
				t.Fatalf("at %s drew alpha %f before the fade window", elapsed, r.alpha)
			}
		}
	}
}

func TestFadeRampsDownLinearly(t *testing.T) {
	preset := Classic()
	c, _, clock := newTestController(t, preset, render.Viewport{Width: 900, Height: 4000, Scale: 1})
	c.SetActive(true)

	clock.Advance(preset.Duration - preset.FadeWindow)
	if c.Status().Phase != Fading {
		t.Fatalf("expected fading, got %s", c.Status().Phase)
	}
	clock.Advance(preset.FadeWindow / 2)
	c.Frame(clock.Now())
	if got := c.Status().Alpha; got < 0.49 || got > 0.51 {
		t.Fatalf("expected alpha near 0.5 halfway through the fade, got %f", got)
	}
	for _, p := range c.Particles() {
		if p.Opacity != c.Status().Alpha {
			t.Fatalf("global fade not applied: particle %f, global %f", p.Opacity, c.Status().Alpha)
		}
	}
}

func TestExampleRunStopsAndClearsAtDuration(t *testing.T) {
	preset := Wave()
	c, surface, clock := newTestController(t, preset, render.Viewport{Width: 1200, Height: 800, Scale: 1})
	c.Trigger(true, 8000*time.Millisecond)

	st := c.Status()
	if st.Particles != 200 || st.Alpha != 1 || st.Phase != Running {
		t.Fatalf("unexpected start status: %+v", st)
	}

	for clock.Now().Sub(c.start) < 8000*time.Millisecond-preset.FadeWindow-frameInterval {
		step(c, clock)
	}
	if c.Status().Phase != Running {
		t.Fatalf("expected running before the fade, got %s", c.Status().Phase)
	}
	for clock.Now().Sub(c.start) < 8000*time.Millisecond-preset.FadeWindow {
		step(c, clock)
	}
	if c.Status().Phase != Fading && c.Status().Phase != Done {
		t.Fatalf("expected fading at duration minus fade window, got %s", c.Status().Phase)
	}

	for clock.Now().Sub(c.start) < 8000*time.Millisecond {
		step(c, clock)
	}
	st = c.Status()
	if st.Phase != Done {
		t.Fatalf("expected done at duration, got %s", st.Phase)
	}
	if st.Particles != 0 {
		t.Fatalf("expected particle set released, got %d", st.Particles)
	}
	if len(surface.rects) != 0 {
		t.Fatalf("expected cleared surface, got %d rects", len(surface.rects))
	}
	if clock.pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", clock.pending())
	}

	// Still active, but the run is over: no further frames render.
	clears := surface.clears
	step(c, clock)
	c.SetActive(true)
	step(c, clock)
	if len(surface.rects) != 0 || surface.clears != clears {
		t.Fatalf("frame rendered after completion")
	}
	if c.Status().Activation != 1 {
		t.Fatalf("expected no restart while active stays true, activation=%d", c.Status().Activation)
	}
}

func TestStopGraceDelaysStopTimer(t *testing.T) {
	preset := Classic()
	c, _, clock := newTestController(t, preset, render.Viewport{Width: 900, Height: 600, Scale: 1})
	c.SetActive(true)
	clock.Advance(preset.Duration)
	if c.Status().Phase != Fading {
		t.Fatalf("expected fading at duration with no frames drawn, got %s", c.Status().Phase)
	}
	clock.Advance(preset.StopGrace)
	if c.Status().Phase != Done {
		t.Fatalf("expected done after the stop grace, got %s", c.Status().Phase)
	}
}

func TestLongDurationKeepsRunning(t *testing.T) {
	tests := []struct {
		name   string
		preset Preset
	}{
		{"classic_with_grace", Classic()},
		{"wave", Wave()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, clock := newTestController(t, tt.preset, render.Viewport{Width: 900, Height: 600, Scale: 1})
			c.Trigger(true, math.MaxInt64-100*time.Millisecond)
			step(c, clock)
			st := c.Status()
			if st.Phase != Running || st.Particles == 0 {
				t.Fatalf("expected a running activation, got %s with %d particles", st.Phase, st.Particles)
			}
		})
	}
}

func TestStopAfterSaturates(t *testing.T) {
	tests := []struct {
		name  string
		d     time.Duration
		grace time.Duration
		want  time.Duration
	}{
		{"plain", 7 * time.Second, 500 * time.Millisecond, 7500 * time.Millisecond},
		{"no_grace_at_max", math.MaxInt64, 0, math.MaxInt64},
		{"overflow", math.MaxInt64 - time.Millisecond, 500 * time.Millisecond, math.MaxInt64},
		{"negative", -time.Second, 500 * time.Millisecond, -500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stopAfter(tt.d, tt.grace); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPhaseNamesMatchVisibility(t *testing.T) {
	tests := []struct {
		phase   Phase
		name    string
		visible bool
	}{
		{Idle, state.EffectIdle, false},
		{Running, state.EffectRunning, true},
		{Fading, state.EffectFading, true},
		{Done, state.EffectDone, false},
		{Cancelled, state.EffectCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.phase.String(); got != tt.name {
				t.Fatalf("String() = %q, want %q", got, tt.name)
			}
			if got := (state.EffectInfo{Phase: tt.phase.String()}).Visible(); got != tt.visible {
				t.Fatalf("Visible() = %v, want %v", got, tt.visible)
			}
		})
	}
}

func TestDeactivateCancelsWithinOneFrame(t *testing.T) {
	c, surface, clock := newTestController(t, Classic(), render.Viewport{Width: 1000, Height: 600, Scale: 1})
	c.SetActive(true)
	for i := 0; i < 10; i++ {
		step(c, clock)
	}
	if len(surface.rects) == 0 {
		t.Fatalf("expected particles on the surface")
	}

	c.SetActive(false)
	if c.Status().Phase != Cancelled {
		t.Fatalf("expected cancelled, got %s", c.Status().Phase)
	}
	if len(surface.rects) != 0 {
		t.Fatalf("expected cleared surface after cancel, got %d rects", len(surface.rects))
	}
	if clock.pending() != 0 {
		t.Fatalf("expected timers cancelled, %d pending", clock.pending())
	}

	step(c, clock)
	if len(surface.rects) != 0 {
		t.Fatalf("frame rendered after cancel")
	}
	clock.Advance(10 * time.Second)
	if c.Status().Phase != Cancelled {
		t.Fatalf("stale timer changed phase to %s", c.Status().Phase)
	}
}

func TestToggleStartsFreshParticleSet(t *testing.T) {
	c, _, clock := newTestController(t, Wave(), render.Viewport{Width: 600, Height: 600, Scale: 1})
	c.SetActive(true)
	step(c, clock)
	first := c.Particles()

	c.Resize(render.Viewport{Width: 1200, Height: 600, Scale: 1})
	c.SetActive(false)
	c.SetActive(true)

	st := c.Status()
	if st.Activation != 2 {
		t.Fatalf("expected second activation, got %d", st.Activation)
	}
	if st.Particles != 200 {
		t.Fatalf("expected particle count for the new width, got %d", st.Particles)
	}
	if len(first) != 100 {
		t.Fatalf("expected 100 particles in the first run, got %d", len(first))
	}
	if clock.pending() != 2 {
		t.Fatalf("expected only the new run's timers pending, got %d", clock.pending())
	}
}

func TestRestartReplacesRun(t *testing.T) {
	c, _, clock := newTestController(t, Classic(), render.Viewport{Width: 900, Height: 600, Scale: 1})
	c.SetActive(true)
	c.Restart()
	if got := c.Status().Activation; got != 2 {
		t.Fatalf("expected activation 2, got %d", got)
	}
	if clock.pending() != 2 {
		t.Fatalf("expected 2 pending timers, got %d", clock.pending())
	}
}

func TestResizeKeepsParticlePositions(t *testing.T) {
	c, surface, clock := newTestController(t, Classic(), render.Viewport{Width: 800, Height: 600, Scale: 1})
	c.SetActive(true)
	step(c, clock)
	before := c.Particles()

	c.Resize(render.Viewport{Width: 1024, Height: 768, Scale: 2})
	if surface.width != 2048 || surface.height != 1536 {
		t.Fatalf("expected surface 2048x1536, got %dx%d", surface.width, surface.height)
	}
	after := c.Particles()
	if len(after) != len(before) {
		t.Fatalf("particle count changed on resize: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].X != after[i].X || before[i].Y != after[i].Y {
			t.Fatalf("particle %d moved on resize", i)
		}
	}
	if c.Status().Activation != 1 {
		t.Fatalf("resize restarted the run")
	}
}

func TestNonPositiveDurationCompletesImmediately(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		t.Run(d.String(), func(t *testing.T) {
			c, surface, clock := newTestController(t, Classic(), render.Viewport{Width: 800, Height: 600, Scale: 1})
			c.Trigger(true, d)
			st := c.Status()
			if st.Phase != Done || st.Particles != 0 {
				t.Fatalf("expected immediate completion, got %+v", st)
			}
			if clock.pending() != 0 {
				t.Fatalf("expected no timers, got %d", clock.pending())
			}
			step(c, clock)
			if len(surface.rects) != 0 {
				t.Fatalf("expected nothing drawn")
			}
		})
	}
}

func TestDurationChangeWhileActiveRestarts(t *testing.T) {
	c, _, _ := newTestController(t, Classic(), render.Viewport{Width: 800, Height: 600, Scale: 1})
	c.Trigger(true, 5*time.Second)
	c.Trigger(true, 5*time.Second)
	if got := c.Status().Activation; got != 1 {
		t.Fatalf("same duration restarted the run, activation=%d", got)
	}
	c.SetDuration(6 * time.Second)
	st := c.Status()
	if st.Activation != 2 || st.Duration != 6*time.Second || st.Phase != Running {
		t.Fatalf("expected restart with the new duration, got %+v", st)
	}
}

func TestDurationChangeAfterRunEndsDoesNotRestart(t *testing.T) {
	c, _, clock := newTestController(t, Classic(), render.Viewport{Width: 800, Height: 600, Scale: 1})
	c.Trigger(true, time.Second)
	clock.Advance(time.Second + Classic().StopGrace)
	if got := c.Status().Phase; got != Done {
		t.Fatalf("expected done, got %s", got)
	}
	c.SetDuration(3 * time.Second)
	st := c.Status()
	if st.Activation != 1 || st.Phase != Done || st.Duration != 3*time.Second {
		t.Fatalf("expected stored duration without a restart, got %+v", st)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, surface, clock := newTestController(t, Wave(), render.Viewport{Width: 800, Height: 600, Scale: 1})
	c.SetActive(true)
	step(c, clock)

	c.Close()
	c.Close()
	clock.Advance(20 * time.Second)
	c.SetActive(true)
	step(c, clock)

	if len(surface.rects) != 0 {
		t.Fatalf("expected cleared surface after close")
	}
	st := c.Status()
	if st.Phase != Cancelled || st.Active {
		t.Fatalf("unexpected status after close: %+v", st)
	}
}

func TestStaleTimerCallbacksAreIgnored(t *testing.T) {
	c, _, _ := newTestController(t, Classic(), render.Viewport{Width: 800, Height: 600, Scale: 1})
	c.SetActive(true)
	c.Restart()
	c.beginFade(1)
	c.finish(1)
	if got := c.Status().Phase; got != Running {
		t.Fatalf("expected the second run untouched, got %s", got)
	}
}

func TestRespawnReentersFromTop(t *testing.T) {
	preset := Wave()
	preset.Speed = Range{50, 50}
	c, _, clock := newTestController(t, preset, render.Viewport{Width: 120, Height: 10, Scale: 1})
	c.SetActive(true)

	// Spawned within [-5, 0], one 50px step takes every particle past 10+30.
	step(c, clock)
	for i, p := range c.Particles() {
		if p.Y != -preset.RespawnOffset {
			t.Fatalf("particle %d at y=%f, expected respawn at %f", i, p.Y, -preset.RespawnOffset)
		}
		if p.Opacity != 1 {
			t.Fatalf("particle %d respawned with opacity %f before the fade", i, p.Opacity)
		}
	}
}

func TestRespawnDuringFadeStaysInvisible(t *testing.T) {
	preset := Wave()
	preset.Speed = Range{50, 50}
	c, _, clock := newTestController(t, preset, render.Viewport{Width: 120, Height: 10, Scale: 1})
	c.SetActive(true)
	clock.Advance(preset.Duration - preset.FadeWindow)
	if c.Status().Phase != Fading {
		t.Fatalf("expected fading, got %s", c.Status().Phase)
	}

	// Every particle respawns on this frame with opacity 0, so the run ends
	// early instead of waiting for the stop timer.
	step(c, clock)
	if got := c.Status().Phase; got != Done {
		t.Fatalf("expected done once every particle is invisible, got %s", got)
	}
}

func TestNilSurfaceIsSilent(t *testing.T) {
	c := New(nil, Classic())
	clock := newManualClock()
	c.Clock = clock
	c.Resize(render.Viewport{Width: 900, Height: 600})
	c.SetActive(true)
	c.Frame(clock.Now())
	clock.Advance(Classic().Duration + Classic().StopGrace)
	if got := c.Status().Phase; got != Done {
		t.Fatalf("expected done, got %s", got)
	}
	c.Close()
}

func TestRotatingPresetDrawsCenteredRects(t *testing.T) {
	c, surface, clock := newTestController(t, Classic(), render.Viewport{Width: 90, Height: 600, Scale: 1})
	c.SetActive(true)
	step(c, clock)
	if len(surface.rects) != 10 {
		t.Fatalf("expected 10 rects, got %d", len(surface.rects))
	}
	for _, r := range surface.rects {
		if !r.rect.Centered {
			t.Fatalf("expected centered rect for rotating preset")
		}
	}

	w, surfaceW, clockW := newTestController(t, Wave(), render.Viewport{Width: 60, Height: 600, Scale: 1})
	w.SetActive(true)
	step(w, clockW)
	for _, r := range surfaceW.rects {
		if r.rect.Centered {
			t.Fatalf("expected top-left anchored rect for wave preset")
		}
	}
}
