package terminal

import (
	"context"
	"image/color"
	"sync"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/rook-computer/confetti/internal/buttons"
	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
)

type captionScreen struct{}

func (captionScreen) Start(ctx context.Context) error { return nil }
func (captionScreen) Stop() error                     { return nil }
func (captionScreen) Draw(d render.Drawer, s state.State) {
	d.DrawTextCentered(s.Caption)
	d.DrawTextFooter("foot")
}

func startRenderer(t *testing.T, cols, rows int) (*Renderer, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	r := NewRenderer()
	r.Screen = sim
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = r.Stop() })
	sim.SetSize(cols, rows)
	r.resize()
	return r, sim
}

func TestViewportFollowsTerminalSize(t *testing.T) {
	r, _ := startRenderer(t, 10, 5)
	var (
		mu  sync.Mutex
		got render.Viewport
	)
	r.SetResizeHandler(func(v render.Viewport) {
		mu.Lock()
		got = v
		mu.Unlock()
	})

	if v := r.Viewport(); v.Width != 80 || v.Height != 80 || v.Scale != 1 {
		t.Fatalf("unexpected viewport %+v", v)
	}
	if w, h := r.overlay.Size(); w != 80 || h != 80 {
		t.Fatalf("expected overlay resized without a handler, got %dx%d", w, h)
	}

	r.Screen.(tcell.SimulationScreen).SetSize(20, 10)
	r.resize()
	mu.Lock()
	defer mu.Unlock()
	if got.Width != 160 || got.Height != 160 {
		t.Fatalf("expected resize handler with 160x160, got %+v", got)
	}
}

func TestRedrawDrawsCaptionAndParticles(t *testing.T) {
	r, sim := startRenderer(t, 10, 5)
	r.SetScreen(captionScreen{})

	// Centre of cell (2, 1).
	r.Overlay().FillRect(render.Rect{X: 20, Y: 24, W: 4, H: 4, Centered: true}, color.NRGBA{R: 0xFF, A: 0xFF}, 1)
	r.RedrawWithState(state.State{Caption: "hi"})

	ch, _, style, _ := sim.GetContent(2, 1)
	if ch != '▬' {
		t.Fatalf("expected a particle glyph, got %q", ch)
	}
	fg, _, _ := style.Decompose()
	if fg != tcell.NewRGBColor(0xFF, 0, 0) {
		t.Fatalf("expected red particle, got %v", fg)
	}

	if ch, _, _, _ := sim.GetContent(4, 2); ch != 'h' {
		t.Fatalf("expected caption at the centre row, got %q", ch)
	}
	if ch, _, _, _ := sim.GetContent(3, 4); ch != 'f' {
		t.Fatalf("expected footer on the last row, got %q", ch)
	}

	r.Overlay().Clear()
	r.RedrawWithState(state.State{})
	if ch, _, _, _ := sim.GetContent(2, 1); ch != ' ' {
		t.Fatalf("expected cleared cell, got %q", ch)
	}
}

func TestSurfaceBlendsAndClips(t *testing.T) {
	s := NewSurface(16, 16)
	if cols, rows := s.Grid(); cols != 2 || rows != 1 {
		t.Fatalf("unexpected grid %dx%d", cols, rows)
	}
	bg := color.RGBA{A: 0xFF}

	s.FillRect(render.Rect{X: 0, Y: 0, W: 8, H: 16}, color.NRGBA{B: 0xFF, A: 0xFF}, 0.5)
	c, ok := s.At(0, 0, bg)
	if !ok || c.B != 0x80 || c.R != 0 {
		t.Fatalf("expected half blue, got %v %v", c, ok)
	}

	// Outside the grid and zero alpha are ignored.
	s.FillRect(render.Rect{X: -5, Y: 4, W: 2, H: 2, Centered: true}, color.NRGBA{R: 0xFF, A: 0xFF}, 1)
	s.FillRect(render.Rect{X: 12, Y: 4, W: 2, H: 2, Centered: true}, color.NRGBA{R: 0xFF, A: 0xFF}, 0)
	if _, ok := s.At(1, 0, bg); ok {
		t.Fatalf("expected untouched cell")
	}
}

func TestKeyEvents(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want buttons.Event
		ok   bool
	}{
		{"space", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), buttons.Toggle, true},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), buttons.Burst, true},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), buttons.Exit, true},
		{"q", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), buttons.Exit, true},
		{"other", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyEvent(tt.ev)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("expected %q/%v, got %q/%v", tt.want, tt.ok, got, ok)
			}
		})
	}
}
