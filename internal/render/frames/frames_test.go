package frames

import (
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
)

type footerScreen struct{}

func (footerScreen) Start(ctx context.Context) error { return nil }
func (footerScreen) Stop() error                     { return nil }
func (footerScreen) Draw(d render.Drawer, s state.State) {
	d.DrawTextFooter(s.Caption)
}

func rgbaAt(t *testing.T, r *Renderer, x, y int) color.RGBA {
	t.Helper()
	img := r.Image()
	if img == nil {
		t.Fatalf("no frame drawn")
	}
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func startRenderer(t *testing.T) *Renderer {
	t.Helper()
	r := NewRenderer(filepath.Join(t.TempDir(), "out"), 120, 80)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.SetScreen(footerScreen{})
	return r
}

func TestStartSizesOverlay(t *testing.T) {
	r := NewRenderer(t.TempDir(), 120, 80)
	var got render.Viewport
	r.SetResizeHandler(func(v render.Viewport) { got = v })
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.Width != 120 || got.Height != 80 || got.Scale != 1 {
		t.Fatalf("unexpected viewport %+v", got)
	}

	bad := NewRenderer(t.TempDir(), 0, 80)
	if err := bad.Start(context.Background()); err == nil {
		t.Fatalf("expected error for empty size")
	}
}

func TestRedrawCompositesOverlay(t *testing.T) {
	r := startRenderer(t)
	r.Overlay().FillRect(render.Rect{X: 60, Y: 40, W: 20, H: 10, Angle: 0.3, Centered: true}, color.NRGBA{R: 0xFF, A: 0xFF}, 1)
	r.RedrawWithState(state.State{Caption: "hello"})

	if c := rgbaAt(t, r, 60, 40); c != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Fatalf("expected red particle, got %v", c)
	}
	if c := rgbaAt(t, r, 1, 1); c != render.Background {
		t.Fatalf("expected background, got %v", c)
	}

	r.Overlay().Clear()
	r.RedrawWithState(state.State{})
	if c := rgbaAt(t, r, 60, 40); c != render.Background {
		t.Fatalf("expected cleared overlay, got %v", c)
	}
}

func TestSaveNextWritesNumberedPNG(t *testing.T) {
	r := startRenderer(t)
	if _, err := r.SaveNext(); err == nil {
		t.Fatalf("expected error before the first redraw")
	}
	r.RedrawWithState(state.State{})

	for i := 0; i < 2; i++ {
		if _, err := r.SaveNext(); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	path := filepath.Join(r.Dir, "frame-00001.png")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Fatalf("unexpected image size %v", b)
	}
}

func TestRunLoopRecordsWhileVisible(t *testing.T) {
	r := startRenderer(t)
	r.FPS = 200
	r.MaxFrames = 3

	store := state.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunLoop(ctx, store, nil)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(50 * time.Millisecond)
	if n := r.Saved(); n != 0 {
		t.Fatalf("expected nothing recorded while idle, got %d", n)
	}

	store.UpdateEffect(state.EffectInfo{Phase: "running"})
	deadline := time.Now().Add(5 * time.Second)
	for r.Saved() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 frames, got %d", r.Saved())
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if n := r.Saved(); n != 3 {
		t.Fatalf("expected recording to stop at 3, got %d", n)
	}
}
