// Package frames records the effect to numbered PNG files instead of a
// display. It is used for previews and for checking presets headless.
package frames

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
)

type Renderer struct {
	Dir    string
	Width  int
	Height int
	FPS    int
	// MaxFrames stops recording after this many files. Zero means no limit.
	MaxFrames int

	overlay *Surface
	caption font.Face
	footer  font.Face

	mu       sync.Mutex
	current  render.Screen
	onResize func(render.Viewport)
	viewport render.Viewport
	last     *gg.Context
	saved    int
}

func NewRenderer(dir string, width, height int) *Renderer {
	return &Renderer{
		Dir:     dir,
		Width:   width,
		Height:  height,
		FPS:     render.DefaultFPS,
		overlay: NewSurface(0, 0),
	}
}

func (r *Renderer) Start(ctx context.Context) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("frames: invalid size %dx%d", r.Width, r.Height)
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("frames: %w", err)
	}
	r.caption = loadFace(float64(r.Height) / 20)
	r.footer = loadFace(float64(r.Height) / 50)

	v := render.Viewport{Width: float64(r.Width), Height: float64(r.Height), Scale: 1}
	r.mu.Lock()
	r.viewport = v
	fn := r.onResize
	r.mu.Unlock()
	if fn != nil {
		fn(v)
	} else {
		r.overlay.Resize(r.Width, r.Height)
	}
	return nil
}

func loadFace(size float64) font.Face {
	tt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(tt, &truetype.Options{Size: max(size, 6)})
}

func (r *Renderer) Stop() error { return nil }

func (r *Renderer) SetScreen(screen render.Screen) {
	r.mu.Lock()
	r.current = screen
	r.mu.Unlock()
}

func (r *Renderer) SetResizeHandler(fn func(render.Viewport)) {
	r.mu.Lock()
	r.onResize = fn
	r.mu.Unlock()
}

func (r *Renderer) Overlay() render.Surface { return r.overlay }

func (r *Renderer) Viewport() render.Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

// Saved reports how many frames have been written.
func (r *Renderer) Saved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}

// RunLoop composites every tick and writes a PNG while the effect is
// visible.
func (r *Renderer) RunLoop(ctx context.Context, store *state.Store, frame render.FrameFunc) {
	fps := r.FPS
	if fps <= 0 {
		fps = render.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if frame != nil {
				frame(now)
			}
			snap := store.Snapshot()
			r.RedrawWithState(snap)
			if !recording(snap) {
				continue
			}
			if r.MaxFrames > 0 && r.Saved() >= r.MaxFrames {
				continue
			}
			if _, err := r.SaveNext(); err != nil {
				store.SetError(err)
				return
			}
		}
	}
}

func recording(snap state.State) bool {
	return snap.Effect.Visible()
}

func (r *Renderer) RedrawWithState(snap state.State) {
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	dc := gg.NewContext(r.Width, r.Height)
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	d := &drawer{dc: dc, caption: r.caption, footer: r.footer}
	d.FillBackground()
	if current != nil {
		current.Draw(d, snap)
	}
	r.overlay.View(func(img image.Image) {
		if img != nil {
			dc.DrawImage(img, 0, 0)
		}
	})

	r.mu.Lock()
	r.last = dc
	r.mu.Unlock()
}

// Image returns the last composited frame.
func (r *Renderer) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	return r.last.Image()
}

// SaveNext writes the last composited frame to the next numbered file.
func (r *Renderer) SaveNext() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return "", fmt.Errorf("frames: nothing drawn")
	}
	path := filepath.Join(r.Dir, fmt.Sprintf("frame-%05d.png", r.saved))
	if err := r.last.SavePNG(path); err != nil {
		return "", fmt.Errorf("frames: save %s: %w", path, err)
	}
	r.saved++
	return path, nil
}

type drawer struct {
	dc      *gg.Context
	caption font.Face
	footer  font.Face
}

func (d *drawer) Size() (int, int) { return d.dc.Width(), d.dc.Height() }

func (d *drawer) FillBackground() {
	d.dc.SetColor(render.Background)
	d.dc.Clear()
}

func (d *drawer) DrawTextCentered(text string) {
	d.text(text, d.caption, float64(d.dc.Height())/2, 0.5)
}

func (d *drawer) DrawTextFooter(text string) {
	d.text(text, d.footer, float64(d.dc.Height())*0.95, 1)
}

func (d *drawer) DrawImage(img image.Image, at image.Point) {
	d.dc.DrawImage(img, at.X, at.Y)
}

func (d *drawer) text(text string, face font.Face, y, anchorY float64) {
	if face != nil {
		d.dc.SetFontFace(face)
	}
	d.dc.SetColor(render.Foreground)
	d.dc.DrawStringAnchored(text, float64(d.dc.Width())/2, y, 0.5, anchorY)
}
