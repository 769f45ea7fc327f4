// Package window hosts the effect in a desktop window. Ebiten drives the
// frame loop; the renderer only hands it the frame callback and the store.
package window

import (
	"context"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/rook-computer/confetti/internal/buttons"
	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
)

// debug font cell size of ebitenutil.DebugPrint
const (
	glyphWidth  = 6
	glyphHeight = 16
)

type Renderer struct {
	Title string

	overlay *Surface
	keys    *buttons.ChanButtons

	mu       sync.Mutex
	screen   render.Screen
	onResize func(render.Viewport)
	viewport render.Viewport
	devW     int
	devH     int
	store    *state.Store
	frame    render.FrameFunc
	closed   bool
}

func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		Title:    "confetti",
		overlay:  NewSurface(width, height),
		keys:     buttons.NewChanButtons(8),
		viewport: render.Viewport{Width: float64(width), Height: float64(height), Scale: 1},
	}
}

func (r *Renderer) Start(ctx context.Context) error {
	ebiten.SetWindowTitle(r.Title)
	return nil
}

// Stop makes the game return ebiten.Termination on its next update.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	r.closed = true
	r.frame = nil
	r.mu.Unlock()
	return nil
}

func (r *Renderer) SetScreen(screen render.Screen) {
	r.mu.Lock()
	r.screen = screen
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

// Buttons reports Space, Enter and Escape presses in the window.
func (r *Renderer) Buttons() *buttons.ChanButtons { return r.keys }

// RunLoop hands frame to the game and blocks until ctx is done.
func (r *Renderer) RunLoop(ctx context.Context, store *state.Store, frame render.FrameFunc) {
	r.mu.Lock()
	r.store = store
	r.frame = frame
	r.mu.Unlock()
	<-ctx.Done()
	r.mu.Lock()
	r.frame = nil
	r.mu.Unlock()
}

// RedrawWithState is a no-op; ebiten redraws every frame.
func (r *Renderer) RedrawWithState(snap state.State) {}

// Game returns the ebiten game to pass to ebiten.RunGame.
func (r *Renderer) Game() ebiten.Game { return &game{r: r} }

type game struct {
	r     *Renderer
	pixel *ebiten.Image
	cmds  []drawCmd
}

func (g *game) Update() error {
	r := g.r
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		r.keys.Emit(buttons.Toggle)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		r.keys.Emit(buttons.Burst)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		r.keys.Emit(buttons.Exit)
	}

	r.mu.Lock()
	closed, frame := r.closed, r.frame
	r.mu.Unlock()
	if closed {
		return ebiten.Termination
	}
	if frame != nil {
		frame(time.Now())
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	r := g.r
	r.mu.Lock()
	current, store := r.screen, r.store
	r.mu.Unlock()

	d := &drawer{dst: screen}
	d.FillBackground()
	if current != nil && store != nil {
		current.Draw(d, store.Snapshot())
	}

	if g.pixel == nil {
		g.pixel = ebiten.NewImage(1, 1)
		g.pixel.Fill(color.White)
	}
	g.cmds = r.overlay.snapshot(g.cmds)
	for _, cmd := range g.cmds {
		g.drawRect(screen, cmd)
	}
}

func (g *game) drawRect(dst *ebiten.Image, cmd drawCmd) {
	rect := cmd.rect
	if !rect.Centered {
		c := cmd.color
		c.A = uint8(float64(c.A)*cmd.alpha + 0.5)
		vector.FillRect(dst, float32(rect.X), float32(rect.Y), float32(rect.W), float32(rect.H), c, true)
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(rect.W, rect.H)
	op.GeoM.Translate(-rect.W/2, -rect.H/2)
	op.GeoM.Rotate(rect.Angle)
	op.GeoM.Translate(rect.X, rect.Y)
	op.ColorScale.ScaleWithColor(cmd.color)
	op.ColorScale.ScaleAlpha(float32(cmd.alpha))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(g.pixel, op)
}

// Layout renders at device resolution so rectangle edges stay sharp on
// high-DPI displays.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	r := g.r
	v, w, h := deviceLayout(outsideWidth, outsideHeight, ebiten.Monitor().DeviceScaleFactor())

	r.mu.Lock()
	changed := w != r.devW || h != r.devH || v.Scale != r.viewport.Scale
	r.viewport, r.devW, r.devH = v, w, h
	fn := r.onResize
	r.mu.Unlock()

	if changed && fn != nil {
		fn(v)
	}
	return w, h
}

func deviceLayout(outsideWidth, outsideHeight int, scale float64) (render.Viewport, int, int) {
	v := render.Viewport{Width: float64(outsideWidth), Height: float64(outsideHeight), Scale: scale}.Normalize()
	w, h := v.DeviceSize()
	return v, w, h
}

type drawer struct {
	dst *ebiten.Image
}

func (d *drawer) Size() (int, int) {
	b := d.dst.Bounds()
	return b.Dx(), b.Dy()
}

func (d *drawer) FillBackground() { d.dst.Fill(render.Background) }

func (d *drawer) DrawTextCentered(text string) {
	w, h := d.Size()
	ebitenutil.DebugPrintAt(d.dst, text, (w-len(text)*glyphWidth)/2, (h-glyphHeight)/2)
}

func (d *drawer) DrawTextFooter(text string) {
	w, h := d.Size()
	ebitenutil.DebugPrintAt(d.dst, text, (w-len(text)*glyphWidth)/2, h-2*glyphHeight)
}
