package render

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/freetype/truetype"
	fb "github.com/gonutz/framebuffer"
	"github.com/rook-computer/confetti/internal/state"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// FBRenderer renders to the Linux framebuffer. The backdrop is drawn on an
// offscreen logical canvas and scaled; the confetti overlay is kept at the
// framebuffer's own resolution so rectangle edges stay crisp.
type FBRenderer struct {
	// Device defaults to /dev/fb0.
	Device string
	// FPS defaults to FBDefaultFPS.
	FPS int

	fbDev     *fb.Device
	canvas    *image.RGBA
	overlay   *Canvas
	viewport  Viewport
	fontFace  font.Face
	smallFace font.Face
	running   atomic.Bool

	mu       sync.Mutex
	current  Screen
	onResize func(Viewport)

	Logger interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}
	Debug bool
}

func NewFBRenderer() *FBRenderer { return &FBRenderer{} }

func (r *FBRenderer) Start(ctx context.Context) error {
	path := r.Device
	if path == "" {
		path = "/dev/fb0"
	}
	dev, err := fb.Open(path)
	if err != nil {
		return err
	}
	r.fbDev = dev
	bounds := dev.Bounds()
	if r.Logger != nil {
		r.Logger.Infof("fb", "framebuffer %s open, bounds=%dx%d", path, bounds.Dx(), bounds.Dy())
	}

	// Prepare logical canvas
	r.canvas = image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))

	// The overlay scale is the framebuffer-to-logical ratio; the confetti
	// controller sizes the overlay from this viewport.
	r.viewport = Viewport{
		Width:  float64(CanvasWidth),
		Height: float64(CanvasHeight),
		Scale:  float64(bounds.Dx()) / float64(CanvasWidth),
	}.Normalize()
	w, h := r.viewport.DeviceSize()
	r.overlay = NewCanvas(w, h)

	r.fontFace = loadCaptionFace(48, r.Logger)
	r.smallFace = loadCaptionFace(20, r.Logger)

	r.running.Store(true)
	r.notifyResize(r.viewport)
	return nil
}

func (r *FBRenderer) Stop() error {
	r.running.Store(false)
	if r.fbDev != nil {
		r.fbDev.Close()
	}
	return nil
}

// SetScreen sets the backdrop screen drawn under the overlay.
func (r *FBRenderer) SetScreen(screen Screen) {
	r.mu.Lock()
	r.current = screen
	r.mu.Unlock()
}

// SetResizeHandler registers fn to receive viewport changes. The framebuffer
// has a fixed mode, so fn is called once when the renderer starts.
func (r *FBRenderer) SetResizeHandler(fn func(Viewport)) {
	r.mu.Lock()
	r.onResize = fn
	r.mu.Unlock()
}

func (r *FBRenderer) notifyResize(v Viewport) {
	r.mu.Lock()
	fn := r.onResize
	r.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

func (r *FBRenderer) Overlay() Surface {
	if r.overlay == nil {
		return nil
	}
	return r.overlay
}

func (r *FBRenderer) Viewport() Viewport { return r.viewport }

// RedrawWithState draws the backdrop, composites the overlay and blits.
func (r *FBRenderer) RedrawWithState(snap state.State) {
	if !r.running.Load() || r.fbDev == nil {
		return
	}
	r.mu.Lock()
	screen := r.current
	r.mu.Unlock()

	// Clear canvas to background each frame for consistent rendering
	r.FillBackground()
	if screen != nil {
		screen.Draw(r, snap)
	}
	r.overlay.View(func(overlay *image.RGBA) {
		_ = blitToFB(r.fbDev, r.canvas, overlay)
	})
}

func (r *FBRenderer) frameRate() int {
	if r.FPS <= 0 {
		return FBDefaultFPS
	}
	return r.FPS
}

// RunLoop calls frame and redraws at FPS until the context is done.
func (r *FBRenderer) RunLoop(ctx context.Context, store *state.Store, frame FrameFunc) {
	ticker := time.NewTicker(time.Second / time.Duration(r.frameRate()))
	defer ticker.Stop()
	lastLog := time.Now()
	frames := 0
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
			frames++
			if r.Logger != nil && r.Debug && time.Since(lastLog) > time.Second {
				r.Logger.Infof("fb", "heartbeat %d frames, effect=%s particles=%d", frames, snap.Effect.Phase, snap.Effect.Particles)
				lastLog = time.Now()
				frames = 0
			}
		}
	}
}

// Drawer primitives
func (r *FBRenderer) Size() (int, int) { return CanvasWidth, CanvasHeight }

func (r *FBRenderer) FillBackground() {
	draw.Draw(r.canvas, r.canvas.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
}

func (r *FBRenderer) DrawTextCentered(text string) {
	// Ensure we have a font face
	if r.fontFace == nil {
		r.fontFace = basicfont.Face7x13
		if r.Logger != nil {
			r.Logger.Errorf("fb", "fontFace nil at draw, defaulting to basicfont")
		}
	}
	ascent := r.fontFace.Metrics().Ascent.Ceil()
	drawTextCentered(r.canvas, text, CanvasHeight/2+ascent/2, Foreground, r.fontFace)
}

func (r *FBRenderer) DrawTextFooter(text string) {
	face := r.smallFace
	if face == nil {
		face = basicfont.Face7x13
	}
	drawTextCentered(r.canvas, text, CanvasHeight-face.Metrics().Height.Ceil(), Foreground, face)
}

func (r *FBRenderer) DrawImage(img image.Image, at image.Point) {
	dst := image.Rectangle{Min: at, Max: at.Add(img.Bounds().Size())}
	draw.Draw(r.canvas, dst, img, img.Bounds().Min, draw.Over)
}

// loadCaptionFace parses the embedded Go font with freetype. It falls back to
// basicfont when parsing fails.
func loadCaptionFace(size float64, logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}) font.Face {
	tt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		if logger != nil {
			logger.Errorf("fb", "truetype parse failed, using basicfont: %v", err)
		}
		return basicfont.Face7x13
	}
	if logger != nil {
		logger.Infof("fb", "loaded caption font at %.0fpt", size)
	}
	return truetype.NewFace(tt, &truetype.Options{Size: size, DPI: 96, Hinting: font.HintingFull})
}

// Helper: composite the overlay over the NN-scaled canvas, straight into the
// framebuffer. The overlay is expected at framebuffer resolution.
func blitToFB(dev draw.Image, canvas, overlay *image.RGBA) error {
	if dev == nil {
		return nil
	}
	bounds := dev.Bounds()
	fbWidth := bounds.Dx()
	fbHeight := bounds.Dy()
	ob := overlay.Bounds()
	for y := 0; y < fbHeight; y++ {
		sy := (y * CanvasHeight) / fbHeight
		for x := 0; x < fbWidth; x++ {
			sx := (x * CanvasWidth) / fbWidth
			pixel := canvas.RGBAAt(sx, sy)
			if x < ob.Max.X && y < ob.Max.Y {
				pixel = over(overlay.RGBAAt(x, y), pixel)
			}
			dev.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
	return nil
}

// over composites premultiplied src onto dst.
func over(src, dst color.RGBA) color.RGBA {
	if src.A == 0 {
		return dst
	}
	if src.A == 0xFF {
		return src
	}
	inv := uint32(0xFF - src.A)
	return color.RGBA{
		R: src.R + uint8(uint32(dst.R)*inv/0xFF),
		G: src.G + uint8(uint32(dst.G)*inv/0xFF),
		B: src.B + uint8(uint32(dst.B)*inv/0xFF),
		A: src.A + uint8(uint32(dst.A)*inv/0xFF),
	}
}

// Helper: centered text drawing with foreground color and font face.
func drawTextCentered(img *image.RGBA, text string, baselineY int, fg color.Color, face font.Face) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: fg},
		Face: face,
	}
	textWidth := drawer.MeasureString(text).Ceil()
	xPos := (img.Bounds().Dx() - textWidth) / 2
	drawer.Dot = fixed.P(xPos, baselineY)
	drawer.DrawString(text)
}
