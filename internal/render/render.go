package render

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/rook-computer/confetti/internal/state"
)

// Renderer owns a display, a backdrop screen and the overlay surface the
// confetti controller draws into.
type Renderer interface {
	Start(ctx context.Context) error
	Stop() error
	SetScreen(screen Screen)
	SetResizeHandler(fn func(Viewport))
	Overlay() Surface
	Viewport() Viewport
	RunLoop(ctx context.Context, store *state.Store, frame FrameFunc)
	RedrawWithState(snap state.State)
}

// FrameFunc is invoked once per display frame, before the renderer composites
// the backdrop and the overlay.
type FrameFunc func(now time.Time)

type Screen interface {
	Start(ctx context.Context) error
	Stop() error
	Draw(r Drawer, s state.State)
}

// Drawer is an abstraction the renderer provides to screens to draw the
// backdrop without exposing display details.
type Drawer interface {
	// Size returns the logical canvas size (in pixels) that screens draw into.
	Size() (width int, height int)

	FillBackground()
	DrawTextCentered(text string)
	// DrawTextFooter draws a small line of text near the bottom edge.
	DrawTextFooter(text string)
}

// ImageDrawer is implemented by drawers backed by a raster canvas.
type ImageDrawer interface {
	// DrawImage draws img unscaled with its top-left corner at at.
	DrawImage(img image.Image, at image.Point)
}

// Surface is a drawing target sized in device pixels.
// The controller serializes its own calls. Surfaces that hosts read from
// another goroutine guard their pixels themselves.
type Surface interface {
	Size() (width, height int)
	Resize(width, height int)
	Clear()
	FillRect(rect Rect, c color.NRGBA, alpha float64)
}

// Rect is a filled rectangle in device pixels.
// With Centered set, (X, Y) is the rectangle centre and Angle (radians)
// rotates it around that centre. Otherwise (X, Y) is the top-left corner and
// Angle is ignored.
type Rect struct {
	X, Y     float64
	W, H     float64
	Angle    float64
	Centered bool
}

// Corners returns the four corners in drawing order.
func (r Rect) Corners() [4][2]float64 {
	if !r.Centered {
		return [4][2]float64{
			{r.X, r.Y},
			{r.X + r.W, r.Y},
			{r.X + r.W, r.Y + r.H},
			{r.X, r.Y + r.H},
		}
	}
	sin, cos := math.Sincos(r.Angle)
	hw, hh := r.W/2, r.H/2
	local := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	var out [4][2]float64
	for i, p := range local {
		out[i] = [2]float64{
			r.X + p[0]*cos - p[1]*sin,
			r.Y + p[0]*sin + p[1]*cos,
		}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the rectangle.
func (r Rect) Bounds() (minX, minY, maxX, maxY float64) {
	corners := r.Corners()
	minX, minY = corners[0][0], corners[0][1]
	maxX, maxY = minX, minY
	for _, c := range corners[1:] {
		minX = math.Min(minX, c[0])
		minY = math.Min(minY, c[1])
		maxX = math.Max(maxX, c[0])
		maxY = math.Max(maxY, c[1])
	}
	return minX, minY, maxX, maxY
}

// Viewport describes the visible area in logical pixels and the device
// pixel ratio used to size surfaces.
type Viewport struct {
	Width  float64
	Height float64
	Scale  float64
}

// Normalize returns v with a usable scale and non-negative dimensions.
func (v Viewport) Normalize() Viewport {
	if v.Scale <= 0 || math.IsNaN(v.Scale) {
		v.Scale = 1
	}
	if v.Width < 0 {
		v.Width = 0
	}
	if v.Height < 0 {
		v.Height = 0
	}
	return v
}

// DeviceSize returns the surface size in device pixels.
func (v Viewport) DeviceSize() (width, height int) {
	v = v.Normalize()
	return int(math.Ceil(v.Width * v.Scale)), int(math.Ceil(v.Height * v.Scale))
}

// ViewportFromDevice builds a viewport for a surface measured in device pixels.
func ViewportFromDevice(width, height int, scale float64) Viewport {
	v := Viewport{Scale: scale}.Normalize()
	v.Width = float64(width) / v.Scale
	v.Height = float64(height) / v.Scale
	return v
}

// Stub implementations
type NoopRenderer struct{}

func (n *NoopRenderer) Start(ctx context.Context) error                                  { return nil }
func (n *NoopRenderer) Stop() error                                                      { return nil }
func (n *NoopRenderer) SetScreen(screen Screen)                                          {}
func (n *NoopRenderer) SetResizeHandler(fn func(Viewport))                               {}
func (n *NoopRenderer) Overlay() Surface                                                 { return nil }
func (n *NoopRenderer) Viewport() Viewport                                               { return Viewport{Scale: 1} }
func (n *NoopRenderer) RunLoop(ctx context.Context, store *state.Store, frame FrameFunc) {}
func (n *NoopRenderer) RedrawWithState(snap state.State)                                 {}
