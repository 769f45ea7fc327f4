package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/vector"
)

// Canvas is an offscreen RGBA surface. Rectangles are rasterized with
// anti-aliased edges and composited with source-over. Canvas is safe for
// concurrent use; View gives readers a consistent frame.
type Canvas struct {
	mu     sync.Mutex
	img    *image.RGBA
	raster vector.Rasterizer
}

func NewCanvas(width, height int) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))}
}

// Image exposes the backing pixels without locking. The image is replaced
// on Resize.
func (c *Canvas) Image() *image.RGBA { return c.img }

// View calls fn with the backing pixels while holding the canvas lock.
func (c *Canvas) View(fn func(img *image.RGBA)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.img)
}

func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	width, height = max(width, 0), max(height, 0)
	if b := c.img.Bounds(); b.Dx() == width && b.Dy() == height {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	clear(c.img.Pix)
	c.mu.Unlock()
}

func (c *Canvas) FillRect(rect Rect, col color.NRGBA, alpha float64) {
	if alpha <= 0 || rect.W <= 0 || rect.H <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if alpha > 1 {
		alpha = 1
	}
	minX, minY, maxX, maxY := rect.Bounds()
	area := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(c.img.Bounds())
	if area.Empty() {
		return
	}

	// The rasterizer covers only the clipped area; path points outside of it
	// are clamped by the rasterizer.
	ox, oy := float64(area.Min.X), float64(area.Min.Y)
	c.raster.Reset(area.Dx(), area.Dy())
	c.raster.DrawOp = draw.Over
	corners := rect.Corners()
	c.raster.MoveTo(float32(corners[0][0]-ox), float32(corners[0][1]-oy))
	for _, p := range corners[1:] {
		c.raster.LineTo(float32(p[0]-ox), float32(p[1]-oy))
	}
	c.raster.ClosePath()

	col.A = uint8(math.Round(float64(col.A) * alpha))
	c.raster.Draw(c.img, area, image.NewUniform(col), image.Point{})
}
