package frames

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"

	"github.com/rook-computer/confetti/internal/render"
)

// Surface rasterizes particles with gg. It is safe for concurrent use.
type Surface struct {
	mu     sync.Mutex
	dc     *gg.Context
	width  int
	height int
}

func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	width, height = max(width, 0), max(height, 0)
	if s.dc != nil && width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	s.dc = nil
	if width > 0 && height > 0 {
		s.dc = gg.NewContext(width, height)
	}
}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return
	}
	s.dc.SetRGBA255(0, 0, 0, 0)
	s.dc.Clear()
}

func (s *Surface) FillRect(rect render.Rect, c color.NRGBA, alpha float64) {
	if alpha <= 0 || rect.W <= 0 || rect.H <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return
	}
	dc := s.dc
	dc.Push()
	defer dc.Pop()
	if rect.Centered {
		dc.Translate(rect.X, rect.Y)
		dc.Rotate(rect.Angle)
		dc.DrawRectangle(-rect.W/2, -rect.H/2, rect.W, rect.H)
	} else {
		dc.DrawRectangle(rect.X, rect.Y, rect.W, rect.H)
	}
	a := float64(c.A) * min(alpha, 1)
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), int(a+0.5))
	dc.Fill()
}

// View calls fn with the current pixels, or nil when the surface is empty.
func (s *Surface) View(fn func(img image.Image)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		fn(nil)
		return
	}
	fn(s.dc.Image())
}
