package terminal

import (
	"image/color"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/rook-computer/confetti/internal/render"
)

// A terminal cell stands in for a block of virtual device pixels, roughly
// matching the aspect of a monospace glyph.
const (
	CellWidth  = 8
	CellHeight = 16
)

type cell struct {
	r, g, b, a float64 // premultiplied
}

// Surface maps particles onto terminal cells. Each rectangle colours the
// cell under its centre, blended by alpha over what is already there.
type Surface struct {
	mu     sync.Mutex
	width  int
	height int
	cols   int
	rows   int
	cells  []cell
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
	s.width, s.height = max(width, 0), max(height, 0)
	s.cols = (s.width + CellWidth - 1) / CellWidth
	s.rows = (s.height + CellHeight - 1) / CellHeight
	s.cells = make([]cell, s.cols*s.rows)
}

func (s *Surface) Clear() {
	s.mu.Lock()
	clear(s.cells)
	s.mu.Unlock()
}

func (s *Surface) FillRect(rect render.Rect, c color.NRGBA, alpha float64) {
	if alpha <= 0 || rect.W <= 0 || rect.H <= 0 {
		return
	}
	cx, cy := rect.X, rect.Y
	if !rect.Centered {
		cx, cy = rect.X+rect.W/2, rect.Y+rect.H/2
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col := int(math.Floor(cx / CellWidth))
	row := int(math.Floor(cy / CellHeight))
	if col < 0 || row < 0 || col >= s.cols || row >= s.rows {
		return
	}
	a := math.Min(alpha, 1) * float64(c.A) / 0xFF
	dst := &s.cells[row*s.cols+col]
	inv := 1 - a
	dst.r = float64(c.R)/0xFF*a + dst.r*inv
	dst.g = float64(c.G)/0xFF*a + dst.g*inv
	dst.b = float64(c.B)/0xFF*a + dst.b*inv
	dst.a = a + dst.a*inv
}

// Grid returns the cell grid size.
func (s *Surface) Grid() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// At returns the colour of a cell composited over bg, and whether anything
// was drawn there.
func (s *Surface) At(col, row int, bg color.RGBA) (color.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col < 0 || row < 0 || col >= s.cols || row >= s.rows {
		return bg, false
	}
	return composite(s.cells[row*s.cols+col], bg)
}

func composite(c cell, bg color.RGBA) (color.RGBA, bool) {
	if c.a <= 0 {
		return bg, false
	}
	inv := 1 - c.a
	mix := func(src float64, dst uint8) uint8 {
		return uint8(math.Round(math.Min(1, src+float64(dst)/0xFF*inv) * 0xFF))
	}
	return color.RGBA{R: mix(c.r, bg.R), G: mix(c.g, bg.G), B: mix(c.b, bg.B), A: 0xFF}, true
}

// flush writes every drawn cell to screen.
func (s *Surface) flush(screen tcell.Screen, bg color.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			c, ok := composite(s.cells[row*s.cols+col], bg)
			if !ok {
				continue
			}
			style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))).
				Background(tcell.NewRGBColor(int32(bg.R), int32(bg.G), int32(bg.B)))
			screen.SetContent(col, row, '▬', nil, style)
		}
	}
}
