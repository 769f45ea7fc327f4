package window

import (
	"image/color"
	"sync"

	"github.com/rook-computer/confetti/internal/render"
)

type drawCmd struct {
	rect  render.Rect
	color color.NRGBA
	alpha float64
}

// Surface records the rectangles of the current frame. The game replays the
// list onto the screen image on every Draw.
type Surface struct {
	mu     sync.Mutex
	width  int
	height int
	cmds   []drawCmd
}

func NewSurface(width, height int) *Surface {
	return &Surface{width: max(width, 0), height: max(height, 0)}
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = max(width, 0), max(height, 0)
	s.mu.Unlock()
}

func (s *Surface) Clear() {
	s.mu.Lock()
	s.cmds = s.cmds[:0]
	s.mu.Unlock()
}

func (s *Surface) FillRect(rect render.Rect, c color.NRGBA, alpha float64) {
	if alpha <= 0 || rect.W <= 0 || rect.H <= 0 {
		return
	}
	s.mu.Lock()
	s.cmds = append(s.cmds, drawCmd{rect: rect, color: c, alpha: min(alpha, 1)})
	s.mu.Unlock()
}

// snapshot copies the display list into dst.
func (s *Surface) snapshot(dst []drawCmd) []drawCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(dst[:0], s.cmds...)
}
