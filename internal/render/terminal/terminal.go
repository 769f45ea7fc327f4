// Package terminal renders the effect into a text terminal with tcell, one
// coloured cell per block of virtual pixels.
package terminal

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/rook-computer/confetti/internal/buttons"
	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
)

type Renderer struct {
	// Screen is created with tcell.NewScreen when nil.
	Screen tcell.Screen
	FPS    int

	overlay *Surface
	keys    *buttons.ChanButtons

	mu       sync.Mutex
	current  render.Screen
	onResize func(render.Viewport)
	viewport render.Viewport
	done     chan struct{}
	stopOnce sync.Once
}

func NewRenderer() *Renderer {
	return &Renderer{
		FPS:      render.DefaultFPS,
		overlay:  NewSurface(0, 0),
		keys:     buttons.NewChanButtons(8),
		viewport: render.Viewport{Scale: 1},
		done:     make(chan struct{}),
	}
}

func (r *Renderer) Start(ctx context.Context) error {
	if r.Screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		r.Screen = s
	}
	if err := r.Screen.Init(); err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	r.Screen.HideCursor()
	r.Screen.Clear()
	r.resize()
	go r.pollEvents()
	return nil
}

func (r *Renderer) Stop() error {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.Screen != nil {
			r.Screen.Fini()
		}
	})
	return nil
}

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

// Buttons reports Space, Enter and Escape (or q, Ctrl-C) key presses.
func (r *Renderer) Buttons() *buttons.ChanButtons { return r.keys }

func (r *Renderer) resize() {
	cols, rows := r.Screen.Size()
	v := render.Viewport{Width: float64(cols * CellWidth), Height: float64(rows * CellHeight), Scale: 1}
	r.mu.Lock()
	changed := v != r.viewport
	r.viewport = v
	fn := r.onResize
	r.mu.Unlock()
	if !changed {
		return
	}
	if fn != nil {
		fn(v)
	} else {
		r.overlay.Resize(v.DeviceSize())
	}
}

func (r *Renderer) pollEvents() {
	for {
		select {
		case <-r.done:
			return
		default:
		}
		ev := r.Screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			r.Screen.Sync()
			r.resize()
		case *tcell.EventKey:
			if e, ok := keyEvent(ev); ok {
				r.keys.Emit(e)
			}
		}
	}
}

func keyEvent(ev *tcell.EventKey) (buttons.Event, bool) {
	switch ev.Key() {
	case tcell.KeyEnter:
		return buttons.Burst, true
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return buttons.Exit, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			return buttons.Toggle, true
		case 'q':
			return buttons.Exit, true
		}
	}
	return "", false
}

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
		case <-r.done:
			return
		case now := <-ticker.C:
			if frame != nil {
				frame(now)
			}
			r.RedrawWithState(store.Snapshot())
		}
	}
}

func (r *Renderer) RedrawWithState(snap state.State) {
	if r.Screen == nil {
		return
	}
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	d := &drawer{screen: r.Screen}
	d.FillBackground()
	if current != nil {
		current.Draw(d, snap)
	}
	r.overlay.flush(r.Screen, toRGBA(render.Background))
	r.Screen.Show()
}

func toRGBA(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

type drawer struct {
	screen tcell.Screen
}

func (d *drawer) style() tcell.Style {
	fg, bg := toRGBA(render.Foreground), toRGBA(render.Background)
	return tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(fg.R), int32(fg.G), int32(fg.B))).
		Background(tcell.NewRGBColor(int32(bg.R), int32(bg.G), int32(bg.B)))
}

// Size reports the terminal in virtual pixels.
func (d *drawer) Size() (int, int) {
	cols, rows := d.screen.Size()
	return cols * CellWidth, rows * CellHeight
}

func (d *drawer) FillBackground() {
	d.screen.Fill(' ', d.style())
}

func (d *drawer) DrawTextCentered(text string) {
	cols, rows := d.screen.Size()
	d.text(rows/2, cols, text)
}

func (d *drawer) DrawTextFooter(text string) {
	cols, rows := d.screen.Size()
	d.text(rows-1, cols, text)
}

func (d *drawer) text(row, cols int, text string) {
	runes := []rune(text)
	if len(runes) > cols {
		runes = runes[:cols]
	}
	col := (cols - len(runes)) / 2
	style := d.style()
	for i, ch := range runes {
		d.screen.SetContent(col+i, row, ch, nil, style)
	}
}
