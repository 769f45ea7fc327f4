package screens

import (
	"context"
	"fmt"
	"image"

	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/render/layout"
	"github.com/rook-computer/confetti/internal/state"
)

const (
	qrFraction = 0.2
	qrPadding  = 24
)

// MainScreen is the backdrop under the confetti overlay: the caption in the
// middle and the trigger URL at the bottom. On raster drawers the URL is
// also shown as a QR code while no run is on screen.
type MainScreen struct {
	// ShowStatus appends the effect phase to the footer.
	ShowStatus bool

	qrPayload string
	qrSide    int
	qr        image.Image
}

func (*MainScreen) Start(ctx context.Context) error { return nil }
func (*MainScreen) Stop() error                     { return nil }

func (s *MainScreen) Draw(r render.Drawer, st state.State) {
	r.FillBackground()
	if st.Phase == state.ERROR {
		r.DrawTextCentered("error")
		r.DrawTextFooter(st.Err)
		return
	}
	r.DrawTextCentered(captionFor(st))
	r.DrawTextFooter(footerFor(st, s.ShowStatus))

	if id, ok := r.(render.ImageDrawer); ok && showQR(st) {
		s.drawQR(id, r, st.Network.URL)
	}
}

func showQR(st state.State) bool {
	if st.Phase != state.READY || st.Network.URL == "" {
		return false
	}
	return !st.Effect.Visible()
}

func (s *MainScreen) drawQR(id render.ImageDrawer, r render.Drawer, url string) {
	w, h := r.Size()
	rect := layout.CornerSquare(image.Rect(0, 0, w, h), qrFraction, qrPadding)
	if rect.Empty() {
		return
	}
	if s.qr == nil || s.qrPayload != url || s.qrSide != rect.Dx() {
		img, err := render.GenerateQRCodeImage(url, rect.Dx())
		if err != nil || img == nil {
			return
		}
		s.qr, s.qrPayload, s.qrSide = img, url, rect.Dx()
	}
	id.DrawImage(s.qr, rect.Min)
}

func captionFor(st state.State) string {
	if st.Phase == state.BOOTING {
		return "starting"
	}
	if st.Caption == "" {
		return "ready"
	}
	return st.Caption
}

func footerFor(st state.State, showStatus bool) string {
	footer := ""
	if st.Network.URL != "" {
		footer = "POST " + st.Network.URL
	}
	if !showStatus {
		return footer
	}
	status := fmt.Sprintf("%s #%d, %d particles", st.Effect.Phase, st.Effect.Activation, st.Effect.Particles)
	if footer == "" {
		return status
	}
	return footer + "  |  " + status
}
