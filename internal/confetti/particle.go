package confetti

import (
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/rook-computer/confetti/internal/render"
)

// Particle is one confetti rectangle. Position and size are in device pixels.
type Particle struct {
	X, Y  float64
	W, H  float64
	Color color.NRGBA

	// Speed is the descent in logical pixels per frame.
	Speed float64
	// Angle is the rotation in degrees; only rotating presets advance it.
	Angle float64

	Zigzag    float64
	ZigzagDir float64

	Amplitude float64
	Frequency float64
	Phase     float64

	Opacity float64

	// base is 0 for particles that re-entered after the fade started.
	base float64
}

func spawn(p *Preset, rng *rand.Rand, width, height, scale float64) Particle {
	depth := p.SpawnDepth.sample(rng)
	pt := Particle{
		X:       rng.Float64() * width,
		Y:       -height * depth * rng.Float64(),
		W:       p.Width.sample(rng) * scale,
		H:       p.Height.sample(rng) * scale,
		Speed:   p.Speed.sample(rng),
		Opacity: 1,
		base:    1,
	}
	if len(p.Palette) > 0 {
		pt.Color = p.Palette[rng.IntN(len(p.Palette))]
	}
	switch p.Drift {
	case DriftZigzag:
		pt.Zigzag = p.Zigzag.sample(rng)
		pt.ZigzagDir = 1
		if rng.Float64() < 0.5 {
			pt.ZigzagDir = -1
		}
	case DriftWave:
		pt.Amplitude = p.Amplitude.sample(rng)
		pt.Frequency = p.Frequency.sample(rng)
		pt.Phase = rng.Float64() * 2 * math.Pi
	}
	if p.Rotate {
		pt.Angle = rng.Float64() * 360
	}
	return pt
}

// advance moves the particle by one frame. elapsed is the time since the
// activation started, in seconds.
func (pt *Particle) advance(p *Preset, elapsed, scale float64) {
	switch p.Drift {
	case DriftZigzag:
		// The sway is evaluated in logical pixels so the path looks the same
		// at every device scale.
		pt.X += math.Sin((pt.Y+pt.W*5)/scale*0.05) * pt.Zigzag * pt.ZigzagDir * scale
	case DriftWave:
		pt.X += math.Sin(elapsed*pt.Frequency+pt.Phase) * pt.Amplitude * 0.014 * scale
	}
	pt.Y += pt.Speed * scale
	if p.Rotate {
		pt.Angle = math.Mod(pt.Angle+pt.Speed*0.5, 360)
	}
}

func (pt *Particle) respawn(p *Preset, rng *rand.Rand, width, scale float64, fading bool) {
	pt.Y = -p.RespawnOffset * scale
	pt.X = rng.Float64() * width
	pt.base = 1
	if fading {
		pt.base = 0
	}
}

func (pt *Particle) rect(rotate bool) render.Rect {
	if rotate {
		return render.Rect{X: pt.X, Y: pt.Y, W: pt.W, H: pt.H, Angle: pt.Angle * math.Pi / 180, Centered: true}
	}
	return render.Rect{X: pt.X, Y: pt.Y, W: pt.W, H: pt.H}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
