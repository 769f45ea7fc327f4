package confetti

import (
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// Drift selects how a particle moves sideways while it falls.
type Drift int

const (
	// DriftZigzag sways by a sine of the particle's own height, scaled by a
	// per-particle magnitude and direction.
	DriftZigzag Drift = iota
	// DriftWave sways by a sine of elapsed time with per-particle amplitude,
	// frequency and phase.
	DriftWave
)

func (d Drift) String() string {
	switch d {
	case DriftZigzag:
		return "zigzag"
	case DriftWave:
		return "wave"
	default:
		return fmt.Sprintf("drift(%d)", int(d))
	}
}

// Range is a closed interval sampled uniformly.
type Range struct {
	Min, Max float64
}

func (r Range) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Preset is one parameterization of the effect. Lengths are in logical
// pixels and speeds in logical pixels per frame; both are multiplied by the
// viewport scale at runtime.
type Preset struct {
	Name string

	// Density is the viewport width, in logical pixels, per particle.
	Density float64
	Palette []color.NRGBA

	// SpawnDepth is sampled per particle as a fraction of the viewport height;
	// the particle starts uniformly between that far above the top edge and
	// the top edge itself.
	SpawnDepth Range
	Width      Range
	Height     Range
	Speed      Range

	Drift     Drift
	Zigzag    Range
	Amplitude Range
	Frequency Range

	// Rotate spins particles around their centre. Unrotated particles are
	// drawn from their top-left corner.
	Rotate bool

	// Respawn recycles particles that fall RespawnMargin below the bottom
	// edge back to RespawnOffset above the top edge.
	Respawn       bool
	RespawnMargin float64
	RespawnOffset float64

	FadeWindow time.Duration
	// StopGrace delays the stop timer past the activation duration.
	StopGrace time.Duration
	Duration  time.Duration
}

// Count returns the number of particles for a viewport width in logical pixels.
func (p Preset) Count(width float64) int {
	if p.Density <= 0 || width <= 0 {
		return 0
	}
	return int(math.Floor(width / p.Density))
}

// Classic is the dense zigzag burst: rotating strips that fall once and do
// not come back.
func Classic() Preset {
	return Preset{
		Name:    "classic",
		Density: 9,
		Palette: []color.NRGBA{
			{R: 0xFF, G: 0xD7, B: 0x00, A: 0xFF}, // #ffd700
			{R: 0x16, G: 0x79, B: 0xBC, A: 0xFF}, // #1679bc
			{R: 0xE6, G: 0x64, B: 0x72, A: 0xFF}, // #e66472
			{R: 0x50, G: 0xC8, B: 0x78, A: 0xFF}, // #50c878
			{R: 0xE7, G: 0xEF, B: 0xFB, A: 0xFF}, // #e7effb
			{R: 0xFF, G: 0xFB, B: 0xE6, A: 0xFF}, // #fffbe6
			{R: 0xF1, G: 0xFF, B: 0xE9, A: 0xFF}, // #f1ffe9
		},
		SpawnDepth: Range{0.04, 0.3},
		Width:      Range{10, 22},
		Height:     Range{4, 13},
		Speed:      Range{1.3, 2.5},
		Drift:      DriftZigzag,
		Zigzag:     Range{1.0, 2.2},
		Rotate:     true,
		FadeWindow: 1500 * time.Millisecond,
		StopGrace:  500 * time.Millisecond,
		Duration:   7000 * time.Millisecond,
	}
}

// Wave is the denser, lighter shower: small axis-aligned flakes on a
// sinusoidal path, recycled to the top until the fade starts.
func Wave() Preset {
	return Preset{
		Name:    "wave",
		Density: 6,
		Palette: []color.NRGBA{
			{R: 0xFF, G: 0x38, B: 0x50, A: 0xFF}, // #ff3850
			{R: 0xFF, G: 0xD7, B: 0x00, A: 0xFF}, // #ffd700
			{R: 0x27, G: 0xC9, B: 0x3F, A: 0xFF}, // #27c93f
			{R: 0x34, G: 0x98, B: 0xDB, A: 0xFF}, // #3498db
			{R: 0xE6, G: 0x7E, B: 0x22, A: 0xFF}, // #e67e22
			{R: 0x9B, G: 0x59, B: 0xB6, A: 0xFF}, // #9b59b6
			{R: 0xF8, G: 0xC2, B: 0x91, A: 0xFF}, // #f8c291
			{R: 0xFF, G: 0xE0, B: 0x66, A: 0xFF}, // #ffe066
			{R: 0xFD, G: 0x79, B: 0xA8, A: 0xFF}, // #fd79a8
			{R: 0xA2, G: 0x9B, B: 0xFE, A: 0xFF}, // #a29bfe
		},
		SpawnDepth:    Range{0.5, 0.5},
		Width:         Range{7, 12},
		Height:        Range{3, 9},
		Speed:         Range{1.7, 3.9},
		Drift:         DriftWave,
		Amplitude:     Range{20, 50},
		Frequency:     Range{1.6, 3.3},
		Respawn:       true,
		RespawnMargin: 30,
		RespawnOffset: 20,
		FadeWindow:    1400 * time.Millisecond,
		Duration:      8000 * time.Millisecond,
	}
}

// PresetByName resolves a preset name case-insensitively. An empty name
// selects Classic.
func PresetByName(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "classic":
		return Classic(), nil
	case "wave":
		return Wave(), nil
	default:
		return Preset{}, fmt.Errorf("unknown preset %q", name)
	}
}

// PresetNames lists the names accepted by PresetByName.
func PresetNames() []string { return []string{"classic", "wave"} }
