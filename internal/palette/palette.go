package palette

import (
	"math"
	"math/rand/v2"
)

// Level selects how strongly the background contrasts with the object color.
type Level string

const (
	ContrastHigh   Level = "high"
	ContrastMedium Level = "medium"
	ContrastLow    Level = "low"
)

type hueRange struct {
	lo, hi float64
}

type profile struct {
	name       string
	hueRanges  []hueRange
	saturation hueRange
	value      hueRange
}

// Soft hue-range profiles. Saturation stays moderate and value high so the
// object reads clearly against the derived background.
var profiles = []profile{
	{
		name:       "pastel",
		hueRanges:  []hueRange{{0.0, 1.0}},
		saturation: hueRange{0.25, 0.45},
		value:      hueRange{0.85, 0.95},
	},
	{
		name:       "muted",
		hueRanges:  []hueRange{{0.0, 1.0}},
		saturation: hueRange{0.35, 0.55},
		value:      hueRange{0.60, 0.75},
	},
	{
		name:       "calm blues",
		hueRanges:  []hueRange{{0.50, 0.65}},
		saturation: hueRange{0.30, 0.50},
		value:      hueRange{0.70, 0.85},
	},
	{
		name:       "warm earth",
		hueRanges:  []hueRange{{0.05, 0.15}, {0.85, 0.95}},
		saturation: hueRange{0.40, 0.60},
		value:      hueRange{0.65, 0.80},
	},
	{
		name:       "soft greens",
		hueRanges:  []hueRange{{0.25, 0.45}},
		saturation: hueRange{0.30, 0.50},
		value:      hueRange{0.70, 0.85},
	},
}

// Palette pairs an object color with a high-contrast background.
type Palette struct {
	Object     RGB
	Background RGB
}

// ObjectHex renders the object color as hex.
func (p Palette) ObjectHex() string { return p.Object.Hex() }

// BackgroundHex renders the background color as hex.
func (p Palette) BackgroundHex() string { return p.Background.Hex() }

// Generator samples colors from the soft profiles.
type Generator struct {
	rng *rand.Rand
}

// New returns an unseeded generator. Reproducibility is not a goal; every
// call draws fresh colors.
func New() *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a deterministic generator for tests.
func NewSeeded(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed))}
}

// ObjectColor samples a random soft color: pick a profile, pick one of its
// hue ranges, then sample hue, saturation, and value independently.
func (g *Generator) ObjectColor() RGB {
	p := profiles[g.rng.IntN(len(profiles))]
	hr := p.hueRanges[g.rng.IntN(len(p.hueRanges))]
	h := g.uniform(hr.lo, hr.hi)
	s := g.uniform(p.saturation.lo, p.saturation.hi)
	v := g.uniform(p.value.lo, p.value.hi)
	return hsvToRGB(h, s, v)
}

// ContrastingColor derives a background color for the given base.
func (g *Generator) ContrastingColor(base RGB, level Level) RGB {
	h, s, v := rgbToHSV(base)

	var newH, newS, newV float64
	switch level {
	case ContrastMedium:
		// Split complementary.
		shift := 0.4
		if g.rng.IntN(2) == 1 {
			shift = 0.6
		}
		newH = wrapHue(h + shift)
		newV = 0.25
		if v < 0.5 {
			newV = 0.85
		}
		newS = math.Max(0.1, s*0.6)
	case ContrastLow:
		// Analogous hue with a value gap.
		newH = wrapHue(h + g.uniform(-0.1, 0.1))
		newV = 0.35
		if v < 0.5 {
			newV = 0.75
		}
		newS = math.Max(0.1, s*0.7)
	default:
		// Complementary hue with the value flipped across 0.5.
		newH = wrapHue(h + 0.5)
		newV = 0.15
		if v < 0.5 {
			newV = 0.95
		}
		newS = math.Max(0.1, s*0.5)
	}

	return hsvToRGB(newH, newS, newV)
}

// Generate produces a complete palette: a soft object color and its
// high-contrast background.
func (g *Generator) Generate() Palette {
	object := g.ObjectColor()
	return Palette{
		Object:     object,
		Background: g.ContrastingColor(object, ContrastHigh),
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 1.0)
	if h < 0 {
		h++
	}
	return h
}
