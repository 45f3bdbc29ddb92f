package palette

import (
	"fmt"
	"math"
)

// RGB holds one color with channels in [0,1].
type RGB [3]float64

// Hex renders the color as a #rrggbb string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channelByte(c[0]), channelByte(c[1]), channelByte(c[2]))
}

func channelByte(v float64) int {
	b := int(v * 255)
	if b < 0 {
		return 0
	}
	if b > 255 {
		return 255
	}
	return b
}

// hsvToRGB converts hue/saturation/value (all in [0,1]) to RGB.
func hsvToRGB(h, s, v float64) RGB {
	if s == 0 {
		return RGB{v, v, v}
	}
	h = h - math.Floor(h)
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch i % 6 {
	case 0:
		return RGB{v, t, p}
	case 1:
		return RGB{q, v, p}
	case 2:
		return RGB{p, v, t}
	case 3:
		return RGB{p, q, v}
	case 4:
		return RGB{t, p, v}
	default:
		return RGB{v, p, q}
	}
}

// rgbToHSV converts RGB (channels in [0,1]) to hue/saturation/value.
func rgbToHSV(c RGB) (h, s, v float64) {
	r, g, b := c[0], c[1], c[2]
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	v = maxC
	delta := maxC - minC
	if maxC == 0 || delta == 0 {
		return 0, 0, v
	}
	s = delta / maxC
	switch maxC {
	case r:
		h = (g - b) / delta
	case g:
		h = 2 + (b-r)/delta
	default:
		h = 4 + (r-g)/delta
	}
	h /= 6
	if h < 0 {
		h++
	}
	return h, s, v
}
