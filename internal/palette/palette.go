// Package palette provides the colours used by the viewer. It implements the
// selection tint that is baked into per-vertex colours, and a few named and
// generated colours for demo scenes.
package palette

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// highlight is the colour selected objects are blended towards.
var highlight = colorful.Color{R: 1.0, G: 0.85, B: 0.2}

// highlightAmount is how far (in Lab space) a selected colour moves towards
// the highlight colour.
const highlightAmount = 0.6

var (
	White = RGB(255, 255, 255)
	Black = RGB(0, 0, 0)
	Red   = RGB(220, 50, 47)
	Green = RGB(133, 153, 0)
	Blue  = RGB(38, 139, 210)
	Grey  = RGB(150, 150, 150)

	// Background is the clear colour of the demo viewer.
	Background = mgl32.Vec3{0.21987, 0.34362, 0.40084}
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RGB converts 8-bit channels to a float colour.
func RGB(r, g, b uint8) mgl32.Vec3 {
	return mgl32.Vec3{float32(r) / 255, float32(g) / 255, float32(b) / 255}
}

func toColorful(c mgl32.Vec3) colorful.Color {
	return colorful.Color{
		R: clamp(float64(c[0]), 0, 1),
		G: clamp(float64(c[1]), 0, 1),
		B: clamp(float64(c[2]), 0, 1),
	}
}

func fromColorful(c colorful.Color) mgl32.Vec3 {
	c = c.Clamped()
	return mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
}

// Tint returns the colour a vertex is drawn with. Unselected colours are
// returned unchanged.
func Tint(c mgl32.Vec3, selected bool) mgl32.Vec3 {
	if !selected {
		return c
	}
	return fromColorful(toColorful(c).BlendLab(highlight, highlightAmount))
}

// Hex parses a "#rrggbb" colour.
func Hex(s string) (mgl32.Vec3, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return fromColorful(c), nil
}

// Random returns a saturated colour using HSV generation.
func Random(r *rand.Rand) mgl32.Vec3 {
	hue := r.Float64() * 360
	sat := clamp(r.Float64()*0.5+0.4, 0, 1)
	val := clamp(r.Float64()*0.3+0.6, 0, 1)
	return fromColorful(colorful.Hsv(hue, sat, val))
}
