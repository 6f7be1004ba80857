package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	points := DefaultAttributes(Points)
	squarePoints := points
	squarePoints.PointShape = PointSquare
	bigPoints := points
	bigPoints.PointSize = 12
	bigPoints.Alpha = 0.3

	wide := DefaultAttributes(LineStrip)
	wide.LineWidth = 4
	unset := DefaultAttributes(Lines)
	unset.LineWidth = 0

	unlit := DefaultAttributes(Triangles)
	unlit.Unlit = true

	for _, tc := range []struct {
		name   string
		static bool
		prim   PrimitiveKind
		attrs  Attributes
		expect BatchKey
	}{
		{"lit triangles", true, Triangles, DefaultAttributes(Triangles),
			BatchKey{Static: true, Primitive: Triangles, Class: AttributeClass{Shading: ShadingLit}}},
		{"unlit triangles", false, Triangles, unlit,
			BatchKey{Primitive: Triangles, Class: AttributeClass{Shading: ShadingFlat}}},
		{"round points", true, Points, points,
			BatchKey{Static: true, Primitive: Points, Class: AttributeClass{Shading: ShadingPoints}}},
		{"square points", true, Points, squarePoints,
			BatchKey{Static: true, Primitive: Points, Class: AttributeClass{Shading: ShadingPoints, PointShape: PointSquare}}},
		{"point size and alpha are per vertex", true, Points, bigPoints,
			BatchKey{Static: true, Primitive: Points, Class: AttributeClass{Shading: ShadingPoints}}},
		{"strips batch as lines", false, LineStrip, wide,
			BatchKey{Primitive: Lines, Class: AttributeClass{Shading: ShadingFlat, LineWidth: 4}}},
		{"unset line width", false, Lines, unset,
			BatchKey{Primitive: Lines, Class: AttributeClass{Shading: ShadingFlat, LineWidth: 1}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveKey(tc.static, tc.prim, tc.attrs)
			assert.Equal(t, tc.expect, got)
			assert.Equal(t, got, DeriveKey(tc.static, tc.prim, tc.attrs))
		})
	}
}

func TestDeriveKeyIgnoresSelection(t *testing.T) {
	a := DefaultAttributes(Triangles)
	b := a
	b.Selectable = false
	b.Alpha = 0.5
	assert.Equal(t, DeriveKey(true, Triangles, a), DeriveKey(true, Triangles, b))
	assert.NotEqual(t, DeriveKey(true, Triangles, a), DeriveKey(false, Triangles, a))
}

func TestBatchKeyString(t *testing.T) {
	attrs := DefaultAttributes(Lines)
	attrs.LineWidth = 2.5
	assert.Equal(t, "dynamic/lines/flat/w2.5", DeriveKey(false, Lines, attrs).String())
	assert.Equal(t, "static/points/points/circle", DeriveKey(true, Points, DefaultAttributes(Points)).String())
	assert.Equal(t, "static/triangles/lit", DeriveKey(true, Triangles, DefaultAttributes(Triangles)).String())
}
