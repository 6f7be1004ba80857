package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsOf(t *testing.T) {
	square := []Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{1, 1, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}

	b := BoundsOf(square, mgl32.Ident4())
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, b.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, b.Max)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0}, b.Center())

	moved := BoundsOf(square, mgl32.Translate3D(2, 3, 4))
	assert.Equal(t, mgl32.Vec3{2, 3, 4}, moved.Min)
	assert.Equal(t, mgl32.Vec3{3, 4, 4}, moved.Max)

	assert.True(t, BoundsOf(nil, mgl32.Ident4()).IsEmpty())
}

func TestComposeAndTranslation(t *testing.T) {
	m := Compose(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 2})
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, Translation(m))

	p := TransformPoint(m, mgl32.Vec3{1, 1, 1})
	assert.InDelta(t, 3, p[0], 1e-6)
	assert.InDelta(t, 4, p[1], 1e-6)
	assert.InDelta(t, 5, p[2], 1e-6)

	m = WithTranslation(m, mgl32.Vec3{-1, 0, 0})
	assert.Equal(t, mgl32.Vec3{-1, 0, 0}, Translation(m))

	r := Compose(mgl32.Vec3{}, mgl32.Vec3{0, 0, math.Pi / 2}, mgl32.Vec3{1, 1, 1})
	q := TransformPoint(r, mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 0, q[0], 1e-6)
	assert.InDelta(t, 1, q[1], 1e-6)
}

func TestIntersectRay(t *testing.T) {
	b := Box{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	for _, tc := range []struct {
		name   string
		origin mgl32.Vec3
		dir    mgl32.Vec3
		hit    bool
		dist   float32
	}{
		{"front", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, true, 4},
		{"miss", mgl32.Vec3{3, 0, 5}, mgl32.Vec3{0, 0, -1}, false, 0},
		{"behind", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 1}, false, 0},
		{"inside", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, true, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, ok := b.IntersectRay(tc.origin, tc.dir)
			require.Equal(t, tc.hit, ok)
			if ok {
				assert.InDelta(t, tc.dist, d, 1e-6)
			}
		})
	}
}
