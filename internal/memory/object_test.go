package memory

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glviewer/batchview/internal/geom"
	"github.com/glviewer/batchview/internal/palette"
)

var up = mgl32.Vec3{0, 0, 1}

func square(colour mgl32.Vec3) ([]geom.Vertex, []uint32) {
	return []geom.Vertex{
		geom.MakeVertex(mgl32.Vec3{0, 0, 0}, colour, up),
		geom.MakeVertex(mgl32.Vec3{1, 0, 0}, colour, up),
		geom.MakeVertex(mgl32.Vec3{1, 1, 0}, colour, up),
		geom.MakeVertex(mgl32.Vec3{0, 1, 0}, colour, up),
	}, []uint32{0, 1, 2, 2, 3, 0}
}

func newSquare(t *testing.T, transform mgl32.Mat4) *RenderObject {
	t.Helper()
	v, i := square(palette.Red)
	o, err := NewRenderObject(v, i, transform, DefaultAttributes(Triangles))
	require.NoError(t, err)
	return o
}

func TestNewRenderObjectValidates(t *testing.T) {
	v, i := square(palette.Red)
	tri := DefaultAttributes(Triangles)

	for _, tc := range []struct {
		name     string
		vertices []geom.Vertex
		indices  []uint32
		attrs    Attributes
	}{
		{"no vertices", nil, i, tri},
		{"no indices", v, nil, tri},
		{"index out of range", v, []uint32{0, 1, 4}, tri},
		{"single index strip", v, []uint32{0}, DefaultAttributes(LineStrip)},
		{"partial triangle", v, []uint32{0, 1, 2, 0}, tri},
		{"odd line indices", v, []uint32{0, 1, 2}, DefaultAttributes(Lines)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRenderObject(tc.vertices, tc.indices, mgl32.Ident4(), tc.attrs)
			require.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestNewRenderObjectAcceptsOpenStrips(t *testing.T) {
	v, _ := square(palette.Red)
	for _, p := range []PrimitiveKind{LineStrip, LineLoop, Points} {
		_, err := NewRenderObject(v, []uint32{0, 1, 2}, mgl32.Ident4(), DefaultAttributes(p))
		require.NoError(t, err, p.String())
	}
}

func TestRenderObjectCopiesGeometry(t *testing.T) {
	v, i := square(palette.Red)
	o, err := NewRenderObject(v, i, mgl32.Ident4(), DefaultAttributes(Triangles))
	require.NoError(t, err)

	v[0].Position = mgl32.Vec3{9, 9, 9}
	i[0] = 3
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, o.Vertices()[0].Position)
	assert.Equal(t, uint32(0), o.Indices()[0])
}

func TestRenderObjectBounds(t *testing.T) {
	o := newSquare(t, mgl32.Translate3D(1, 2, 3))
	b := o.Bounds()
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, b.Min)
	assert.Equal(t, mgl32.Vec3{2, 3, 3}, b.Max)
	assert.Equal(t, mgl32.Vec3{1.5, 2.5, 3}, o.Midpoint())

	o.SetTranslation(mgl32.Vec3{-1, 0, 0})
	assert.Equal(t, mgl32.Vec3{-1, 0, 0}, o.Bounds().Min)
	assert.Equal(t, mgl32.Vec3{-1, 0, 0}, o.Translation())

	v, i := square(palette.Red)
	for k := range v {
		v[k].Position = v[k].Position.Mul(4)
	}
	require.NoError(t, o.SetShape(v, i))
	assert.Equal(t, mgl32.Vec3{3, 4, 0}, o.Bounds().Max)
}

func TestRenderObjectSetShapeRejectsEmpty(t *testing.T) {
	o := newSquare(t, mgl32.Ident4())
	require.ErrorIs(t, o.SetShape(nil, nil), ErrInvalidGeometry)
	assert.Equal(t, 4, o.VertexCount())
	assert.Equal(t, 6, o.IndexCount())
}

func TestPackVertices(t *testing.T) {
	v, i := square(palette.Red)
	attrs := DefaultAttributes(Triangles)
	attrs.Alpha = 0.25
	attrs.PointSize = 3
	o, err := NewRenderObject(v, i, mgl32.Translate3D(10, 0, 0), attrs)
	require.NoError(t, err)

	dst := make([]float32, o.VertexCount()*FloatsPerVertex)
	o.packVertices(dst)

	second := dst[FloatsPerVertex : 2*FloatsPerVertex]
	assert.Equal(t, []float32{11, 0, 0}, second[positionOffset:positionOffset+3])
	assert.Equal(t, []float32{palette.Red[0], palette.Red[1], palette.Red[2], 0.25}, second[colourOffset:colourOffset+4])
	assert.InDelta(t, 1, second[normalOffset+2], 1e-6)
	assert.Equal(t, float32(3), second[pointSizeOffset])

	o.SetSelected(true)
	o.packVertices(dst)
	tinted := palette.Tint(palette.Red, true)
	assert.Equal(t, []float32{tinted[0], tinted[1], tinted[2]}, dst[colourOffset:colourOffset+3])
}

func TestPackIndicesExpandsStrips(t *testing.T) {
	v, _ := square(palette.White)
	for _, tc := range []struct {
		prim   PrimitiveKind
		expect []uint32
	}{
		{Lines, []uint32{10, 11, 12, 13}},
		{LineStrip, []uint32{10, 11, 11, 12, 12, 13}},
		{LineLoop, []uint32{10, 11, 11, 12, 12, 13, 13, 10}},
	} {
		t.Run(tc.prim.String(), func(t *testing.T) {
			o, err := NewRenderObject(v, []uint32{0, 1, 2, 3}, mgl32.Ident4(), DefaultAttributes(tc.prim))
			require.NoError(t, err)
			require.Equal(t, len(tc.expect), o.IndexCount())

			dst := make([]uint32, o.IndexCount())
			o.packIndices(dst, 10)
			assert.Equal(t, tc.expect, dst)
		})
	}
}
