package memory

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glviewer/batchview/internal/palette"
)

func triangleKey() BatchKey {
	return DeriveKey(true, Triangles, DefaultAttributes(Triangles))
}

func TestBatchUpsertAppends(t *testing.T) {
	b := newBatch(0, triangleKey(), 1<<20)
	require.NoError(t, b.Upsert("a", newSquare(t, mgl32.Ident4())))
	require.NoError(t, b.Upsert("b", newSquare(t, mgl32.Translate3D(2, 0, 0))))

	assert.Equal(t, []string{"a", "b"}, b.Names())
	assert.Equal(t, 8, b.VertexCount())
	assert.Equal(t, 12, b.IndexCount())

	v, i, ok := b.Location("b")
	require.True(t, ok)
	assert.Equal(t, 4, v)
	assert.Equal(t, 6, i)

	// Indices are relative to the batch.
	assert.Equal(t, []uint32{4, 5, 6, 6, 7, 4}, b.indices[6:])
	assert.Equal(t, span{0, 8}, b.dirtyVerts)
	assert.Equal(t, span{0, 12}, b.dirtyIndices)
	assert.False(t, b.rebuild)
}

func TestBatchRemovalsCoalesce(t *testing.T) {
	b := newBatch(0, triangleKey(), 1<<20)
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, b.Upsert(name, newSquare(t, mgl32.Ident4())))
	}
	obj, _ := b.Object("a")

	assert.True(t, b.Remove("a"))
	assert.True(t, b.Remove("c"))
	assert.False(t, b.Remove("c"))
	assert.Nil(t, obj.owner)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 8, b.VertexCount())
	assert.True(t, b.rebuild)
	assert.Equal(t, 2, b.removals)

	// Mutations while a rebuild is pending are picked up by the rebuild.
	d, _ := b.Object("d")
	d.SetTranslation(mgl32.Vec3{5, 0, 0})

	b.rebuildPacked()
	assert.False(t, b.rebuild)
	assert.True(t, b.upload)
	assert.Equal(t, []string{"b", "d"}, b.Names())
	assert.Len(t, b.vertices, 8*FloatsPerVertex)
	assert.Len(t, b.indices, 12)

	v, _, ok := b.Location("d")
	require.True(t, ok)
	assert.Equal(t, 4, v)
	assert.Equal(t, float32(5), b.vertices[v*FloatsPerVertex+positionOffset])
}

func TestBatchTransformDirtiesVerticesOnly(t *testing.T) {
	b := newBatch(0, triangleKey(), 1<<20)
	require.NoError(t, b.Upsert("a", newSquare(t, mgl32.Ident4())))
	require.NoError(t, b.Upsert("b", newSquare(t, mgl32.Ident4())))
	b.dirtyVerts, b.dirtyIndices = span{}, span{}

	obj, _ := b.Object("b")
	obj.SetTransform(mgl32.Translate3D(0, 0, 7))
	assert.Equal(t, span{4, 8}, b.dirtyVerts)
	assert.True(t, b.dirtyIndices.empty())
	assert.False(t, b.rebuild)
	assert.Equal(t, float32(7), b.vertices[4*FloatsPerVertex+positionOffset+2])

	obj.SetSelected(true)
	tinted := palette.Tint(palette.Red, true)
	assert.Equal(t, tinted[0], b.vertices[4*FloatsPerVertex+colourOffset])
}

func TestBatchShapeChange(t *testing.T) {
	b := newBatch(0, triangleKey(), 1<<20)
	require.NoError(t, b.Upsert("a", newSquare(t, mgl32.Ident4())))
	b.dirtyVerts, b.dirtyIndices = span{}, span{}
	obj, _ := b.Object("a")

	// Same counts: rewritten in place.
	v, i := square(palette.Blue)
	require.NoError(t, obj.SetShape(v, i))
	assert.False(t, b.rebuild)
	assert.Equal(t, span{0, 4}, b.dirtyVerts)
	assert.Equal(t, span{0, 6}, b.dirtyIndices)

	// Different counts: rebuilt.
	require.NoError(t, obj.SetShape(v[:3], []uint32{0, 1, 2}))
	assert.True(t, b.rebuild)
	assert.Equal(t, 3, b.VertexCount())
	assert.Equal(t, 3, b.IndexCount())
}

func TestBatchCapacity(t *testing.T) {
	b := newBatch(0, triangleKey(), 6)
	require.NoError(t, b.Upsert("a", newSquare(t, mgl32.Ident4())))

	err := b.Upsert("b", newSquare(t, mgl32.Ident4()))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, []string{"a"}, b.Names())
	assert.Equal(t, 4, b.VertexCount())

	// Replacing in place only counts the difference.
	require.NoError(t, b.Upsert("a", newSquare(t, mgl32.Ident4())))

	obj, _ := b.Object("a")
	v, i := square(palette.Red)
	v = append(v, v...)
	err = obj.SetShape(v, i)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 4, obj.VertexCount())
}

func TestBatchRejectsObjectOwnedElsewhere(t *testing.T) {
	a := newBatch(0, triangleKey(), 1<<20)
	b := newBatch(1, triangleKey(), 1<<20)
	obj := newSquare(t, mgl32.Ident4())
	require.NoError(t, a.Upsert("x", obj))
	require.Error(t, b.Upsert("x", obj))
	assert.Equal(t, 0, b.Len())
}
