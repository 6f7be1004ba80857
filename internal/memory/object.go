package memory

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/geom"
	"github.com/glviewer/batchview/internal/palette"
)

// RenderObject is the GPU-facing record of one drawable: a private copy of
// its geometry, its transform and its render attributes. Once inserted, the
// object belongs to exactly one batch and reports its mutations to it.
type RenderObject struct {
	vertices  []geom.Vertex
	indices   []uint32
	transform mgl32.Mat4
	attrs     Attributes
	selected  bool

	bounds      geom.Box
	boundsValid bool

	owner *Batch
	slot  *member
}

// NewRenderObject validates and copies the geometry into a new object.
func NewRenderObject(vertices []geom.Vertex, indices []uint32, transform mgl32.Mat4, attrs Attributes) (*RenderObject, error) {
	if err := validateGeometry(attrs.Primitive, vertices, indices); err != nil {
		return nil, err
	}
	o := &RenderObject{transform: transform, attrs: attrs}
	o.vertices, o.indices = copyGeometry(vertices, indices)
	return o, nil
}

func validateGeometry(primitive PrimitiveKind, vertices []geom.Vertex, indices []uint32) error {
	if len(vertices) == 0 || packedIndexCount(primitive, len(indices)) == 0 {
		return fmt.Errorf("%w: %d vertices, %d indices for %s", ErrInvalidGeometry, len(vertices), len(indices), primitive)
	}
	// Members share one draw, so a partial primitive would pair vertices
	// of neighbouring objects.
	switch {
	case primitive == Triangles && len(indices)%3 != 0:
		return fmt.Errorf("%w: %d indices is not a whole number of triangles", ErrInvalidGeometry, len(indices))
	case primitive == Lines && len(indices)%2 != 0:
		return fmt.Errorf("%w: %d indices is not a whole number of line segments", ErrInvalidGeometry, len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return fmt.Errorf("%w: index %d at position %d out of range (%d vertices)",
				ErrInvalidGeometry, idx, i, len(vertices))
		}
	}
	return nil
}

func copyGeometry(vertices []geom.Vertex, indices []uint32) ([]geom.Vertex, []uint32) {
	v := make([]geom.Vertex, len(vertices))
	copy(v, vertices)
	i := make([]uint32, len(indices))
	copy(i, indices)
	return v, i
}

// sameGeometry reports whether the object already holds exactly this
// geometry.
func (o *RenderObject) sameGeometry(vertices []geom.Vertex, indices []uint32) bool {
	if len(vertices) != len(o.vertices) || len(indices) != len(o.indices) {
		return false
	}
	for i := range vertices {
		if vertices[i] != o.vertices[i] {
			return false
		}
	}
	for i := range indices {
		if indices[i] != o.indices[i] {
			return false
		}
	}
	return true
}

// SetShape replaces the geometry. Empty geometry is rejected; delete the
// object instead.
func (o *RenderObject) SetShape(vertices []geom.Vertex, indices []uint32) error {
	if err := validateGeometry(o.attrs.Primitive, vertices, indices); err != nil {
		return err
	}
	newIndexCount := packedIndexCount(o.attrs.Primitive, len(indices))
	if o.owner != nil {
		if err := o.owner.checkResize(o, len(vertices), newIndexCount); err != nil {
			return err
		}
	}

	oldVertices, oldIndices := o.VertexCount(), o.IndexCount()
	o.vertices, o.indices = copyGeometry(vertices, indices)
	o.boundsValid = false
	if o.owner != nil {
		o.owner.shapeChanged(o, oldVertices, oldIndices)
	}
	return nil
}

// SetTransform replaces the model matrix. Only the object's vertex bytes
// are re-uploaded; its buffer location does not change.
func (o *RenderObject) SetTransform(m mgl32.Mat4) {
	o.transform = m
	o.boundsValid = false
	o.verticesChanged()
}

// SetTranslation replaces the translation part of the model matrix.
func (o *RenderObject) SetTranslation(t mgl32.Vec3) {
	o.SetTransform(geom.WithTranslation(o.transform, t))
}

// SetVertexAttributes updates the attributes baked into each vertex. They
// never affect the batch key; everything else goes through the directory,
// which migrates the object when its key changes.
func (o *RenderObject) SetVertexAttributes(pointSize, alpha float32) {
	if o.attrs.PointSize == pointSize && o.attrs.Alpha == alpha {
		return
	}
	o.attrs.PointSize = pointSize
	o.attrs.Alpha = alpha
	o.verticesChanged()
}

// SetSelected sets the selection tint.
func (o *RenderObject) SetSelected(selected bool) {
	if o.selected == selected {
		return
	}
	o.selected = selected
	o.verticesChanged()
}

// update replaces the transform and attributes together. The attributes
// must map to the same batch key as before.
func (o *RenderObject) update(transform mgl32.Mat4, attrs Attributes) {
	deselect := o.selected && !attrs.Selectable
	if !deselect && transform == o.transform && attrs == o.attrs {
		return
	}
	if deselect {
		o.selected = false
	}
	o.transform, o.attrs = transform, attrs
	o.boundsValid = false
	o.verticesChanged()
}

func (o *RenderObject) verticesChanged() {
	if o.owner != nil {
		o.owner.verticesChanged(o)
	}
}

func (o *RenderObject) Transform() mgl32.Mat4   { return o.transform }
func (o *RenderObject) Translation() mgl32.Vec3 { return geom.Translation(o.transform) }
func (o *RenderObject) Attributes() Attributes  { return o.attrs }
func (o *RenderObject) Selected() bool          { return o.selected }
func (o *RenderObject) Vertices() []geom.Vertex { return o.vertices }
func (o *RenderObject) Indices() []uint32       { return o.indices }

// VertexCount returns the number of vertices the object occupies in a batch.
func (o *RenderObject) VertexCount() int { return len(o.vertices) }

// IndexCount returns the number of indices the object occupies in a batch,
// after strips and loops are expanded to segments.
func (o *RenderObject) IndexCount() int {
	return packedIndexCount(o.attrs.Primitive, len(o.indices))
}

// Bounds returns the world-space axis-aligned box of the transformed
// vertices. The result is cached until the shape or transform changes.
func (o *RenderObject) Bounds() geom.Box {
	if !o.boundsValid {
		o.bounds = geom.BoundsOf(o.vertices, o.transform)
		o.boundsValid = true
	}
	return o.bounds
}

// Midpoint returns the centre of Bounds.
func (o *RenderObject) Midpoint() mgl32.Vec3 {
	return o.Bounds().Center()
}

// packVertices writes the object's vertices in world space into dst, which
// must hold VertexCount()*FloatsPerVertex floats.
func (o *RenderObject) packVertices(dst []float32) {
	for i, v := range o.vertices {
		p := geom.TransformPoint(o.transform, v.Position)
		n := geom.TransformNormal(o.transform, v.Normal)
		c := palette.Tint(v.Colour, o.selected)

		out := dst[i*FloatsPerVertex : (i+1)*FloatsPerVertex]
		copy(out[positionOffset:], p[:])
		copy(out[colourOffset:], c[:])
		out[colourOffset+3] = o.attrs.Alpha
		copy(out[normalOffset:], n[:])
		out[pointSizeOffset] = o.attrs.PointSize
	}
}

// packIndices writes the object's indices, rebased by base, into dst which
// must hold IndexCount() indices.
func (o *RenderObject) packIndices(dst []uint32, base uint32) {
	switch o.attrs.Primitive {
	case LineStrip, LineLoop:
		n := 0
		for i := 0; i+1 < len(o.indices); i++ {
			dst[n], dst[n+1] = o.indices[i]+base, o.indices[i+1]+base
			n += 2
		}
		if o.attrs.Primitive == LineLoop && len(o.indices) > 2 {
			dst[n], dst[n+1] = o.indices[len(o.indices)-1]+base, o.indices[0]+base
		}
	default:
		for i, idx := range o.indices {
			dst[i] = idx + base
		}
	}
}

// packedIndexCount returns how many indices n source indices of primitive
// occupy once packed.
func packedIndexCount(primitive PrimitiveKind, n int) int {
	switch primitive {
	case LineStrip:
		if n < 2 {
			return 0
		}
		return 2 * (n - 1)
	case LineLoop:
		if n < 2 {
			return 0
		}
		if n == 2 {
			return 2
		}
		return 2 * n
	default:
		return n
	}
}
