// Package geom provides the 3D primitives shared by the batching layer:
// - Vertices as produced by geometry sources
// - Axis-aligned bounding boxes
// - Transform helpers on top of mgl32 matrices
// - Ray/box intersection for picking
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is a single shape vertex as handed over by a geometry source.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Colour   mgl32.Vec3
}

// Source supplies the vertex and index arrays of a shape. Indices are local
// to the shape's own vertex list.
type Source interface {
	Vertices() []Vertex
	Indices() []uint32
}

// Box represents an axis-aligned box.
type Box struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func MakeVertex(pos, colour, normal mgl32.Vec3) Vertex {
	return Vertex{Position: pos, Normal: normal, Colour: colour}
}

// EmptyBox returns an inverted box that any point extends.
func EmptyBox() Box {
	inf := float32(math.Inf(1))
	return Box{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend grows the box to include p.
func (b Box) Extend(p mgl32.Vec3) Box {
	for i := 0; i < 3; i++ {
		b.Min[i] = min32(b.Min[i], p[i])
		b.Max[i] = max32(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

func (b Box) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }
func (b Box) Size() mgl32.Vec3   { return b.Max.Sub(b.Min) }

// Expand grows the box by d in every direction.
func (b Box) Expand(d float32) Box {
	return Box{
		Min: b.Min.Sub(mgl32.Vec3{d, d, d}),
		Max: b.Max.Add(mgl32.Vec3{d, d, d}),
	}
}

// Contains reports whether p lies inside the box (inclusive).
func (b Box) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// TransformPoint applies the transform m to point p.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, m)
}

// TransformNormal applies the rotation/scale part of m to the normal n.
func TransformNormal(m mgl32.Mat4, n mgl32.Vec3) mgl32.Vec3 {
	out := m.Mat3().Mul3x1(n)
	if out.Len() == 0 {
		return out
	}
	return out.Normalize()
}

// BoundsOf computes the box containing every vertex position transformed by
// m. Returns an empty box for no vertices.
func BoundsOf(vertices []Vertex, m mgl32.Mat4) Box {
	b := EmptyBox()
	for _, v := range vertices {
		b = b.Extend(TransformPoint(m, v.Position))
	}
	return b
}

// Compose builds a model matrix from translation, rotation (Euler angles
// in radians, applied X then Y then Z) and scale.
func Compose(translate, rotate, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(translate[0], translate[1], translate[2])
	r := mgl32.HomogRotate3DZ(rotate[2]).
		Mul4(mgl32.HomogRotate3DY(rotate[1])).
		Mul4(mgl32.HomogRotate3DX(rotate[0]))
	s := mgl32.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(r).Mul4(s)
}

// Translation returns the translation column of m.
func Translation(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}

// WithTranslation returns m with its translation column replaced by t.
func WithTranslation(m mgl32.Mat4, t mgl32.Vec3) mgl32.Mat4 {
	m.SetCol(3, t.Vec4(1))
	return m
}

// IntersectRay tests the ray origin+t*dir against the box using the slab
// method. Returns the entry distance and whether the ray hits the box in
// front of the origin.
func (b Box) IntersectRay(origin, dir mgl32.Vec3) (float32, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	tmin := float32(math.Inf(-1))
	tmax := float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t0 := (b.Min[i] - origin[i]) * inv
		t1 := (b.Max[i] - origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = max32(tmin, t0)
		tmax = min32(tmax, t1)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return 0, true // origin inside the box
	}
	return tmin, true
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
