// Package shapes builds vertex/index geometry for common primitives. Shapes
// implement geom.Source and are handed to the batching layer as-is; they
// carry no render state of their own.
package shapes

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/geom"
)

// up is the normal given to flat shapes in the XY plane.
var up = mgl32.Vec3{0, 0, 1}

// Shape is a list of vertices plus indices local to that list.
type Shape struct {
	vertices []geom.Vertex
	indices  []uint32
}

// New copies the given vertices and indices into a shape.
func New(vertices []geom.Vertex, indices []uint32) *Shape {
	s := &Shape{
		vertices: make([]geom.Vertex, len(vertices)),
		indices:  make([]uint32, len(indices)),
	}
	copy(s.vertices, vertices)
	copy(s.indices, indices)
	return s
}

func (s *Shape) Vertices() []geom.Vertex { return s.vertices }
func (s *Shape) Indices() []uint32       { return s.indices }

// VertexCount returns the number of vertices in the shape.
func (s *Shape) VertexCount() int { return len(s.vertices) }

// IndexCount returns the number of indices in the shape.
func (s *Shape) IndexCount() int { return len(s.indices) }

// Merge concatenates shapes of the same primitive kind, rebasing indices.
func Merge(shapes ...*Shape) *Shape {
	out := &Shape{}
	for _, s := range shapes {
		if s == nil {
			continue
		}
		base := uint32(len(out.vertices))
		out.vertices = append(out.vertices, s.vertices...)
		for _, idx := range s.indices {
			out.indices = append(out.indices, idx+base)
		}
	}
	return out
}

// Transformed returns a copy of the shape with m applied to every position
// and normal.
func (s *Shape) Transformed(m mgl32.Mat4) *Shape {
	out := New(s.vertices, s.indices)
	for i := range out.vertices {
		out.vertices[i].Position = geom.TransformPoint(m, out.vertices[i].Position)
		out.vertices[i].Normal = geom.TransformNormal(m, out.vertices[i].Normal)
	}
	return out
}

// Point is a single vertex, drawn with a points primitive.
func Point(pos, colour mgl32.Vec3) *Shape {
	return Points([]mgl32.Vec3{pos}, colour)
}

// Points is a list of vertices, drawn with a points primitive.
func Points(positions []mgl32.Vec3, colour mgl32.Vec3) *Shape {
	s := &Shape{}
	for i, p := range positions {
		s.vertices = append(s.vertices, geom.MakeVertex(p, colour, up))
		s.indices = append(s.indices, uint32(i))
	}
	return s
}

// Line is a single segment, drawn with a lines primitive.
func Line(p0, p1, colour mgl32.Vec3) *Shape {
	return &Shape{
		vertices: []geom.Vertex{
			geom.MakeVertex(p0, colour, up),
			geom.MakeVertex(p1, colour, up),
		},
		indices: []uint32{0, 1},
	}
}

// LineString is a polyline expressed as independent segments so that it can
// share a lines batch with other segments.
func LineString(points []mgl32.Vec3, colour mgl32.Vec3) *Shape {
	s := &Shape{}
	if len(points) < 2 {
		return s
	}
	for _, p := range points {
		s.vertices = append(s.vertices, geom.MakeVertex(p, colour, up))
	}
	for i := 0; i+1 < len(points); i++ {
		s.indices = append(s.indices, uint32(i), uint32(i+1))
	}
	return s
}

// Polyline is a connected run of points indexed in order, for drawing with
// a line strip or line loop primitive.
func Polyline(points []mgl32.Vec3, colour mgl32.Vec3) *Shape {
	return Points(points, colour)
}

// Triangle is a single filled triangle.
func Triangle(p1, p2, p3, colour mgl32.Vec3) *Shape {
	n := p2.Sub(p1).Cross(p3.Sub(p1))
	if n.Len() > 0 {
		n = n.Normalize()
	}
	return &Shape{
		vertices: []geom.Vertex{
			geom.MakeVertex(p1, colour, n),
			geom.MakeVertex(p2, colour, n),
			geom.MakeVertex(p3, colour, n),
		},
		indices: []uint32{0, 1, 2},
	}
}

// Rectangle is a filled rectangle in the XY plane with its lower-left corner
// at pos: 4 vertices, 6 indices.
func Rectangle(pos mgl32.Vec3, width, height float32, colour mgl32.Vec3) *Shape {
	return &Shape{
		vertices: []geom.Vertex{
			geom.MakeVertex(pos, colour, up),
			geom.MakeVertex(pos.Add(mgl32.Vec3{width, 0, 0}), colour, up),
			geom.MakeVertex(pos.Add(mgl32.Vec3{width, height, 0}), colour, up),
			geom.MakeVertex(pos.Add(mgl32.Vec3{0, height, 0}), colour, up),
		},
		indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

// UnitSquare is the 1x1 rectangle at the origin.
func UnitSquare(colour mgl32.Vec3) *Shape {
	return Rectangle(mgl32.Vec3{}, 1, 1, colour)
}

// RectangleWireframe is the outline of Rectangle as line segments.
func RectangleWireframe(pos mgl32.Vec3, width, height float32, colour mgl32.Vec3) *Shape {
	r := Rectangle(pos, width, height, colour)
	r.indices = []uint32{0, 1, 1, 2, 2, 3, 3, 0}
	return r
}

// Circle is a filled disc in the XY plane built as a triangle fan.
func Circle(centre mgl32.Vec3, radius float32, segments int, colour mgl32.Vec3) *Shape {
	if segments < 3 {
		segments = 3
	}
	s := &Shape{}
	s.vertices = append(s.vertices, geom.MakeVertex(centre, colour, up))
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		p := centre.Add(mgl32.Vec3{radius * float32(math.Cos(a)), radius * float32(math.Sin(a)), 0})
		s.vertices = append(s.vertices, geom.MakeVertex(p, colour, up))
	}
	for i := 0; i < segments; i++ {
		next := (i+1)%segments + 1
		s.indices = append(s.indices, 0, uint32(i+1), uint32(next))
	}
	return s
}

// Cube is an axis-aligned cube centred at pos, with per-face normals.
func Cube(pos mgl32.Vec3, size float32, colour mgl32.Vec3) *Shape {
	h := size / 2
	faces := []struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}
	s := &Shape{}
	for _, f := range faces {
		base := uint32(len(s.vertices))
		for _, c := range f.corners {
			s.vertices = append(s.vertices, geom.MakeVertex(pos.Add(c), colour, f.normal))
		}
		s.indices = append(s.indices, base, base+1, base+2, base+2, base+3, base)
	}
	return s
}

// Grid is a square grid of lines in the XY plane centred at the origin.
func Grid(size, increment float32, colour mgl32.Vec3) *Shape {
	s := &Shape{}
	if increment <= 0 {
		return s
	}
	n := int(size / increment)
	for i := -n; i <= n; i++ {
		d := float32(i) * increment
		s = Merge(s,
			Line(mgl32.Vec3{d, -size, 0}, mgl32.Vec3{d, size, 0}, colour),
			Line(mgl32.Vec3{-size, d, 0}, mgl32.Vec3{size, d, 0}, colour),
		)
	}
	return s
}
