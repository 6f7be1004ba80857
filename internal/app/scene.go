package app

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/config"
	"github.com/glviewer/batchview/internal/geom"
	"github.com/glviewer/batchview/internal/memory"
	"github.com/glviewer/batchview/internal/palette"
	"github.com/glviewer/batchview/internal/shapes"
)

// Object is a scene object ready to hand to the renderer.
type Object struct {
	Name      string
	Shape     geom.Source
	Transform mgl32.Mat4
	Attrs     memory.Attributes
	Static    bool
}

// Build turns a spec into geometry, a model matrix and render attributes.
// Specs without a colour get a random one from rng.
func Build(spec config.ObjectSpec, rng *rand.Rand) (Object, error) {
	colour := palette.Random(rng)
	if spec.Colour != "" {
		c, err := palette.Hex(spec.Colour)
		if err != nil {
			return Object{}, fmt.Errorf("object %q: %w", spec.Name, err)
		}
		colour = c
	}

	shape, primitive, err := buildShape(spec, colour)
	if err != nil {
		return Object{}, fmt.Errorf("object %q: %w", spec.Name, err)
	}

	attrs := memory.DefaultAttributes(primitive)
	if spec.PointSize > 0 {
		attrs.PointSize = spec.PointSize
	}
	if spec.LineWidth > 0 {
		attrs.LineWidth = spec.LineWidth
	}
	if spec.Alpha > 0 {
		attrs.Alpha = spec.Alpha
	}
	if spec.PointShape == "square" {
		attrs.PointShape = memory.PointSquare
	}
	attrs.Unlit = spec.Unlit
	if spec.Selectable != nil {
		attrs.Selectable = *spec.Selectable
	}

	scale := mgl32.Vec3{1, 1, 1}
	if spec.Scale != nil {
		scale = *spec.Scale
	}
	rotation := mgl32.Vec3{
		mgl32.DegToRad(spec.Rotation[0]),
		mgl32.DegToRad(spec.Rotation[1]),
		mgl32.DegToRad(spec.Rotation[2]),
	}

	static := true
	if spec.Static != nil {
		static = *spec.Static
	}
	return Object{
		Name:      spec.Name,
		Shape:     shape,
		Transform: geom.Compose(spec.Position, rotation, scale),
		Attrs:     attrs,
		Static:    static,
	}, nil
}

func orDefault(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

func buildShape(spec config.ObjectSpec, colour mgl32.Vec3) (*shapes.Shape, memory.PrimitiveKind, error) {
	points := make([]mgl32.Vec3, len(spec.Points))
	for i, p := range spec.Points {
		points[i] = p
	}
	need := func(n int) error {
		if len(points) < n {
			return fmt.Errorf("%w: %s needs at least %d points, got %d",
				memory.ErrInvalidGeometry, spec.Shape, n, len(points))
		}
		return nil
	}

	size := orDefault(spec.Size, 1)
	switch spec.Shape {
	case "point":
		p := mgl32.Vec3{}
		if len(points) > 0 {
			p = points[0]
		}
		return shapes.Point(p, colour), memory.Points, nil
	case "points":
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return shapes.Points(points, colour), memory.Points, nil
	case "line":
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return shapes.Line(points[0], points[1], colour), memory.Lines, nil
	case "linestring":
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return shapes.LineString(points, colour), memory.Lines, nil
	case "polyline":
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return shapes.Polyline(points, colour), memory.LineStrip, nil
	case "lineloop":
		if err := need(3); err != nil {
			return nil, 0, err
		}
		return shapes.Polyline(points, colour), memory.LineLoop, nil
	case "triangle":
		if err := need(3); err != nil {
			return nil, 0, err
		}
		return shapes.Triangle(points[0], points[1], points[2], colour), memory.Triangles, nil
	case "rectangle", "wireframe":
		w, h := size, orDefault(spec.Height, size)
		corner := mgl32.Vec3{-w / 2, -h / 2, 0}
		if spec.Shape == "wireframe" {
			return shapes.RectangleWireframe(corner, w, h, colour), memory.Lines, nil
		}
		return shapes.Rectangle(corner, w, h, colour), memory.Triangles, nil
	case "circle":
		segments := spec.Segments
		if segments == 0 {
			segments = 32
		}
		return shapes.Circle(mgl32.Vec3{}, size, segments, colour), memory.Triangles, nil
	case "cube":
		return shapes.Cube(mgl32.Vec3{}, size, colour), memory.Triangles, nil
	case "grid":
		return shapes.Grid(orDefault(spec.Size, 10), orDefault(spec.Increment, 1), colour), memory.Lines, nil
	case "polygon":
		if err := need(3); err != nil {
			return nil, 0, err
		}
		outer := make([]mgl32.Vec2, len(points))
		for i, p := range points {
			outer[i] = p.Vec2()
		}
		s, err := shapes.Polygon(outer, nil, 0, colour)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", memory.ErrInvalidGeometry, err)
		}
		return s, memory.Triangles, nil
	default:
		return nil, 0, fmt.Errorf("unknown shape %q", spec.Shape)
	}
}

// randomShapes are the shapes RandomSpec picks from.
var randomShapes = []string{"cube", "circle", "rectangle", "wireframe", "points", "lineloop"}

// Scene tracks object names in creation order for keyboard navigation, and
// hands out names and seeds for generated objects.
type Scene struct {
	order   []string // creation order
	current string   // "" if none
	nextID  int
	rng     *rand.Rand
}

// NewScene creates a scene whose generated objects derive from seed.
func NewScene(seed int64) *Scene {
	return &Scene{rng: rand.New(rand.NewSource(seed))}
}

// Rand returns the scene's random source.
func (s *Scene) Rand() *rand.Rand { return s.rng }

// Add records name as the newest object. Known names keep their position.
func (s *Scene) Add(name string) {
	for _, n := range s.order {
		if n == name {
			return
		}
	}
	s.order = append(s.order, name)
}

// Remove forgets name, returning whether it was known.
func (s *Scene) Remove(name string) bool {
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			if s.current == name {
				s.current = ""
			}
			return true
		}
	}
	return false
}

// Reset forgets every object.
func (s *Scene) Reset() {
	s.order = s.order[:0]
	s.current = ""
}

// Names returns the objects in creation order.
func (s *Scene) Names() []string {
	return append([]string(nil), s.order...)
}

func (s *Scene) Len() int { return len(s.order) }

// Current returns the object last navigated to.
func (s *Scene) Current() (string, bool) {
	return s.current, s.current != ""
}

// SetCurrent sets the current object directly; "" clears it.
func (s *Scene) SetCurrent(name string) {
	s.current = name
}

// Iter moves to the next or previous object in creation order and returns
// it. With no current object it starts from the first or last.
func (s *Scene) Iter(next bool) (string, bool) {
	if len(s.order) == 0 {
		s.current = ""
		return "", false
	}

	direction := 1
	if !next {
		direction = -1
	}

	pos := -1
	for i, name := range s.order {
		if name == s.current {
			pos = i
			break
		}
	}
	var newPos int
	switch {
	case pos >= 0:
		newPos = (pos + direction + len(s.order)) % len(s.order)
	case next:
		newPos = 0
	default:
		newPos = len(s.order) - 1
	}

	s.current = s.order[newPos]
	return s.current, true
}

// NextName returns an unused generated object name.
func (s *Scene) NextName() string {
	taken := make(map[string]bool, len(s.order))
	for _, n := range s.order {
		taken[n] = true
	}
	for {
		s.nextID++
		name := fmt.Sprintf("object-%d", s.nextID)
		if !taken[name] {
			return name
		}
	}
}

// RandomSpec returns a spec for a random dynamic object placed within
// extent of the origin.
func (s *Scene) RandomSpec(name string, extent float32) config.ObjectSpec {
	r := s.rng
	coord := func() float32 { return (r.Float32()*2 - 1) * extent }
	dynamic := false
	spec := config.ObjectSpec{
		Name:     name,
		Shape:    randomShapes[r.Intn(len(randomShapes))],
		Size:     0.3 + r.Float32(),
		Position: [3]float32{coord(), coord(), r.Float32()},
		Rotation: [3]float32{0, 0, r.Float32() * 360},
		Static:   &dynamic,
	}
	switch spec.Shape {
	case "points":
		for i := 0; i < 3+r.Intn(6); i++ {
			spec.Points = append(spec.Points, [3]float32{r.Float32(), r.Float32(), r.Float32()})
		}
		spec.PointSize = float32(4 + r.Intn(12))
		if r.Intn(2) == 0 {
			spec.PointShape = "square"
		}
	case "lineloop":
		n := 3 + r.Intn(5)
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			spec.Points = append(spec.Points, [3]float32{
				spec.Size * float32(math.Cos(a)), spec.Size * float32(math.Sin(a)), 0,
			})
		}
		spec.LineWidth = float32(1 + r.Intn(3))
	}
	return spec
}
