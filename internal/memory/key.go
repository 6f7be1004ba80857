package memory

import "fmt"

// PrimitiveKind is how an object's indices are assembled into primitives.
type PrimitiveKind int

const (
	Points PrimitiveKind = iota
	Lines
	LineStrip
	LineLoop
	Triangles
)

func (p PrimitiveKind) String() string {
	switch p {
	case Points:
		return "points"
	case Lines:
		return "lines"
	case LineStrip:
		return "line-strip"
	case LineLoop:
		return "line-loop"
	case Triangles:
		return "triangles"
	default:
		return "unknown"
	}
}

// IsLine reports whether p draws line segments.
func (p PrimitiveKind) IsLine() bool {
	return p == Lines || p == LineStrip || p == LineLoop
}

// batched returns the primitive an object is drawn with inside a batch.
// Strips and loops cannot be concatenated without joining neighbouring
// objects, so they are expanded to independent segments when packed.
func (p PrimitiveKind) batched() PrimitiveKind {
	if p.IsLine() {
		return Lines
	}
	return p
}

// PointShape selects how point sprites are rasterised.
type PointShape int

const (
	PointCircle PointShape = iota
	PointSquare
)

func (s PointShape) String() string {
	if s == PointSquare {
		return "square"
	}
	return "circle"
}

// Shading selects the shader program a batch is drawn with.
type Shading int

const (
	ShadingLit Shading = iota
	ShadingFlat
	ShadingPoints
)

func (s Shading) String() string {
	switch s {
	case ShadingLit:
		return "lit"
	case ShadingFlat:
		return "flat"
	case ShadingPoints:
		return "points"
	default:
		return "unknown"
	}
}

// Attributes are the per-object render attributes.
type Attributes struct {
	Primitive  PrimitiveKind
	PointSize  float32
	LineWidth  float32
	PointShape PointShape
	Alpha      float32
	Unlit      bool // draw triangles without lighting
	Selectable bool
}

// DefaultAttributes returns opaque, selectable attributes for primitive.
func DefaultAttributes(primitive PrimitiveKind) Attributes {
	return Attributes{
		Primitive:  primitive,
		PointSize:  1,
		LineWidth:  1,
		Alpha:      1,
		Selectable: true,
	}
}

// AttributeClass is the part of the attributes that must be bound as draw
// state. Everything else (alpha, point size, selection tint) is written
// per vertex so that objects differing only in those can share a draw.
type AttributeClass struct {
	Shading    Shading
	LineWidth  float32    // zero unless lines
	PointShape PointShape // zero unless points
}

// BatchKey identifies a batch: the buffer class plus the render state.
type BatchKey struct {
	Static    bool
	Primitive PrimitiveKind
	Class     AttributeClass
}

func (k BatchKey) String() string {
	s := fmt.Sprintf("%s/%s/%s", ClassOf(k.Static), k.Primitive, k.Class.Shading)
	switch {
	case k.Primitive.IsLine():
		s += fmt.Sprintf("/w%g", k.Class.LineWidth)
	case k.Primitive == Points:
		s += "/" + k.Class.PointShape.String()
	}
	return s
}

// State returns the render state bound before drawing the batch.
func (k BatchKey) State() RenderState {
	return RenderState{Primitive: k.Primitive, Class: k.Class}
}

// DeriveKey maps an object's buffer class, primitive and attributes to its
// batch key. Equal inputs always give equal keys.
func DeriveKey(static bool, primitive PrimitiveKind, attrs Attributes) BatchKey {
	key := BatchKey{Static: static, Primitive: primitive.batched()}
	switch {
	case primitive == Points:
		key.Class.Shading = ShadingPoints
		key.Class.PointShape = attrs.PointShape
	case primitive.IsLine():
		key.Class.Shading = ShadingFlat
		key.Class.LineWidth = attrs.LineWidth
		if key.Class.LineWidth <= 0 {
			key.Class.LineWidth = 1
		}
	case attrs.Unlit:
		key.Class.Shading = ShadingFlat
	default:
		key.Class.Shading = ShadingLit
	}
	return key
}
