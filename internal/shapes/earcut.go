package shapes

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rclancey/earcut"

	"github.com/glviewer/batchview/internal/geom"
)

// Polygon triangulates a simple polygon in the XY plane (optionally with
// holes) using the earcut algorithm. Holes are given as separate rings and
// are appended after the outer ring in the vertex list.
func Polygon(outer []mgl32.Vec2, holes [][]mgl32.Vec2, z float32, colour mgl32.Vec3) (*Shape, error) {
	if len(outer) < 3 {
		return nil, fmt.Errorf("degenerate polygon (%d vertices < 3)", len(outer))
	}

	// Flatten all rings into the [x0, y0, x1, y1, ...] layout earcut wants,
	// recording where every hole starts.
	rings := append([][]mgl32.Vec2{outer}, holes...)
	var coords []float64
	var holeIndices []int
	for i, ring := range rings {
		if i > 0 {
			holeIndices = append(holeIndices, len(coords)/2)
		}
		for _, p := range ring {
			coords = append(coords, float64(p[0]), float64(p[1]))
		}
	}

	triangleIndices, err := earcut.Earcut(coords, holeIndices, 2 /* dim */)
	if err != nil {
		return nil, fmt.Errorf("triangulation failed for %d-vertex polygon: %w", len(coords)/2, err)
	}
	if len(triangleIndices) == 0 || len(triangleIndices)%3 != 0 {
		return nil, fmt.Errorf("invalid triangle count (indices: %d)", len(triangleIndices))
	}

	s := &Shape{}
	for i := 0; i < len(coords); i += 2 {
		p := mgl32.Vec3{float32(coords[i]), float32(coords[i+1]), z}
		s.vertices = append(s.vertices, geom.MakeVertex(p, colour, up))
	}
	for _, idx := range triangleIndices {
		s.indices = append(s.indices, uint32(idx))
	}
	return s, nil
}
