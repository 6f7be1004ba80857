// Package memory provides GPU buffer management for batched object rendering.
//
// Objects are grouped into batches keyed by render state. Every batch owns a
// contiguous region of one of two shared vertex/index buffer pairs (static
// and dynamic), so each batch is drawn with a single call while mutations
// only re-upload the bytes they touched.
package memory

import (
	"io"
	"log"
	"os"
)

var memoryLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("BATCHVIEW_DEBUG_MEMORY") == "1" {
		memoryLogger = log.New(os.Stdout, "[memory] ", log.Ltime|log.Lmsgprefix)
	}
}

// Vertex format. Every vertex is packed as interleaved float32s:
// position (3), colour rgba (4), normal (3), point size (1).
const (
	FloatsPerVertex = 11
	VertexStride    = FloatsPerVertex * 4 // bytes
	IndexSize       = 4                   // bytes, uint32 indices

	positionOffset  = 0
	colourOffset    = 3
	normalOffset    = 7
	pointSizeOffset = 10
)

// DefaultLayout describes the packed vertex format to the backend.
var DefaultLayout = VertexLayout{
	Stride: VertexStride,
	Attributes: []VertexAttribute{
		{Location: 0, Size: 3, Offset: positionOffset * 4},  // position
		{Location: 1, Size: 4, Offset: colourOffset * 4},    // colour
		{Location: 2, Size: 3, Offset: normalOffset * 4},    // normal
		{Location: 3, Size: 1, Offset: pointSizeOffset * 4}, // point size
	},
}

// Config tunes buffer allocation.
type Config struct {
	// Initial capacity of each store, in vertices and indices.
	InitialVertices int
	InitialIndices  int

	// Capacity multiplier applied when a store or a batch region runs out
	// of room.
	GrowthFactor float64

	// Largest vertex count a single batch may hold. Indices are uint32 and
	// absolute within a store, so this bounds what one draw can address.
	MaxBatchVertices int

	// If more than this fraction of a store's used range is holes left by
	// relocated or pruned batches, TryCompaction repacks the store.
	DefragThreshold float64
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		InitialVertices:  4096,
		InitialIndices:   8192,
		GrowthFactor:     2,
		MaxBatchVertices: 1 << 24,
		DefragThreshold:  0.5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialVertices <= 0 {
		c.InitialVertices = d.InitialVertices
	}
	if c.InitialIndices <= 0 {
		c.InitialIndices = d.InitialIndices
	}
	if c.GrowthFactor < 1.5 {
		c.GrowthFactor = d.GrowthFactor
	}
	if c.MaxBatchVertices <= 0 {
		c.MaxBatchVertices = d.MaxBatchVertices
	}
	if c.DefragThreshold <= 0 || c.DefragThreshold >= 1 {
		c.DefragThreshold = d.DefragThreshold
	}
	return c
}

// BufferClass separates rarely mutated objects from frequently mutated ones.
// Each class is backed by its own buffer pair.
type BufferClass int

const (
	Static BufferClass = iota
	Dynamic
)

func (c BufferClass) String() string {
	switch c {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Usage returns the backend usage hint for buffers of this class.
func (c BufferClass) Usage() Usage {
	if c == Static {
		return UsageStatic
	}
	return UsageDynamic
}

// ClassOf maps the static flag used by callers to a buffer class.
func ClassOf(static bool) BufferClass {
	if static {
		return Static
	}
	return Dynamic
}

// grow returns the capacity to use when current is too small for required.
func grow(current, required int, factor float64) int {
	if required <= current {
		return current
	}
	n := int(float64(current) * factor)
	if n < required {
		n = required
	}
	return n
}
