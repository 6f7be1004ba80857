package memory

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// BufferHandle identifies a buffer owned by the backend.
type BufferHandle uint32

// BufferKind says what a buffer is bound as.
type BufferKind int

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
)

// Usage is the update-frequency hint passed to the backend on allocation.
type Usage int

const (
	UsageStatic Usage = iota
	UsageDynamic
)

// VertexAttribute is one interleaved attribute within a vertex.
type VertexAttribute struct {
	Location int
	Size     int // float32 components
	Offset   int // bytes from the start of the vertex
}

// VertexLayout describes the interleaved vertex format.
type VertexLayout struct {
	Stride     int
	Attributes []VertexAttribute
}

// RenderState is everything bound before a batch's draw call: the primitive
// and the attribute class (shader, line width, point shape).
type RenderState struct {
	Primitive PrimitiveKind
	Class     AttributeClass
}

// Backend is the graphics API the stores talk to. All calls happen on the
// thread owning the graphics context.
type Backend interface {
	// CreateBuffer allocates a buffer of sizeBytes with undefined contents.
	CreateBuffer(kind BufferKind, sizeBytes int, usage Usage) (BufferHandle, error)
	// ResizeBuffer reallocates the buffer; previous contents are lost.
	ResizeBuffer(h BufferHandle, sizeBytes int) error
	// UpdateBufferRange writes data at offsetBytes. data is only valid for
	// the duration of the call.
	UpdateBufferRange(h BufferHandle, offsetBytes int, data []byte) error
	DeleteBuffer(h BufferHandle)

	// BindVertexLayout binds the buffer pair used by subsequent draws.
	BindVertexLayout(vertices, indices BufferHandle, layout VertexLayout) error
	// BindState binds the shader and fixed-function state for a batch.
	BindState(state RenderState) error
	// SetCamera sets the view and projection used by every shader.
	SetCamera(view, projection mgl32.Mat4) error
	// DrawIndexed draws indexCount indices starting at indexOffset (in
	// indices, not bytes) of the bound index buffer.
	DrawIndexed(primitive PrimitiveKind, indexCount, indexOffset int) error
}

// StateBinder binds render states, skipping binds of the state that is
// already bound.
type StateBinder struct {
	backend Backend
	bound   RenderState
	valid   bool
	binds   int
}

func NewStateBinder(backend Backend) *StateBinder {
	return &StateBinder{backend: backend}
}

// Bind binds state unless it is the most recently bound one.
func (sb *StateBinder) Bind(state RenderState) error {
	if sb.valid && sb.bound == state {
		return nil
	}
	if err := sb.backend.BindState(state); err != nil {
		sb.valid = false
		return wrapBackend(err, "bind state %v", state)
	}
	sb.bound, sb.valid = state, true
	sb.binds++
	return nil
}

// Reset forgets the bound state, forcing the next Bind through. Call at the
// start of every frame.
func (sb *StateBinder) Reset() {
	sb.valid = false
	sb.binds = 0
}

// Binds returns the number of state binds since the last Reset.
func (sb *StateBinder) Binds() int { return sb.binds }

// float32Bytes reinterprets v as bytes without copying.
func float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// uint32Bytes reinterprets v as bytes without copying.
func uint32Bytes(v []uint32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
