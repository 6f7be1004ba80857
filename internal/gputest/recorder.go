// Package gputest provides an in-memory memory.Backend that records every
// call, for testing the batching layer without a graphics context.
package gputest

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/memory"
)

// Buffer operations recorded in Calls.
const (
	OpCreate = "create"
	OpResize = "resize"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Call is one recorded buffer operation. Offset and Size are in bytes.
type Call struct {
	Op     string
	Handle memory.BufferHandle
	Offset int
	Size   int
}

// Draw is one recorded DrawIndexed call along with the state bound for it.
type Draw struct {
	Primitive   memory.PrimitiveKind
	IndexCount  int
	IndexOffset int
	State       memory.RenderState
	Vertices    memory.BufferHandle
	Indices     memory.BufferHandle
}

type buffer struct {
	kind  memory.BufferKind
	usage memory.Usage
	data  []byte
}

// Recorder implements memory.Backend on byte slices.
type Recorder struct {
	buffers map[memory.BufferHandle]*buffer
	next    memory.BufferHandle

	Calls []Call
	Draws []Draw
	Binds []memory.RenderState

	View, Projection mgl32.Mat4

	vertices, indices memory.BufferHandle
	state             memory.RenderState
	stateBound        bool

	// Fail, if set, is called with the name of every backend call before
	// it runs; a non-nil result is returned from the call instead.
	Fail func(op string) error
}

var _ memory.Backend = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{buffers: make(map[memory.BufferHandle]*buffer)}
}

func (r *Recorder) fail(op string) error {
	if r.Fail == nil {
		return nil
	}
	return r.Fail(op)
}

func (r *Recorder) buffer(h memory.BufferHandle) (*buffer, error) {
	b, ok := r.buffers[h]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d", h)
	}
	return b, nil
}

func (r *Recorder) CreateBuffer(kind memory.BufferKind, sizeBytes int, usage memory.Usage) (memory.BufferHandle, error) {
	if err := r.fail(OpCreate); err != nil {
		return 0, err
	}
	r.next++
	r.buffers[r.next] = &buffer{kind: kind, usage: usage, data: make([]byte, sizeBytes)}
	r.Calls = append(r.Calls, Call{Op: OpCreate, Handle: r.next, Size: sizeBytes})
	return r.next, nil
}

func (r *Recorder) ResizeBuffer(h memory.BufferHandle, sizeBytes int) error {
	if err := r.fail(OpResize); err != nil {
		return err
	}
	b, err := r.buffer(h)
	if err != nil {
		return err
	}
	b.data = make([]byte, sizeBytes)
	r.Calls = append(r.Calls, Call{Op: OpResize, Handle: h, Size: sizeBytes})
	return nil
}

func (r *Recorder) UpdateBufferRange(h memory.BufferHandle, offsetBytes int, data []byte) error {
	if err := r.fail(OpUpdate); err != nil {
		return err
	}
	b, err := r.buffer(h)
	if err != nil {
		return err
	}
	if offsetBytes < 0 || offsetBytes+len(data) > len(b.data) {
		return fmt.Errorf("update of %d bytes at %d overflows buffer %d (%d bytes)", len(data), offsetBytes, h, len(b.data))
	}
	copy(b.data[offsetBytes:], data)
	r.Calls = append(r.Calls, Call{Op: OpUpdate, Handle: h, Offset: offsetBytes, Size: len(data)})
	return nil
}

func (r *Recorder) DeleteBuffer(h memory.BufferHandle) {
	delete(r.buffers, h)
	r.Calls = append(r.Calls, Call{Op: OpDelete, Handle: h})
}

func (r *Recorder) BindVertexLayout(vertices, indices memory.BufferHandle, layout memory.VertexLayout) error {
	if err := r.fail("bind-layout"); err != nil {
		return err
	}
	if _, err := r.buffer(vertices); err != nil {
		return err
	}
	if _, err := r.buffer(indices); err != nil {
		return err
	}
	r.vertices, r.indices = vertices, indices
	return nil
}

func (r *Recorder) BindState(state memory.RenderState) error {
	if err := r.fail("bind-state"); err != nil {
		return err
	}
	r.state, r.stateBound = state, true
	r.Binds = append(r.Binds, state)
	return nil
}

func (r *Recorder) SetCamera(view, projection mgl32.Mat4) error {
	if err := r.fail("camera"); err != nil {
		return err
	}
	r.View, r.Projection = view, projection
	return nil
}

func (r *Recorder) DrawIndexed(primitive memory.PrimitiveKind, indexCount, indexOffset int) error {
	if err := r.fail("draw"); err != nil {
		return err
	}
	if !r.stateBound {
		return fmt.Errorf("draw without bound state")
	}
	ib, err := r.buffer(r.indices)
	if err != nil {
		return fmt.Errorf("draw without bound buffers: %w", err)
	}
	if (indexOffset+indexCount)*memory.IndexSize > len(ib.data) {
		return fmt.Errorf("draw of %d indices at %d overflows index buffer", indexCount, indexOffset)
	}
	r.Draws = append(r.Draws, Draw{
		Primitive:   primitive,
		IndexCount:  indexCount,
		IndexOffset: indexOffset,
		State:       r.state,
		Vertices:    r.vertices,
		Indices:     r.indices,
	})
	return nil
}

// Reset forgets recorded calls, draws and binds but keeps buffer contents.
func (r *Recorder) Reset() {
	r.Calls, r.Draws, r.Binds = nil, nil, nil
}

// CallsOf returns the recorded calls of the given operation.
func (r *Recorder) CallsOf(op string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Buffers returns the number of live buffers.
func (r *Recorder) Buffers() int { return len(r.buffers) }

// Size returns the size of buffer h in bytes, or -1 if it does not exist.
func (r *Recorder) Size(h memory.BufferHandle) int {
	b, ok := r.buffers[h]
	if !ok {
		return -1
	}
	return len(b.data)
}

// Kind returns what buffer h was created as.
func (r *Recorder) Kind(h memory.BufferHandle) memory.BufferKind {
	return r.buffers[h].kind
}

// Usage returns the usage hint buffer h was created with.
func (r *Recorder) Usage(h memory.BufferHandle) memory.Usage {
	return r.buffers[h].usage
}

// Floats decodes count float32s of buffer h starting at float index first.
func (r *Recorder) Floats(h memory.BufferHandle, first, count int) []float32 {
	data := r.buffers[h].data[first*4 : (first+count)*4]
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// Uints decodes count uint32s of buffer h starting at index first.
func (r *Recorder) Uints(h memory.BufferHandle, first, count int) []uint32 {
	data := r.buffers[h].data[first*4 : (first+count)*4]
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

// Position returns the position stored for vertex v of buffer h.
func (r *Recorder) Position(h memory.BufferHandle, v int) mgl32.Vec3 {
	f := r.Floats(h, v*memory.FloatsPerVertex, 3)
	return mgl32.Vec3{f[0], f[1], f[2]}
}

// DrawnPositions returns the vertex positions referenced by d, in index
// order, as read back from the recorded buffers.
func (r *Recorder) DrawnPositions(d Draw) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, 0, d.IndexCount)
	for _, idx := range r.Uints(d.Indices, d.IndexOffset, d.IndexCount) {
		out = append(out, r.Position(d.Vertices, int(idx)))
	}
	return out
}
