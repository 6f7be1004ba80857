// Package gpu implements memory.Backend on OpenGL 4.1.
//
// All calls must happen on the thread owning the current GL context.
package gpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/memory"
)

type buffer struct {
	target uint32 // ARRAY_BUFFER or ELEMENT_ARRAY_BUFFER
	usage  uint32
}

// Backend draws through a single vertex array object whose attribute
// pointers are re-bound whenever a different store's buffers are drawn.
type Backend struct {
	shaders *ShaderManager
	vao     uint32
	buffers map[memory.BufferHandle]buffer

	current          *program
	view, projection mgl32.Mat4
	camera           int // bumped on every SetCamera
}

var _ memory.Backend = (*Backend)(nil)

// NewBackend compiles the shaders and sets up the fixed-function state.
// gl.Init must have been called on the current context.
func NewBackend() (*Backend, error) {
	shaders, err := NewShaderManager()
	if err != nil {
		return nil, err
	}
	b := &Backend{
		shaders:    shaders,
		buffers:    make(map[memory.BufferHandle]buffer),
		view:       mgl32.Ident4(),
		projection: mgl32.Ident4(),
	}
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	return b, checkError("setup")
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", op, code)
	}
	return nil
}

func usageOf(u memory.Usage) uint32 {
	if u == memory.UsageStatic {
		return gl.STATIC_DRAW
	}
	return gl.DYNAMIC_DRAW
}

func targetOf(k memory.BufferKind) uint32 {
	if k == memory.IndexBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func (b *Backend) CreateBuffer(kind memory.BufferKind, sizeBytes int, usage memory.Usage) (memory.BufferHandle, error) {
	var id uint32
	gl.GenBuffers(1, &id)
	buf := buffer{target: targetOf(kind), usage: usageOf(usage)}

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(buf.target, id)
	gl.BufferData(buf.target, sizeBytes, nil, buf.usage)
	if err := checkError("create buffer"); err != nil {
		gl.DeleteBuffers(1, &id)
		return 0, err
	}
	b.buffers[memory.BufferHandle(id)] = buf
	return memory.BufferHandle(id), nil
}

func (b *Backend) ResizeBuffer(h memory.BufferHandle, sizeBytes int) error {
	buf, ok := b.buffers[h]
	if !ok {
		return fmt.Errorf("unknown buffer %d", h)
	}
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(buf.target, uint32(h))
	gl.BufferData(buf.target, sizeBytes, nil, buf.usage)
	return checkError("resize buffer")
}

func (b *Backend) UpdateBufferRange(h memory.BufferHandle, offsetBytes int, data []byte) error {
	buf, ok := b.buffers[h]
	if !ok {
		return fmt.Errorf("unknown buffer %d", h)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(buf.target, uint32(h))
	gl.BufferSubData(buf.target, offsetBytes, len(data), gl.Ptr(&data[0]))
	return checkError("update buffer")
}

func (b *Backend) DeleteBuffer(h memory.BufferHandle) {
	if _, ok := b.buffers[h]; !ok {
		return
	}
	id := uint32(h)
	gl.DeleteBuffers(1, &id)
	delete(b.buffers, h)
}

func (b *Backend) BindVertexLayout(vertices, indices memory.BufferHandle, layout memory.VertexLayout) error {
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(vertices))
	for _, attr := range layout.Attributes {
		loc := uint32(attr.Location)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointer(loc, int32(attr.Size), gl.FLOAT, false, int32(layout.Stride), gl.PtrOffset(attr.Offset))
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(indices))
	return checkError("bind vertex layout")
}

func (b *Backend) BindState(state memory.RenderState) error {
	p := b.shaders.program(state.Class.Shading)
	if p == nil {
		return fmt.Errorf("no program for %s shading", state.Class.Shading)
	}
	if p != b.current {
		gl.UseProgram(p.id)
		b.current = p
	}
	if p.camera != b.camera {
		gl.UniformMatrix4fv(p.uView, 1, false, &b.view[0])
		gl.UniformMatrix4fv(p.uProjection, 1, false, &b.projection[0])
		p.camera = b.camera
	}

	switch {
	case state.Primitive == memory.Points:
		gl.Uniform1i(p.uPointShape, int32(state.Class.PointShape))
	case state.Primitive.IsLine():
		gl.LineWidth(state.Class.LineWidth)
	}
	return checkError("bind state")
}

// SetCamera records the camera; programs pick it up when next bound.
func (b *Backend) SetCamera(view, projection mgl32.Mat4) error {
	b.view, b.projection = view, projection
	b.camera++
	return nil
}

func (b *Backend) DrawIndexed(primitive memory.PrimitiveKind, indexCount, indexOffset int) error {
	gl.DrawElements(modeOf(primitive), int32(indexCount), gl.UNSIGNED_INT, gl.PtrOffset(indexOffset*memory.IndexSize))
	return checkError("draw")
}

func modeOf(p memory.PrimitiveKind) uint32 {
	switch p {
	case memory.Points:
		return gl.POINTS
	case memory.Lines:
		return gl.LINES
	case memory.LineStrip:
		return gl.LINE_STRIP
	case memory.LineLoop:
		return gl.LINE_LOOP
	default:
		return gl.TRIANGLES
	}
}

// Release frees the programs and the vertex array. Buffers are released by
// their stores.
func (b *Backend) Release() {
	b.shaders.Delete()
	gl.DeleteVertexArrays(1, &b.vao)
}
