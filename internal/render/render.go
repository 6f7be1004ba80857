// Package render orchestrates batched drawing of named objects.
//
// A BatchRenderer owns an object directory plus a static and a dynamic
// buffer store. Each frame:
// 1. The caller adds, mutates and deletes objects; every call is applied to
// the directory and batches immediately.
// 2. Draw flushes each store once, uploading only what changed.
// 3. Draw issues one call per batch, static store first.
package render

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/geom"
	"github.com/glviewer/batchview/internal/memory"
)

var renderLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("BATCHVIEW_DEBUG_RENDER") == "1" {
		renderLogger = log.New(os.Stdout, "[render] ", log.Ltime|log.Lmsgprefix)
	}
}

// pickTolerance widens object bounds when picking so that flat shapes,
// lines and points can be hit.
const pickTolerance = 0.05

// FrameState is where the renderer is within the current frame:
// Idle, Accumulating while objects change, Flushing inside Draw, Drawn
// once the draw calls are issued, then Idle again at EndFrame.
type FrameState int

const (
	Idle FrameState = iota
	Accumulating
	Flushing
	Drawn
)

func (s FrameState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Flushing:
		return "flushing"
	case Drawn:
		return "drawn"
	default:
		return "unknown"
	}
}

// Stats tracks rendering performance metrics.
type Stats struct {
	Frames          int
	LastFlushTimeUs float64 // time spent flushing in the last Draw() call
	LastDrawTimeUs  float64 // time spent issuing draws in the last Draw() call
	Objects         int
	DrawCalls       int
	IndicesDrawn    int
	StateBinds      int
	Static, Dynamic memory.Stats
}

type BatchRenderer struct {
	backend memory.Backend
	static  *memory.BufferStore
	dynamic *memory.BufferStore
	dir     *memory.ObjectDirectory
	binder  *memory.StateBinder

	state FrameState
	stats Stats
}

// NewBatchRenderer allocates the static and dynamic stores on backend.
func NewBatchRenderer(backend memory.Backend, cfg memory.Config) (*BatchRenderer, error) {
	static, err := memory.NewBufferStore(backend, memory.Static, cfg)
	if err != nil {
		return nil, err
	}
	dynamic, err := memory.NewBufferStore(backend, memory.Dynamic, cfg)
	if err != nil {
		static.Release()
		return nil, err
	}
	return &BatchRenderer{
		backend: backend,
		static:  static,
		dynamic: dynamic,
		dir:     memory.NewObjectDirectory(static, dynamic),
		binder:  memory.NewStateBinder(backend),
	}, nil
}

// State returns the current frame state.
func (r *BatchRenderer) State() FrameState { return r.state }

// EndFrame closes a drawn frame and returns the renderer to Idle. Call it
// once the frame has been presented. A mutation after Draw without
// EndFrame ends the frame implicitly.
func (r *BatchRenderer) EndFrame() {
	if r.state == Drawn {
		r.state = Idle
	}
}

func (r *BatchRenderer) touch() {
	r.EndFrame()
	r.state = Accumulating
}

// AddObject adds the named object, or updates it if the name is taken.
func (r *BatchRenderer) AddObject(name string, shape geom.Source, transform mgl32.Mat4, attrs memory.Attributes, static bool) error {
	r.touch()
	return r.dir.Update(name, shape, transform, attrs, static)
}

// DeleteObject removes the named object. Unknown names are ignored.
func (r *BatchRenderer) DeleteObject(name string) {
	r.touch()
	r.dir.Delete(name)
}

func (r *BatchRenderer) SetTransform(name string, m mgl32.Mat4) error {
	r.touch()
	return r.dir.SetTransform(name, m)
}

func (r *BatchRenderer) Translate(name string, delta mgl32.Vec3) error {
	r.touch()
	return r.dir.Translate(name, delta)
}

func (r *BatchRenderer) SetAttributes(name string, attrs memory.Attributes) error {
	r.touch()
	return r.dir.SetAttributes(name, attrs)
}

func (r *BatchRenderer) SetStatic(name string, static bool) error {
	r.touch()
	return r.dir.SetStatic(name, static)
}

func (r *BatchRenderer) Select(name string) error {
	r.touch()
	return r.dir.Select(name)
}

func (r *BatchRenderer) Deselect(name string) error {
	r.touch()
	return r.dir.Deselect(name)
}

func (r *BatchRenderer) Toggle(name string) (bool, error) {
	r.touch()
	return r.dir.Toggle(name)
}

// DeselectAll clears the selection.
func (r *BatchRenderer) DeselectAll() {
	for _, name := range r.dir.Selected() {
		_ = r.Deselect(name)
	}
}

func (r *BatchRenderer) IsSelected(name string) (bool, error) { return r.dir.IsSelected(name) }

func (r *BatchRenderer) Transform(name string) (mgl32.Mat4, error) { return r.dir.Transform(name) }
func (r *BatchRenderer) Bounds(name string) (geom.Box, error)      { return r.dir.Bounds(name) }
func (r *BatchRenderer) Midpoint(name string) (mgl32.Vec3, error)  { return r.dir.Midpoint(name) }

func (r *BatchRenderer) Names() []string           { return r.dir.Names() }
func (r *BatchRenderer) Len() int                  { return r.dir.Len() }
func (r *BatchRenderer) SelectedObjects() []string { return r.dir.Selected() }

// Key returns the batch key of the named object.
func (r *BatchRenderer) Key(name string) (memory.BatchKey, error) { return r.dir.Key(name) }

// SceneBounds returns the box containing every object.
func (r *BatchRenderer) SceneBounds() geom.Box {
	b := geom.EmptyBox()
	r.dir.Each(func(_ string, o *memory.RenderObject) {
		b = b.Union(o.Bounds())
	})
	return b
}

// Pick returns the nearest selectable object whose bounds the ray hits.
func (r *BatchRenderer) Pick(origin, dir mgl32.Vec3) (string, bool) {
	best, hit := "", false
	var nearest float32
	r.dir.Each(func(name string, o *memory.RenderObject) {
		if !o.Attributes().Selectable {
			return
		}
		t, ok := o.Bounds().Expand(pickTolerance).IntersectRay(origin, dir)
		if !ok {
			return
		}
		if !hit || t < nearest {
			best, nearest, hit = name, t, true
		}
	})
	return best, hit
}

// Draw flushes both stores and draws every non-empty batch with the given
// camera. Static batches are drawn before dynamic ones.
func (r *BatchRenderer) Draw(view, projection mgl32.Mat4) error {
	r.state = Flushing
	startTime := time.Now()
	for _, s := range []*memory.BufferStore{r.static, r.dynamic} {
		if err := s.Flush(); err != nil {
			r.state = Accumulating
			return fmt.Errorf("flush %s store: %w", s.Class(), err)
		}
	}
	r.stats.LastFlushTimeUs = float64(time.Since(startTime).Microseconds())

	startTime = time.Now()
	if err := r.backend.SetCamera(view, projection); err != nil {
		r.state = Accumulating
		return fmt.Errorf("set camera: %w: %w", memory.ErrBackendFailure, err)
	}
	r.binder.Reset()
	for _, s := range []*memory.BufferStore{r.static, r.dynamic} {
		if err := s.Draw(r.binder); err != nil {
			r.state = Accumulating
			return fmt.Errorf("draw %s store: %w", s.Class(), err)
		}
	}
	r.stats.LastDrawTimeUs = float64(time.Since(startTime).Microseconds())

	r.stats.Frames++
	r.stats.StateBinds = r.binder.Binds()
	r.state = Drawn
	return nil
}

// Stats returns the current performance statistics.
func (r *BatchRenderer) Stats() Stats {
	st := r.stats
	st.Static, st.Dynamic = r.static.Stats(), r.dynamic.Stats()
	st.Objects = r.dir.Len()
	st.DrawCalls = st.Static.DrawCalls + st.Dynamic.DrawCalls
	st.IndicesDrawn = st.Static.IndicesDrawn + st.Dynamic.IndicesDrawn
	return st
}

// PrintStats logs both stores' statistics.
func (r *BatchRenderer) PrintStats() {
	r.static.PrintStats()
	r.dynamic.PrintStats()
}

// TryCompaction compacts either store if it has become too sparse.
func (r *BatchRenderer) TryCompaction() error {
	for _, s := range []*memory.BufferStore{r.static, r.dynamic} {
		compacted, err := s.TryCompaction()
		if err != nil {
			return fmt.Errorf("compact %s store: %w", s.Class(), err)
		}
		if compacted {
			renderLogger.Printf("compacted %s store", s.Class())
		}
	}
	return nil
}

// Validate checks that the directory and the batches agree.
func (r *BatchRenderer) Validate() error {
	return r.dir.Validate()
}

// Clear removes every object and shrinks both stores to their initial size.
func (r *BatchRenderer) Clear() error {
	r.touch()
	r.dir.Clear()
	for _, s := range []*memory.BufferStore{r.static, r.dynamic} {
		if err := s.Clear(); err != nil {
			return fmt.Errorf("clear %s store: %w", s.Class(), err)
		}
	}
	renderLogger.Printf("cleared all objects")
	return nil
}

// Release frees the backend buffers.
func (r *BatchRenderer) Release() {
	r.static.Release()
	r.dynamic.Release()
}
