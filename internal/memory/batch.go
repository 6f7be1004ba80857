package memory

import "fmt"

// member is one object's slot within a batch.
type member struct {
	name string
	obj  *RenderObject // nil once removed

	// Location within the batch's packed data, as last packed. Counts may
	// lag the object's own counts while a rebuild is pending.
	vertexStart, vertexCount int
	indexStart, indexCount   int
}

// span is a half-open element range [lo, hi); empty when hi <= lo.
type span struct{ lo, hi int }

func (s span) empty() bool { return s.hi <= s.lo }

func (s *span) add(lo, hi int) {
	if s.empty() {
		*s = span{lo, hi}
		return
	}
	if lo < s.lo {
		s.lo = lo
	}
	if hi > s.hi {
		s.hi = hi
	}
}

// Batch is an ordered group of objects sharing one BatchKey. It keeps a CPU
// copy of its members packed back to back (vertices in world space, indices
// relative to the batch) and tracks which parts of it still need to reach
// the GPU.
type Batch struct {
	id          int
	key         BatchKey
	maxVertices int

	members []*member // insertion order, removed members kept until rebuild
	lookup  map[string]*member

	// Totals over live members.
	vertexCount, indexCount int

	vertices []float32
	indices  []uint32

	// Region of the store's buffers reserved for the batch, in vertices and
	// indices.
	vertexOffset, indexOffset   int
	vertexReserve, indexReserve int
	placed                      bool

	rebuild      bool // membership or layout changed, repack at flush
	upload       bool // upload the batch in full at flush
	dirtyVerts   span
	dirtyIndices span
	removals     int // removals coalesced into the pending rebuild
}

func newBatch(id int, key BatchKey, maxVertices int) *Batch {
	return &Batch{
		id:          id,
		key:         key,
		maxVertices: maxVertices,
		lookup:      make(map[string]*member),
	}
}

func (b *Batch) ID() int          { return b.id }
func (b *Batch) Key() BatchKey    { return b.key }
func (b *Batch) Len() int         { return len(b.lookup) }
func (b *Batch) VertexCount() int { return b.vertexCount }
func (b *Batch) IndexCount() int  { return b.indexCount }

// VertexOffset returns where the batch's vertices start in the store's
// vertex buffer, in vertices.
func (b *Batch) VertexOffset() int { return b.vertexOffset }

// IndexOffset returns where the batch's indices start in the store's index
// buffer, in indices.
func (b *Batch) IndexOffset() int { return b.indexOffset }

// Dirty reports whether the batch has changes not yet flushed.
func (b *Batch) Dirty() bool {
	return b.rebuild || b.upload || !b.dirtyVerts.empty() || !b.dirtyIndices.empty()
}

// Names returns member names in insertion order.
func (b *Batch) Names() []string {
	names := make([]string, 0, len(b.lookup))
	for _, m := range b.members {
		if m.obj != nil {
			names = append(names, m.name)
		}
	}
	return names
}

// Object returns the member object with the given name.
func (b *Batch) Object(name string) (*RenderObject, bool) {
	m, ok := b.lookup[name]
	if !ok {
		return nil, false
	}
	return m.obj, true
}

// Location returns where the named member sits within the batch, in
// vertices and indices relative to the batch start.
func (b *Batch) Location(name string) (vertexStart, indexStart int, ok bool) {
	m, ok := b.lookup[name]
	if !ok {
		return 0, 0, false
	}
	return m.vertexStart, m.indexStart, true
}

func (b *Batch) checkVertices(total int) error {
	if total > b.maxVertices {
		return fmt.Errorf("%w: batch %s would hold %d vertices (max %d)",
			ErrCapacityExceeded, b.key, total, b.maxVertices)
	}
	return nil
}

// Upsert inserts obj under name, or replaces the object already stored
// under name in its existing slot. New members are appended so existing
// data never shifts.
func (b *Batch) Upsert(name string, obj *RenderObject) error {
	if obj.owner != nil && obj.slot != b.lookup[name] {
		return fmt.Errorf("object %q is already batched", name)
	}

	m, exists := b.lookup[name]
	previous := 0
	if exists {
		previous = m.obj.VertexCount()
	}
	if err := b.checkVertices(b.vertexCount - previous + obj.VertexCount()); err != nil {
		return err
	}

	if exists {
		old := m.obj
		if old != obj {
			old.owner, old.slot = nil, nil
		}
		b.vertexCount += obj.VertexCount() - old.VertexCount()
		b.indexCount += obj.IndexCount() - old.IndexCount()
		m.obj = obj
		obj.owner, obj.slot = b, m
		b.repack(m)
		return nil
	}

	m = &member{name: name, obj: obj}
	obj.owner, obj.slot = b, m
	b.members = append(b.members, m)
	b.lookup[name] = m
	b.vertexCount += obj.VertexCount()
	b.indexCount += obj.IndexCount()
	if b.rebuild {
		return nil // packed with everything else at flush
	}

	m.vertexStart, m.vertexCount = len(b.vertices)/FloatsPerVertex, obj.VertexCount()
	m.indexStart, m.indexCount = len(b.indices), obj.IndexCount()
	b.vertices = append(b.vertices, make([]float32, m.vertexCount*FloatsPerVertex)...)
	b.indices = append(b.indices, make([]uint32, m.indexCount)...)
	b.pack(m)
	b.dirtyVerts.add(m.vertexStart, m.vertexStart+m.vertexCount)
	b.dirtyIndices.add(m.indexStart, m.indexStart+m.indexCount)
	return nil
}

// Remove drops the named member. The gap it leaves is closed by a single
// rebuild at the next flush, however many members are removed before then.
func (b *Batch) Remove(name string) bool {
	m, ok := b.lookup[name]
	if !ok {
		return false
	}
	delete(b.lookup, name)
	b.vertexCount -= m.obj.VertexCount()
	b.indexCount -= m.obj.IndexCount()
	m.obj.owner, m.obj.slot = nil, nil
	m.obj = nil
	b.rebuild = true
	b.removals++
	return true
}

// checkResize validates that o can change to the given counts.
func (b *Batch) checkResize(o *RenderObject, vertices, indices int) error {
	return b.checkVertices(b.vertexCount - o.VertexCount() + vertices)
}

// shapeChanged is called after o's geometry was replaced.
func (b *Batch) shapeChanged(o *RenderObject, oldVertices, oldIndices int) {
	b.vertexCount += o.VertexCount() - oldVertices
	b.indexCount += o.IndexCount() - oldIndices
	b.repack(o.slot)
}

// verticesChanged is called after o's transform or per-vertex attributes
// changed. Only o's vertex range becomes dirty.
func (b *Batch) verticesChanged(o *RenderObject) {
	if b.rebuild {
		return
	}
	m := o.slot
	o.packVertices(b.vertices[m.vertexStart*FloatsPerVertex : (m.vertexStart+m.vertexCount)*FloatsPerVertex])
	b.dirtyVerts.add(m.vertexStart, m.vertexStart+m.vertexCount)
}

// repack rewrites m in place when its size is unchanged, and schedules a
// rebuild otherwise.
func (b *Batch) repack(m *member) {
	if b.rebuild {
		return
	}
	if m.obj.VertexCount() != m.vertexCount || m.obj.IndexCount() != m.indexCount {
		b.rebuild = true
		return
	}
	b.pack(m)
	b.dirtyVerts.add(m.vertexStart, m.vertexStart+m.vertexCount)
	b.dirtyIndices.add(m.indexStart, m.indexStart+m.indexCount)
}

func (b *Batch) pack(m *member) {
	m.obj.packVertices(b.vertices[m.vertexStart*FloatsPerVertex : (m.vertexStart+m.vertexCount)*FloatsPerVertex])
	m.obj.packIndices(b.indices[m.indexStart:m.indexStart+m.indexCount], uint32(m.vertexStart))
}

// rebuildPacked drops removed members and repacks everything contiguously
// in insertion order.
func (b *Batch) rebuildPacked() {
	b.vertices = resizeFloats(b.vertices, b.vertexCount*FloatsPerVertex)
	b.indices = resizeUints(b.indices, b.indexCount)

	live := b.members[:0]
	v, i := 0, 0
	for _, m := range b.members {
		if m.obj == nil {
			continue
		}
		m.vertexStart, m.vertexCount = v, m.obj.VertexCount()
		m.indexStart, m.indexCount = i, m.obj.IndexCount()
		b.pack(m)
		v += m.vertexCount
		i += m.indexCount
		live = append(live, m)
	}
	for k := len(live); k < len(b.members); k++ {
		b.members[k] = nil
	}
	b.members = live

	if b.removals > 0 {
		memoryLogger.Printf("batch#%03d %s rebuilt after %d removal(s): %d members, %d vertices, %d indices",
			b.id, b.key, b.removals, len(live), v, i)
	}
	b.rebuild = false
	b.removals = 0
	b.upload = true
}

// Flush uploads the batch's pending changes to s, the store that owns it,
// placing it in a large enough region first.
func (b *Batch) Flush(s *BufferStore) error {
	if s.batches[b.key] != b {
		return fmt.Errorf("batch#%03d %s is not part of the %s store", b.id, b.key, s.class)
	}
	if err := s.place(); err != nil {
		return err
	}
	return b.flush(s)
}

// flush brings the batch's region of the store buffers up to date. The
// store must have placed the batch in a region large enough for it.
func (b *Batch) flush(s *BufferStore) error {
	if b.rebuild {
		b.rebuildPacked()
	}

	if b.upload {
		if err := s.uploadVertices(b.vertexOffset, b.vertices); err != nil {
			return err
		}
		if err := s.uploadIndices(b.indexOffset, b.indices, uint32(b.vertexOffset)); err != nil {
			return err
		}
		b.upload = false
		b.dirtyVerts, b.dirtyIndices = span{}, span{}
		return nil
	}

	if d := b.dirtyVerts; !d.empty() {
		data := b.vertices[d.lo*FloatsPerVertex : d.hi*FloatsPerVertex]
		if err := s.uploadVertices(b.vertexOffset+d.lo, data); err != nil {
			return err
		}
		b.dirtyVerts = span{}
	}
	if d := b.dirtyIndices; !d.empty() {
		if err := s.uploadIndices(b.indexOffset+d.lo, b.indices[d.lo:d.hi], uint32(b.vertexOffset)); err != nil {
			return err
		}
		b.dirtyIndices = span{}
	}
	return nil
}

func resizeFloats(s []float32, n int) []float32 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]float32, n)
}

func resizeUints(s []uint32, n int) []uint32 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]uint32, n)
}
