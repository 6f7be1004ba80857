package memory

import (
	"fmt"
	"sort"
	"time"
)

// BufferStore owns one vertex buffer and one index buffer shared by all
// batches of a buffer class. Each batch is given a reserved region of both
// buffers; a batch that outgrows its region is moved to the tail, and when
// the tail runs out the store repacks every batch, growing the buffers
// geometrically if needed.
type BufferStore struct {
	backend Backend
	class   BufferClass
	cfg     Config

	vbo, ibo       BufferHandle
	vertexCapacity int // in vertices
	indexCapacity  int // in indices

	batches map[BatchKey]*Batch
	order   []*Batch // creation order, also draw order

	// End of the used range of each buffer. Regions before the tail that
	// belong to no batch are holes left by relocated or pruned batches.
	vertexTail, indexTail int

	nextBatchID int
	compactor   *Compactor
	stats       Stats

	scratch []uint32 // rebased indices for upload
}

// NewBufferStore allocates the buffer pair for class at the configured
// initial capacity.
func NewBufferStore(backend Backend, class BufferClass, cfg Config) (*BufferStore, error) {
	cfg = cfg.withDefaults()
	s := &BufferStore{
		backend:   backend,
		class:     class,
		cfg:       cfg,
		batches:   make(map[BatchKey]*Batch),
		compactor: newCompactor(cfg.DefragThreshold),
	}
	if err := s.allocate(cfg.InitialVertices, cfg.InitialIndices); err != nil {
		return nil, err
	}
	memoryLogger.Printf("[%s] allocated store: %s vertices, %s indices",
		class, formatNumber(int64(s.vertexCapacity)), formatNumber(int64(s.indexCapacity)))
	return s, nil
}

func (s *BufferStore) allocate(vertices, indices int) error {
	vbo, err := s.backend.CreateBuffer(VertexBuffer, vertices*VertexStride, s.class.Usage())
	if err != nil {
		return wrapBackend(err, "create %s vertex buffer", s.class)
	}
	ibo, err := s.backend.CreateBuffer(IndexBuffer, indices*IndexSize, s.class.Usage())
	if err != nil {
		s.backend.DeleteBuffer(vbo)
		return wrapBackend(err, "create %s index buffer", s.class)
	}
	s.vbo, s.ibo = vbo, ibo
	s.vertexCapacity, s.indexCapacity = vertices, indices
	return nil
}

func (s *BufferStore) Class() BufferClass { return s.class }

// Capacity returns the allocated size of the buffers, in vertices and
// indices.
func (s *BufferStore) Capacity() (vertices, indices int) {
	return s.vertexCapacity, s.indexCapacity
}

// Batch returns the batch for key, if any.
func (s *BufferStore) Batch(key BatchKey) (*Batch, bool) {
	b, ok := s.batches[key]
	return b, ok
}

// Batches returns the store's batches in draw order, including batches
// emptied since the last flush.
func (s *BufferStore) Batches() []*Batch {
	out := make([]*Batch, len(s.order))
	copy(out, s.order)
	return out
}

// Upsert inserts or replaces obj under name in the batch for key, creating
// the batch on first use.
func (s *BufferStore) Upsert(key BatchKey, name string, obj *RenderObject) error {
	if ClassOf(key.Static) != s.class {
		return fmt.Errorf("batch %s does not belong to the %s store", key, s.class)
	}
	if n := obj.VertexCount(); n > s.cfg.MaxBatchVertices {
		return fmt.Errorf("%w: object %q has %d vertices (max %d per batch)",
			ErrCapacityExceeded, name, n, s.cfg.MaxBatchVertices)
	}

	b, ok := s.batches[key]
	if !ok {
		b = newBatch(s.nextBatchID, key, s.cfg.MaxBatchVertices)
	}
	if err := b.Upsert(name, obj); err != nil {
		return err
	}
	if !ok {
		s.nextBatchID++
		s.batches[key] = b
		s.order = append(s.order, b)
		memoryLogger.Printf("[%s] created batch#%03d %s", s.class, b.id, key)
	}
	return nil
}

// Remove drops name from the batch for key. Reclaiming the space is deferred
// to the next flush.
func (s *BufferStore) Remove(key BatchKey, name string) bool {
	b, ok := s.batches[key]
	if !ok {
		return false
	}
	return b.Remove(name)
}

// EnsureCapacity grows the buffers so they hold at least the given number
// of vertices and indices. Each buffer that grows gets
// max(required, capacity*GrowthFactor). Growing discards the GPU contents,
// so every batch is laid out again and re-uploaded in full at the next
// flush.
func (s *BufferStore) EnsureCapacity(vertices, indices int) error {
	if vertices <= s.vertexCapacity && indices <= s.indexCapacity {
		return nil
	}

	startTime := time.Now()
	newVertices := grow(s.vertexCapacity, vertices, s.cfg.GrowthFactor)
	newIndices := grow(s.indexCapacity, indices, s.cfg.GrowthFactor)

	if newVertices != s.vertexCapacity {
		if err := s.backend.ResizeBuffer(s.vbo, newVertices*VertexStride); err != nil {
			return wrapBackend(err, "resize %s vertex buffer to %d vertices", s.class, newVertices)
		}
		memoryLogger.Printf("[%s] vertex buffer grown %s -> %s vertices", s.class,
			formatNumber(int64(s.vertexCapacity)), formatNumber(int64(newVertices)))
		s.vertexCapacity = newVertices
		s.invalidate()
	}
	if newIndices != s.indexCapacity {
		if err := s.backend.ResizeBuffer(s.ibo, newIndices*IndexSize); err != nil {
			return wrapBackend(err, "resize %s index buffer to %d indices", s.class, newIndices)
		}
		memoryLogger.Printf("[%s] index buffer grown %s -> %s indices", s.class,
			formatNumber(int64(s.indexCapacity)), formatNumber(int64(newIndices)))
		s.indexCapacity = newIndices
		s.invalidate()
	}

	s.layout()
	s.stats.GrowthEvents++
	s.stats.LastGrowthTimeUs = float64(time.Since(startTime).Microseconds())
	return nil
}

// invalidate marks every batch for a full upload.
func (s *BufferStore) invalidate() {
	for _, b := range s.order {
		b.upload = true
	}
}

// layout packs every batch region back to back from the start of the
// buffers. Callers must have ensured required() fits; see repack.
func (s *BufferStore) layout() {
	s.vertexTail, s.indexTail = 0, 0
	for _, b := range s.order {
		if b.vertexReserve < b.vertexCount {
			b.vertexReserve = b.vertexCount
		}
		if b.indexReserve < b.indexCount {
			b.indexReserve = b.indexCount
		}
		if b.placed && (b.vertexOffset != s.vertexTail || b.indexOffset != s.indexTail) {
			s.stats.Relocations++
		}
		b.vertexOffset, b.indexOffset = s.vertexTail, s.indexTail
		b.placed, b.upload = true, true
		s.vertexTail += b.vertexReserve
		s.indexTail += b.indexReserve
	}
}

// reserved returns the total size of all batch regions.
func (s *BufferStore) reserved() (vertices, indices int) {
	for _, b := range s.order {
		vertices += b.vertexReserve
		indices += b.indexReserve
	}
	return vertices, indices
}

// place gives every unplaced or outgrown batch a region large enough for
// its contents. On failure the batches keep their previous regions and
// stay pending, so a later flush places them again.
func (s *BufferStore) place() error {
	var pending []*Batch
	for _, b := range s.order {
		if !b.placed || b.vertexCount > b.vertexReserve || b.indexCount > b.indexReserve {
			pending = append(pending, b)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	old := make([][2]int, len(pending))
	vertices, indices := s.vertexTail, s.indexTail
	for i, b := range pending {
		old[i] = [2]int{b.vertexReserve, b.indexReserve}
		b.vertexReserve = grow(b.vertexReserve, b.vertexCount, s.cfg.GrowthFactor)
		b.indexReserve = grow(b.indexReserve, b.indexCount, s.cfg.GrowthFactor)
		vertices += b.vertexReserve
		indices += b.indexReserve
	}

	if vertices <= s.vertexCapacity && indices <= s.indexCapacity {
		for _, b := range pending {
			if b.placed {
				s.stats.Relocations++
				memoryLogger.Printf("[%s] batch#%03d %s outgrew its region, moved to tail", s.class, b.id, b.key)
			}
			b.vertexOffset, b.indexOffset = s.vertexTail, s.indexTail
			b.placed, b.upload = true, true
			s.vertexTail += b.vertexReserve
			s.indexTail += b.indexReserve
		}
		return nil
	}

	// No room at the tail: repack from the start.
	if err := s.repack(); err != nil {
		for i, b := range pending {
			b.vertexReserve, b.indexReserve = old[i][0], old[i][1]
		}
		return err
	}
	return nil
}

// repack lays every batch out from the start of the buffers, growing them
// first if the regions do not fit. Reserves are only raised once the
// buffers are large enough.
func (s *BufferStore) repack() error {
	vertices, indices := s.required()
	if vertices > s.vertexCapacity || indices > s.indexCapacity {
		return s.EnsureCapacity(vertices, indices)
	}
	s.layout()
	return nil
}

// required returns the buffer size layout needs: every region, raised to
// its batch's current contents.
func (s *BufferStore) required() (vertices, indices int) {
	for _, b := range s.order {
		vertices += max(b.vertexReserve, b.vertexCount)
		indices += max(b.indexReserve, b.indexCount)
	}
	return vertices, indices
}

// prune drops batches left empty by removals.
func (s *BufferStore) prune() {
	live := s.order[:0]
	for _, b := range s.order {
		if b.Len() > 0 {
			live = append(live, b)
			continue
		}
		delete(s.batches, b.key)
		s.stats.BatchesPruned++
		memoryLogger.Printf("[%s] pruned empty batch#%03d %s", s.class, b.id, b.key)
	}
	for k := len(live); k < len(s.order); k++ {
		s.order[k] = nil
	}
	s.order = live
	if len(s.order) == 0 {
		s.vertexTail, s.indexTail = 0, 0
	}
}

// Flush prunes empty batches, places batches that need a region, and
// uploads everything dirty. Clean batches cost nothing.
func (s *BufferStore) Flush() error {
	s.prune()
	if err := s.place(); err != nil {
		return err
	}
	for _, b := range s.order {
		if err := b.flush(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *BufferStore) uploadVertices(offset int, data []float32) error {
	if len(data) == 0 {
		return nil
	}
	if err := s.backend.UpdateBufferRange(s.vbo, offset*VertexStride, float32Bytes(data)); err != nil {
		return wrapBackend(err, "upload %d %s vertices at %d", len(data)/FloatsPerVertex, s.class, offset)
	}
	s.stats.Uploads++
	s.stats.BytesUploaded += int64(len(data) * 4)
	return nil
}

// uploadIndices rebases batch-relative indices by base before uploading.
func (s *BufferStore) uploadIndices(offset int, data []uint32, base uint32) error {
	if len(data) == 0 {
		return nil
	}
	s.scratch = resizeUints(s.scratch, len(data))
	for i, idx := range data {
		s.scratch[i] = idx + base
	}
	if err := s.backend.UpdateBufferRange(s.ibo, offset*IndexSize, uint32Bytes(s.scratch)); err != nil {
		return wrapBackend(err, "upload %d %s indices at %d", len(data), s.class, offset)
	}
	s.stats.Uploads++
	s.stats.BytesUploaded += int64(len(data) * IndexSize)
	return nil
}

// Draw issues one indexed draw per non-empty batch. The store must have been
// flushed since the last mutation.
func (s *BufferStore) Draw(binder *StateBinder) error {
	s.stats.DrawCalls, s.stats.IndicesDrawn = 0, 0

	bound := false
	for _, b := range s.order {
		if b.Len() == 0 {
			continue
		}
		if b.Dirty() {
			return fmt.Errorf("[%s] batch#%03d %s drawn before flush", s.class, b.id, b.key)
		}
		if !bound {
			if err := s.backend.BindVertexLayout(s.vbo, s.ibo, DefaultLayout); err != nil {
				return wrapBackend(err, "bind %s buffers", s.class)
			}
			bound = true
		}
		if err := binder.Bind(b.key.State()); err != nil {
			return err
		}
		if err := s.backend.DrawIndexed(b.key.Primitive, b.indexCount, b.indexOffset); err != nil {
			return wrapBackend(err, "draw batch#%03d %s", b.id, b.key)
		}
		s.stats.DrawCalls++
		s.stats.IndicesDrawn += b.indexCount
	}
	s.prune()
	return nil
}

// Clear detaches every object, drops all batches and shrinks the buffers
// back to their initial capacity.
func (s *BufferStore) Clear() error {
	for _, b := range s.order {
		for _, m := range b.members {
			if m.obj != nil {
				m.obj.owner, m.obj.slot = nil, nil
			}
		}
	}
	s.batches = make(map[BatchKey]*Batch)
	s.order = nil
	s.vertexTail, s.indexTail = 0, 0

	if s.vertexCapacity != s.cfg.InitialVertices {
		if err := s.backend.ResizeBuffer(s.vbo, s.cfg.InitialVertices*VertexStride); err != nil {
			return wrapBackend(err, "shrink %s vertex buffer", s.class)
		}
		s.vertexCapacity = s.cfg.InitialVertices
	}
	if s.indexCapacity != s.cfg.InitialIndices {
		if err := s.backend.ResizeBuffer(s.ibo, s.cfg.InitialIndices*IndexSize); err != nil {
			return wrapBackend(err, "shrink %s index buffer", s.class)
		}
		s.indexCapacity = s.cfg.InitialIndices
	}
	memoryLogger.Printf("[%s] cleared", s.class)
	return nil
}

// Release frees the backend buffers. The store must not be used afterwards.
func (s *BufferStore) Release() {
	s.backend.DeleteBuffer(s.vbo)
	s.backend.DeleteBuffer(s.ibo)
	s.batches, s.order = nil, nil
}

// waste returns the fraction of the used vertex and index ranges that no
// batch region covers, whichever is larger.
func (s *BufferStore) waste() float64 {
	vertices, indices := s.reserved()
	frac := func(used, tail int) float64 {
		if tail == 0 {
			return 0
		}
		return float64(tail-used) / float64(tail)
	}
	v, i := frac(vertices, s.vertexTail), frac(indices, s.indexTail)
	if i > v {
		return i
	}
	return v
}

// TryCompaction repacks the store if holes make up more than the configured
// fraction of its used range. Reports whether it compacted. Call
// periodically rather than every frame.
func (s *BufferStore) TryCompaction() (bool, error) {
	if !s.compactor.ScanForCompaction(s) {
		return false, nil
	}

	startTime := time.Now()
	moved, err := s.compactor.Compact(s)
	if err != nil {
		return false, err
	}
	s.stats.CompactionEvents++
	s.stats.LastCompactionTimeUs = float64(time.Since(startTime).Microseconds())
	compactionLogger.Printf("[%s] completed: %d batches moved in %.2fμs", s.class, moved, s.stats.LastCompactionTimeUs)
	return true, nil
}

// sortedBatches returns the batches ordered by their offset in the buffers.
func (s *BufferStore) sortedBatches() []*Batch {
	out := s.Batches()
	sort.Slice(out, func(i, j int) bool { return out[i].vertexOffset < out[j].vertexOffset })
	return out
}
