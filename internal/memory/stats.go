package memory

import (
	"fmt"
	"strings"
)

// Stats tracks performance metrics for a buffer store.
type Stats struct {
	Class          BufferClass
	Objects        int
	Batches        int
	Vertices       int // live, across all batches
	Indices        int
	VertexCapacity int
	IndexCapacity  int
	VertexTail     int // end of the used range
	IndexTail      int
	GPUBytes       int64
	Waste          float64

	DrawCalls    int // during the last Draw
	IndicesDrawn int

	Uploads       int
	BytesUploaded int64

	GrowthEvents         int
	LastGrowthTimeUs     float64
	Relocations          int
	BatchesPruned        int
	CompactionEvents     int
	LastCompactionTimeUs float64
}

// Stats returns current statistics.
func (s *BufferStore) Stats() Stats {
	st := s.stats
	st.Class = s.class
	st.Objects, st.Vertices, st.Indices = 0, 0, 0
	st.Batches = len(s.order)
	for _, b := range s.order {
		st.Objects += b.Len()
		st.Vertices += b.vertexCount
		st.Indices += b.indexCount
	}
	st.VertexCapacity, st.IndexCapacity = s.vertexCapacity, s.indexCapacity
	st.VertexTail, st.IndexTail = s.vertexTail, s.indexTail
	st.GPUBytes = int64(s.vertexCapacity*VertexStride + s.indexCapacity*IndexSize)
	st.Waste = s.waste()
	return st
}

// PrintStats outputs store statistics with visual bars.
func (s *BufferStore) PrintStats() {
	stats := s.Stats()

	vertexUtil := 0.0
	if stats.VertexCapacity > 0 {
		vertexUtil = float64(stats.Vertices) / float64(stats.VertexCapacity)
	}
	indexUtil := 0.0
	if stats.IndexCapacity > 0 {
		indexUtil = float64(stats.Indices) / float64(stats.IndexCapacity)
	}

	memoryLogger.Printf("===== %s store stats =====", s.class)
	memoryLogger.Printf("%d growth events (%.2fμs last), %d relocations, %d batches pruned, %d compactions (%.2fμs last), %.1f%% wasted",
		stats.GrowthEvents, stats.LastGrowthTimeUs, stats.Relocations, stats.BatchesPruned,
		stats.CompactionEvents, stats.LastCompactionTimeUs, stats.Waste*100)
	memoryLogger.Printf("%s %.1f%% vertices used (%s/%s), %s %.1f%% indices used (%s/%s), %s GPU",
		makeUtilizationBar(vertexUtil, 12), vertexUtil*100,
		formatNumber(int64(stats.Vertices)), formatNumber(int64(stats.VertexCapacity)),
		makeUtilizationBar(indexUtil, 12), indexUtil*100,
		formatNumber(int64(stats.Indices)), formatNumber(int64(stats.IndexCapacity)),
		formatNumber(stats.GPUBytes))
	memoryLogger.Printf("%d objects in %d batches, %d draw calls (%s indices), %d uploads (%s bytes)",
		stats.Objects, stats.Batches, stats.DrawCalls, formatNumber(int64(stats.IndicesDrawn)),
		stats.Uploads, formatNumber(stats.BytesUploaded))

	for _, b := range s.order {
		util := 0.0
		if b.vertexReserve > 0 {
			util = float64(b.vertexCount) / float64(b.vertexReserve)
		}
		memoryLogger.Printf("    batch#%03d  %s %.0f%% region used (%s/%s vertices, %s/%s indices), %d objects, %s",
			b.id, makeUtilizationBar(util, 8), util*100,
			formatNumber(int64(b.vertexCount)), formatNumber(int64(b.vertexReserve)),
			formatNumber(int64(b.indexCount)), formatNumber(int64(b.indexReserve)),
			b.Len(), b.key)
	}
	memoryLogger.Println(strings.Repeat("=", 27))
}

// makeUtilizationBar creates a visual bar for utilization percentage.
func makeUtilizationBar(utilization float64, width int) string {
	if utilization < 0 {
		utilization = 0
	}
	if utilization > 1 {
		utilization = 1
	}

	filled := int(utilization * float64(width))
	empty := width - filled

	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

// formatNumber formats large numbers with K/M suffixes for readability.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000.0)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000.0)
}
