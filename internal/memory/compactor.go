package memory

import (
	"io"
	"log"
	"os"
)

var compactionLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("BATCHVIEW_DEBUG_COMPACTION") == "1" {
		compactionLogger = log.New(os.Stdout, "[compaction] ", log.Ltime|log.Lmsgprefix)
	}
}

// Compactor closes the holes batch relocations and pruning leave in a
// store's buffers.
type Compactor struct {
	threshold float64
}

func newCompactor(threshold float64) *Compactor {
	return &Compactor{threshold: threshold}
}

// ScanForCompaction reports whether the wasted fraction of the store's used
// range exceeds the threshold.
func (c *Compactor) ScanForCompaction(s *BufferStore) bool {
	if len(s.order) == 0 {
		return false
	}

	compactionLogger.Printf("[%s] scanning %d batches (max-waste=%.1f%%)", s.class, len(s.order), c.threshold*100)
	for i, b := range s.sortedBatches() {
		compactionLogger.Printf("[%s] batch[%d/%d]#%03d at %d: %d/%d vertices, %d/%d indices",
			s.class, i+1, len(s.order), b.id, b.vertexOffset,
			b.vertexCount, b.vertexReserve, b.indexCount, b.indexReserve)
	}

	waste := s.waste()
	if waste <= c.threshold {
		compactionLogger.Printf("[%s] TOO DENSE (%.1f%% wasted)", s.class, waste*100)
		return false
	}
	compactionLogger.Printf("[%s] CANDIDATE (%.1f%% wasted)", s.class, waste*100)
	return true
}

// Compact lays the store's batches out back to back and re-uploads them.
// Returns the number of batches that moved.
func (c *Compactor) Compact(s *BufferStore) (int, error) {
	before := s.stats.Relocations
	s.prune()
	// Batches may have grown since the last flush, so the packed regions
	// can exceed the current capacity.
	if err := s.repack(); err != nil {
		compactionLogger.Printf("[%s] failed to grow for compacted layout: %v", s.class, err)
		return 0, err
	}
	if err := s.Flush(); err != nil {
		compactionLogger.Printf("[%s] failed to upload compacted batches: %v", s.class, err)
		return 0, err
	}
	return s.stats.Relocations - before, nil
}
