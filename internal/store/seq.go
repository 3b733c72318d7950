package store

import (
	"strconv"
	"sync"
)

// seqGenerator hands out per-partition counters that only move forward.
// Address books use it for item ids, so an id freed by a deletion is
// never handed out again.
type seqGenerator struct {
	mu           sync.Mutex
	perPartition map[string]int64
}

func newSeqGenerator() *seqGenerator {
	return &seqGenerator{perPartition: make(map[string]int64)}
}

func (g *seqGenerator) next(partition string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.perPartition[partition]++
	return strconv.FormatInt(g.perPartition[partition], 10)
}

// forget drops a partition, e.g. when its address book is deleted.
func (g *seqGenerator) forget(partition string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.perPartition, partition)
}

func (g *seqGenerator) restore(partition string, n int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > g.perPartition[partition] {
		g.perPartition[partition] = n
	}
}

func (g *seqGenerator) snapshot() map[string]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int64, len(g.perPartition))
	for k, v := range g.perPartition {
		out[k] = v
	}
	return out
}
