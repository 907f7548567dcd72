package cache

import "github.com/sarchlab/rvsim/timing/mem"

// CountingBacking wraps a backing store and counts the word traffic that
// reaches it.
type CountingBacking struct {
	store  mem.BackingStore
	reads  uint64
	writes uint64
}

// NewCountingBacking creates a new CountingBacking adapter.
func NewCountingBacking(store mem.BackingStore) *CountingBacking {
	return &CountingBacking{store: store}
}

// Read fetches a word from the wrapped store.
func (b *CountingBacking) Read(addr uint32) uint32 {
	b.reads++
	return b.store.Read(addr)
}

// Write stores a word to the wrapped store.
func (b *CountingBacking) Write(addr uint32, value uint32) {
	b.writes++
	b.store.Write(addr, value)
}

// WordReads returns the number of words read so far.
func (b *CountingBacking) WordReads() uint64 {
	return b.reads
}

// WordWrites returns the number of words written so far.
func (b *CountingBacking) WordWrites() uint64 {
	return b.writes
}
