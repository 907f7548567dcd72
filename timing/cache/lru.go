package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rvsim/timing/mem"
)

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns Hits / (Hits + Misses), or 0 before any access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Victim is a line removed from a LineCache to make room for another.
type Victim struct {
	Tag  uint32
	Line mem.Line
}

// LineCache is a fully associative, true-LRU set of resident lines keyed by
// their line address. Tag membership and the replacement order live in an
// akita directory with one set and one way per line.
type LineCache struct {
	name     string
	capacity int

	directory *akitacache.DirectoryImpl
	lines     []mem.Line

	stats Statistics
}

// NewLineCache creates an empty cache holding at most capacity lines.
func NewLineCache(name string, capacity int) *LineCache {
	return &LineCache{
		name:     name,
		capacity: capacity,
		directory: akitacache.NewDirectory(
			1,
			capacity,
			mem.LineSizeBytes,
			akitacache.NewLRUVictimFinder(),
		),
		lines: make([]mem.Line, capacity),
	}
}

// Name returns the cache name.
func (c *LineCache) Name() string {
	return c.name
}

// Capacity returns the maximum number of resident lines.
func (c *LineCache) Capacity() int {
	return c.capacity
}

// Stats returns cache statistics.
func (c *LineCache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *LineCache) ResetStats() {
	c.stats = Statistics{}
}

func (c *LineCache) lookup(tag uint32) *akitacache.Block {
	block := c.directory.Lookup(0, uint64(tag))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// blockIndex computes the index into lines for a block.
func (c *LineCache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.capacity + block.WayID
}

// touch makes block the most recently used line.
func (c *LineCache) touch(block *akitacache.Block) {
	c.directory.Visit(block)
}

// Contains reports whether the line at tag is resident.
func (c *LineCache) Contains(tag uint32) bool {
	return c.lookup(tag) != nil
}

// Touch refreshes the recency of a resident line. It reports whether the
// line was resident.
func (c *LineCache) Touch(tag uint32) bool {
	block := c.lookup(tag)
	if block == nil {
		return false
	}
	c.touch(block)
	return true
}

// Fill installs line under tag as the most recently used line. If the cache
// is full, the least recently used line is removed first and returned.
// Filling a tag that is already resident only refreshes its recency.
func (c *LineCache) Fill(tag uint32, line mem.Line) (Victim, bool) {
	if block := c.lookup(tag); block != nil {
		c.touch(block)
		return Victim{}, false
	}

	block := c.directory.FindVictim(uint64(tag))
	idx := c.blockIndex(block)

	var victim Victim
	evicted := block.IsValid
	if evicted {
		victim = Victim{Tag: uint32(block.Tag), Line: c.lines[idx]}
		c.stats.Evictions++
	}

	block.Tag = uint64(tag)
	block.IsValid = true
	block.IsDirty = false
	c.lines[idx] = line
	c.touch(block)

	return victim, evicted
}

// Line returns a copy of the resident line at tag.
func (c *LineCache) Line(tag uint32) (mem.Line, bool) {
	block := c.lookup(tag)
	if block == nil {
		return mem.Line{}, false
	}
	return c.lines[c.blockIndex(block)], true
}

// ReadWord returns one word of a resident line.
func (c *LineCache) ReadWord(tag, offset uint32) (uint32, bool) {
	block := c.lookup(tag)
	if block == nil {
		return 0, false
	}
	return c.lines[c.blockIndex(block)][offset%mem.LineSizeWords], true
}

// WriteWord updates one word of a resident line and marks it dirty.
func (c *LineCache) WriteWord(tag, offset, value uint32) bool {
	block := c.lookup(tag)
	if block == nil {
		return false
	}
	c.lines[c.blockIndex(block)][offset%mem.LineSizeWords] = value
	block.IsDirty = true
	return true
}

// Len returns the number of resident lines.
func (c *LineCache) Len() int {
	n := 0
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				n++
			}
		}
	}
	return n
}

// Recency returns the resident tags from most to least recently used. The
// directory keeps its LRU queue least recently used first.
func (c *LineCache) Recency() []uint32 {
	queue := c.directory.GetSets()[0].LRUQueue

	tags := make([]uint32, 0, len(queue))
	for i := len(queue) - 1; i >= 0; i-- {
		if queue[i].IsValid {
			tags = append(tags, uint32(queue[i].Tag))
		}
	}
	return tags
}

// Reset drops every line without writing anything back.
func (c *LineCache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
