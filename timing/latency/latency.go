// Package latency holds the timing parameters of the simulated memory system
// and builds memory models from them.
//
// The reference values reproduce a 120-cycle uncached port and a split cache
// with 136-cycle line fills and a 3-cycle data hit penalty. They can be
// changed through a JSON file or RVSIM_* environment variables.
package latency

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/mem"
)

// CacheConfig returns the cache engine parameters of this configuration.
func (c *TimingConfig) CacheConfig() cache.Config {
	return cache.Config{
		CodeLines:      c.CodeCacheLines,
		DataLines:      c.DataCacheLines,
		LineLatency:    c.LineFillLatency,
		DataHitPenalty: c.DataHitPenalty,
	}
}

// Freq returns the simulated clock frequency.
func (c *TimingConfig) Freq() sim.Freq {
	return sim.Freq(c.ClockMHz) * sim.MHz
}

// NewMemory builds the memory model in front of store: the uncached port if
// uncached is set, the cache engine otherwise.
func (c *TimingConfig) NewMemory(
	store mem.BackingStore,
	uncached bool,
	opts ...cache.Option,
) mem.Memory {
	if uncached {
		return mem.NewUncached(store, c.UncachedLatency)
	}
	return cache.NewEngine(store, c.CacheConfig(), opts...)
}
