// Package cache models a split instruction/data cache in front of a backing
// store. Both caches are fully associative with true LRU replacement and use
// akita cache directories for tag management.
package cache

import (
	"log"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/mem"
)

// Config holds cache engine parameters.
type Config struct {
	// CodeLines is the instruction cache capacity in lines.
	CodeLines int
	// DataLines is the data cache capacity in lines.
	DataLines int
	// LineLatency is the wait charged by a line fill, in cycles.
	LineLatency uint32
	// DataHitPenalty is added to the pending wait on a data cache hit.
	DataHitPenalty uint32
}

// DefaultConfig returns the reference configuration: an 8-line instruction
// cache and a 64-line data cache of 64-byte lines.
func DefaultConfig() Config {
	return Config{
		CodeLines:      8,
		DataLines:      64,
		LineLatency:    136,
		DataHitPenalty: 3,
	}
}

// AccessKind tells fetches, loads and stores apart in access events.
type AccessKind uint8

// Access kinds.
const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
)

func (k AccessKind) String() string {
	switch k {
	case AccessFetch:
		return "fetch"
	case AccessLoad:
		return "load"
	case AccessStore:
		return "store"
	}
	return "unknown"
}

// HookPosAccess marks a cache lookup. The hook item is an AccessEvent.
var HookPosAccess = &sim.HookPos{Name: "CacheAccess"}

// AccessEvent describes one lookup in one of the caches.
type AccessEvent struct {
	Cycle      uint64
	Cache      string
	Kind       AccessKind
	Addr       uint32
	Tag        uint32
	Hit        bool
	Evicted    bool
	EvictedTag uint32
	WaitCycles uint32
}

// Eviction records the most recent line evicted from either cache.
type Eviction struct {
	Cache       string
	Tag         uint32
	Line        mem.Line
	WrittenBack bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger makes the engine log misses and evictions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine implements mem.Memory with an instruction cache and a data cache
// sharing one wait counter, one memory port.
type Engine struct {
	*sim.HookableBase

	config Config
	store  mem.BackingStore
	code   *LineCache
	data   *LineCache
	logger *slog.Logger

	wait         uint32
	fetchAddr    uint32
	noMemOp      bool
	lastEviction *Eviction
	cycle        uint64
}

// NewEngine creates an engine with empty caches in front of store.
func NewEngine(store mem.BackingStore, config Config, opts ...Option) *Engine {
	e := &Engine{
		HookableBase: sim.NewHookableBase(),
		config:       config,
		store:        store,
		code:         NewLineCache("icache", config.CodeLines),
		data:         NewLineCache("dcache", config.DataLines),
		logger:       slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// CodeCache returns the instruction cache.
func (e *Engine) CodeCache() *LineCache {
	return e.code
}

// DataCache returns the data cache.
func (e *Engine) DataCache() *LineCache {
	return e.data
}

// WaitCycles returns the cycles left before the pending access is ready.
func (e *Engine) WaitCycles() uint32 {
	return e.wait
}

// NoMemOp reports whether the last data request needed no memory access.
func (e *Engine) NoMemOp() bool {
	return e.noMemOp
}

// LastEviction returns the most recent eviction from either cache.
func (e *Engine) LastEviction() (Eviction, bool) {
	if e.lastEviction == nil {
		return Eviction{}, false
	}
	return *e.lastEviction, true
}

// Cycle returns the number of clock edges seen.
func (e *Engine) Cycle() uint64 {
	return e.cycle
}

// RequestFetch looks up the line holding ip in the instruction cache. A hit
// costs nothing; a miss fills the line and charges the line latency.
func (e *Engine) RequestFetch(ip uint32) {
	e.fetchAddr = ip
	tag := mem.LineAddr(ip)

	ev := AccessEvent{
		Cycle: e.cycle,
		Cache: e.code.Name(),
		Kind:  AccessFetch,
		Addr:  ip,
		Tag:   tag,
	}

	if e.code.Touch(tag) {
		e.code.stats.Hits++
		ev.Hit = true
	} else {
		e.code.stats.Misses++
		e.fill(e.code, tag, false, &ev)
		e.wait = e.config.LineLatency
	}

	ev.WaitCycles = e.wait
	e.invokeAccess(ev)
}

// PollFetch returns the fetched word once the wait has expired.
func (e *Engine) PollFetch() (uint32, bool) {
	if e.wait > 0 {
		return 0, false
	}

	word, ok := e.code.ReadWord(mem.LineAddr(e.fetchAddr), mem.LineOffset(e.fetchAddr))
	if !ok {
		log.Panicf("fetch poll at 0x%08X without a resident line", e.fetchAddr)
	}
	e.code.stats.Reads++

	return word, true
}

// RequestData looks up the line holding addr in the data cache. Kinds other
// than loads and stores need no access. A hit adds the hit penalty to the
// pending wait; a miss fills the line, writing back any evicted line, and
// charges the line latency.
func (e *Engine) RequestData(addr uint32, kind insts.IType) {
	e.noMemOp = !kind.IsMemory()
	if e.noMemOp {
		return
	}

	tag := mem.LineAddr(addr)
	ev := AccessEvent{
		Cycle: e.cycle,
		Cache: e.data.Name(),
		Kind:  AccessLoad,
		Addr:  addr,
		Tag:   tag,
	}
	if kind == insts.St {
		ev.Kind = AccessStore
	}

	if e.data.Touch(tag) {
		e.data.stats.Hits++
		ev.Hit = true
		e.wait += e.config.DataHitPenalty
	} else {
		e.data.stats.Misses++
		e.fill(e.data, tag, true, &ev)
		e.wait = e.config.LineLatency
	}

	ev.WaitCycles = e.wait
	e.invokeAccess(ev)
}

// PollData completes the access once the wait has expired. A load reads the
// cached word; a store updates the cached line and writes the word through
// to the backing store.
func (e *Engine) PollData(addr uint32, kind insts.IType, data *uint32) bool {
	if !kind.IsMemory() {
		return true
	}
	if e.wait > 0 {
		return false
	}

	tag := mem.LineAddr(addr)
	offset := mem.LineOffset(addr)

	if kind == insts.Ld {
		word, ok := e.data.ReadWord(tag, offset)
		if !ok {
			log.Panicf("load poll at 0x%08X without a resident line", addr)
		}
		*data = word
		e.data.stats.Reads++
		return true
	}

	if !e.data.WriteWord(tag, offset, *data) {
		log.Panicf("store poll at 0x%08X without a resident line", addr)
	}
	e.store.Write(addr, *data)
	e.data.stats.Writes++

	return true
}

// Clock advances the cycle count and the wait countdown, which stops at
// zero.
func (e *Engine) Clock() {
	e.cycle++
	if e.wait > 0 {
		e.wait--
	}
}

// fill reads the line at tag from the backing store into a fresh buffer and
// installs it. A data line pushed out by the fill is written back in full.
func (e *Engine) fill(c *LineCache, tag uint32, writeBack bool, ev *AccessEvent) {
	line := mem.ReadLine(e.store, tag)

	victim, evicted := c.Fill(tag, line)
	if !evicted {
		e.logger.Debug("cache fill",
			"cache", c.Name(), "tag", tag, "cycle", e.cycle)
		return
	}

	if writeBack {
		mem.WriteLine(e.store, victim.Tag, &victim.Line)
		c.stats.Writebacks++
	}

	ev.Evicted = true
	ev.EvictedTag = victim.Tag
	e.lastEviction = &Eviction{
		Cache:       c.Name(),
		Tag:         victim.Tag,
		Line:        victim.Line,
		WrittenBack: writeBack,
	}

	e.logger.Debug("cache eviction",
		"cache", c.Name(), "tag", tag, "victim", victim.Tag,
		"writeback", writeBack, "cycle", e.cycle)
}

func (e *Engine) invokeAccess(ev AccessEvent) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    HookPosAccess,
		Item:   ev,
	})
}
