package latency

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/rvsim/timing/mem"
)

// EnvPrefix prefixes the environment variables read by ApplyEnv.
const EnvPrefix = "RVSIM_"

// TimingConfig holds the latency and geometry parameters of the simulated
// memory system.
type TimingConfig struct {
	// UncachedLatency is the access latency of the uncached port.
	// Default: 120 cycles.
	UncachedLatency uint32 `json:"uncached_latency"`

	// LineFillLatency is the wait charged by a cache line fill.
	// Default: 136 cycles.
	LineFillLatency uint32 `json:"line_fill_latency"`

	// DataHitPenalty is added to the pending wait on a data cache hit.
	// Default: 3 cycles.
	DataHitPenalty uint32 `json:"data_hit_penalty"`

	// CodeCacheLines is the instruction cache capacity. Default: 8 lines.
	CodeCacheLines int `json:"code_cache_lines"`

	// DataCacheLines is the data cache capacity. Default: 64 lines.
	DataCacheLines int `json:"data_cache_lines"`

	// MemoryWords is the backing store size in words, a whole number of
	// cache lines. Default: 1 Mi words.
	MemoryWords int `json:"memory_words"`

	// ClockMHz is the simulated core clock. Default: 1000 MHz.
	ClockMHz uint64 `json:"clock_mhz"`
}

// DefaultTimingConfig returns a TimingConfig with the reference values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		UncachedLatency: 120,
		LineFillLatency: 136,
		DataHitPenalty:  3,
		CodeCacheLines:  8,
		DataCacheLines:  64,
		MemoryWords:     1024 * 1024,
		ClockMHz:        1000,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from RVSIM_* environment variables, e.g.
// RVSIM_LINE_FILL_LATENCY=200. Unset variables leave fields unchanged.
func (c *TimingConfig) ApplyEnv() error {
	u32 := []struct {
		name  string
		field *uint32
	}{
		{"UNCACHED_LATENCY", &c.UncachedLatency},
		{"LINE_FILL_LATENCY", &c.LineFillLatency},
		{"DATA_HIT_PENALTY", &c.DataHitPenalty},
	}
	for _, v := range u32 {
		s, ok := os.LookupEnv(EnvPrefix + v.name)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, v.name, err)
		}
		*v.field = uint32(n)
	}

	ints := []struct {
		name  string
		field *int
	}{
		{"CODE_CACHE_LINES", &c.CodeCacheLines},
		{"DATA_CACHE_LINES", &c.DataCacheLines},
		{"MEMORY_WORDS", &c.MemoryWords},
	}
	for _, v := range ints {
		s, ok := os.LookupEnv(EnvPrefix + v.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, v.name, err)
		}
		*v.field = n
	}

	if s, ok := os.LookupEnv(EnvPrefix + "CLOCK_MHZ"); ok {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sCLOCK_MHZ: %w", EnvPrefix, err)
		}
		c.ClockMHz = n
	}

	return nil
}

// Validate checks that every parameter is usable.
func (c *TimingConfig) Validate() error {
	if c.CodeCacheLines <= 0 {
		return fmt.Errorf("code_cache_lines must be > 0")
	}
	if c.DataCacheLines <= 0 {
		return fmt.Errorf("data_cache_lines must be > 0")
	}
	if c.MemoryWords <= 0 {
		return fmt.Errorf("memory_words must be > 0")
	}
	if c.MemoryWords > 1<<30 {
		return fmt.Errorf("memory_words must be <= %d", 1<<30)
	}
	if c.MemoryWords%mem.LineSizeWords != 0 {
		return fmt.Errorf("memory_words must be a multiple of %d", mem.LineSizeWords)
	}
	if c.ClockMHz == 0 {
		return fmt.Errorf("clock_mhz must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
