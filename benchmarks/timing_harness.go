// Package benchmarks provides the timing benchmark harness for rvsim.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/latency"
)

// ProgramBase is the address every benchmark program is loaded at.
const ProgramBase = 0x1000

// DefaultMaxCycles bounds a single benchmark run.
const DefaultMaxCycles = 10_000_000

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Memory is "cached" or "uncached"
	Memory string `json:"memory"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// FetchStalls is the number of cycles spent waiting for fetches
	FetchStalls uint64 `json:"fetch_stalls"`

	// DataStalls is the number of cycles spent waiting for loads and stores
	DataStalls uint64 `json:"data_stalls"`

	// ICacheHits/Misses (cached runs only)
	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`

	// DCacheHits/Misses/Writebacks (cached runs only)
	DCacheHits       uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses     uint64 `json:"dcache_misses,omitempty"`
	DCacheWritebacks uint64 `json:"dcache_writebacks,omitempty"`

	// BackingReads/Writes count word traffic to the backing store
	BackingReads  uint64 `json:"backing_reads"`
	BackingWrites uint64 `json:"backing_writes"`

	// ExitCode is the program's exit code
	ExitCode int `json:"exit_code"`

	// Error is set when the run did not exit normally
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares memory before the run
	Setup func(storage *emu.Storage)

	// Program is the RV32I machine code, loaded at ProgramBase
	Program []byte

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing holds the latencies and cache geometry
	Timing *latency.TimingConfig

	// Uncached runs on the uncached port instead of the cache engine
	Uncached bool

	// MaxCycles bounds each run; 0 means DefaultMaxCycles
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives cache debug events and per-run summaries
	Logger *slog.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Timing:    latency.DefaultTimingConfig(),
		MaxCycles: DefaultMaxCycles,
		Output:    os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.MaxCycles == 0 {
		config.MaxCycles = DefaultMaxCycles
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

func (h *Harness) memoryName() string {
	if h.config.Uncached {
		return "uncached"
	}
	return "cached"
}

// runBenchmark executes a single benchmark on fresh state.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	storage := emu.NewStorage(h.config.Timing.MemoryWords)
	if bench.Setup != nil {
		bench.Setup(storage)
	}
	storage.LoadBytes(ProgramBase, bench.Program)

	backing := cache.NewCountingBacking(storage)
	memory := h.config.Timing.NewMemory(backing, h.config.Uncached,
		cache.WithLogger(h.config.Logger))
	c := core.NewCore(memory)
	c.SetPC(ProgramBase)

	start := time.Now()
	exitCode, err := c.Run(h.config.MaxCycles)
	wallTime := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Memory:              h.memoryName(),
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		FetchStalls:         stats.FetchStalls,
		DataStalls:          stats.DataStalls,
		BackingReads:        backing.WordReads(),
		BackingWrites:       backing.WordWrites(),
		ExitCode:            exitCode,
		WallTime:            wallTime,
	}
	if err != nil {
		result.Error = err.Error()
	} else if exitCode != bench.ExpectedExit {
		result.Error = fmt.Sprintf("exit code %d, expected %d",
			exitCode, bench.ExpectedExit)
	}

	if engine, ok := memory.(*cache.Engine); ok {
		icStats := engine.CodeCache().Stats()
		result.ICacheHits = icStats.Hits
		result.ICacheMisses = icStats.Misses

		dcStats := engine.DataCache().Stats()
		result.DCacheHits = dcStats.Hits
		result.DCacheMisses = dcStats.Misses
		result.DCacheWritebacks = dcStats.Writebacks
	}

	h.config.Logger.Info("benchmark finished",
		"name", bench.Name, "memory", result.Memory,
		"cycles", result.SimulatedCycles, "cpi", result.CPI)

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== rvsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s (%s)\n", r.Name, r.Memory)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Fetch Stalls:         %d\n", r.FetchStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Data Stalls:          %d\n", r.DataStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Backing Reads:        %d\n", r.BackingReads)
		_, _ = fmt.Fprintf(h.config.Output, "  Backing Writes:       %d\n", r.BackingWrites)

		if r.ICacheHits > 0 || r.ICacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- I-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.ICacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.ICacheMisses)
		}

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:       %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses:     %d\n", r.DCacheMisses)
			_, _ = fmt.Fprintf(h.config.Output, "  Writebacks: %d\n", r.DCacheWritebacks)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,memory,cycles,instructions,cpi,fetch_stalls,data_stalls,icache_hits,icache_misses,dcache_hits,dcache_misses,dcache_writebacks,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Memory,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.FetchStalls,
			r.DataStalls,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.DCacheWritebacks,
			r.ExitCode,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Memory is "cached" or "uncached"
	Memory string `json:"memory"`

	// Timing is the configuration used
	Timing *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Failed is the number of runs with an error
	Failed int `json:"failed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Report aggregates results into a report.
func (h *Harness) Report(results []BenchmarkResult) BenchmarkReport {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	failed := 0
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
		if r.Error != "" {
			failed++
		}
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	return BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Memory:    h.memoryName(),
			Timing:    h.config.Timing,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			Failed:            failed,
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(h.Report(results))
}
