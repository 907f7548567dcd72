package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/latency"
	"github.com/sarchlab/rvsim/timing/mem"
	"github.com/sarchlab/rvsim/trace"
)

type runOptions struct {
	uncached   bool
	functional bool
	tracePath  string
	maxCycles  uint64
	profile    profiler
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <program.elf>",
		Short: "Run an RV32I ELF program and report its timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.uncached, "uncached", false,
		"use the uncached port instead of the caches")
	cmd.Flags().BoolVar(&opts.functional, "functional", false,
		"run the functional emulator without timing")
	cmd.Flags().StringVar(&opts.tracePath, "trace", "",
		"record cache accesses into this SQLite file")
	cmd.Flags().Uint64Var(&opts.maxCycles, "max-cycles", 0,
		"stop after this many cycles (0 means no limit)")
	cmd.Flags().StringVar(&opts.profile.cpuPath, "cpuprofile", "",
		"write a CPU profile of the simulation to this file")
	cmd.Flags().StringVar(&opts.profile.memPath, "memprofile", "",
		"write a heap profile after the simulation to this file")

	return cmd
}

func runProgram(
	cmd *cobra.Command,
	global *globalOptions,
	opts *runOptions,
	path string,
) error {
	logger := global.logger(cmd)
	out := cmd.OutOrStdout()

	cfg, err := global.timingConfig()
	if err != nil {
		return err
	}

	prog, err := loader.Load(path)
	if err != nil {
		return err
	}

	storage := emu.NewStorage(cfg.MemoryWords)
	if err := storage.LoadProgram(prog); err != nil {
		return err
	}

	logger.Info("program loaded",
		"path", path, "entry", fmt.Sprintf("0x%X", prog.Entry),
		"segments", len(prog.Segments))

	if err := opts.profile.begin(); err != nil {
		return err
	}

	var (
		code    int
		retired uint64
	)
	if opts.functional {
		code, retired, err = runFunctional(out, storage, uint32(prog.Entry))
	} else {
		code, retired, err = runTiming(out, logger, cfg, opts, storage, uint32(prog.Entry))
	}
	if perr := opts.profile.end(out, retired); err == nil {
		err = perr
	}
	if err != nil {
		return err
	}

	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func runFunctional(out io.Writer, storage *emu.Storage, entry uint32) (int, uint64, error) {
	e := emu.NewEmulator(emu.WithStorage(storage))
	e.Reset(entry)

	code, err := e.Run()
	if err != nil {
		return -1, e.InstructionCount(), err
	}

	fmt.Fprintf(out, "Exit code: %d\n", code)
	fmt.Fprintf(out, "Instructions executed: %d\n", e.InstructionCount())

	return code, e.InstructionCount(), nil
}

func runTiming(
	out io.Writer,
	logger *slog.Logger,
	cfg *latency.TimingConfig,
	opts *runOptions,
	storage *emu.Storage,
	entry uint32,
) (code int, retired uint64, err error) {
	memory := cfg.NewMemory(storage, opts.uncached, cache.WithLogger(logger))

	var recorder *trace.AccessRecorder
	if opts.tracePath != "" {
		engine, ok := memory.(*cache.Engine)
		if !ok {
			return -1, 0, errors.New("--trace needs the cache engine; drop --uncached")
		}

		recorder, err = trace.NewAccessRecorder(opts.tracePath)
		if err != nil {
			return -1, 0, err
		}
		defer func() {
			if closeTrace(recorder, &err) {
				code = -1
			}
		}()
		engine.AcceptHook(recorder)
	}

	c := core.NewCore(memory)
	c.SetPC(entry)

	driver := core.NewDriver("Core", sim.NewSerialEngine(), cfg.Freq(), c, opts.maxCycles)
	code, err = driver.Run()
	retired = c.Stats().Instructions
	if err != nil {
		return -1, retired, err
	}

	printStats(out, c, memory)

	if recorder != nil {
		sums, serr := recorder.Summaries()
		if serr != nil {
			return -1, retired, serr
		}
		fmt.Fprintf(out, "Trace: %s (run %s)\n", recorder.Path(), recorder.RunID())
		for _, s := range sums {
			fmt.Fprintf(out, "  %s: %d accesses, %d hits, %d evictions\n",
				s.Cache, s.Accesses, s.Hits, s.Evictions)
		}
	}

	return code, retired, nil
}

// closeTrace closes the trace and keeps its error in *err unless an earlier
// error is already there. It reports whether *err was set by the close.
func closeTrace(c io.Closer, err *error) bool {
	cerr := c.Close()
	if cerr == nil || *err != nil {
		return false
	}
	*err = fmt.Errorf("closing trace: %w", cerr)
	return true
}

func printStats(out io.Writer, c *core.Core, memory mem.Memory) {
	stats := c.Stats()

	fmt.Fprintf(out, "Exit code: %d\n", c.ExitCode())
	fmt.Fprintf(out, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(out, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(out, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(out, "  Fetch stalls: %d\n", stats.FetchStalls)
	fmt.Fprintf(out, "  Data stalls:  %d\n", stats.DataStalls)

	engine, ok := memory.(*cache.Engine)
	if !ok {
		return
	}

	for _, lc := range []*cache.LineCache{engine.CodeCache(), engine.DataCache()} {
		s := lc.Stats()
		fmt.Fprintf(out, "%s: %d hits, %d misses (%.1f%% hit rate), %d evictions, %d write-backs\n",
			lc.Name(), s.Hits, s.Misses, 100*s.HitRate(), s.Evictions, s.Writebacks)
	}
}
