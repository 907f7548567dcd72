package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"
)

// profiler wraps a simulation with optional CPU and heap profiles and
// reports simulation speed.
type profiler struct {
	cpuPath string
	memPath string

	cpuFile *os.File
	start   time.Time
}

func (p *profiler) begin() error {
	p.start = time.Now()
	if p.cpuPath == "" {
		return nil
	}

	f, err := os.Create(p.cpuPath)
	if err != nil {
		return fmt.Errorf("create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("start CPU profile: %w", err)
	}
	p.cpuFile = f

	return nil
}

// end stops profiling and, when any profile was requested, prints the
// simulation speed for the given instruction count.
func (p *profiler) end(out io.Writer, instructions uint64) error {
	elapsed := time.Since(p.start)

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = p.cpuFile.Close()
		p.cpuFile = nil
	}

	if p.memPath != "" {
		f, err := os.Create(p.memPath)
		if err != nil {
			return fmt.Errorf("create memory profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("write memory profile: %w", err)
		}
	}

	if p.cpuPath == "" && p.memPath == "" {
		return nil
	}

	fmt.Fprintf(out, "Elapsed time: %v\n", elapsed)
	if instructions > 0 && elapsed > 0 {
		fmt.Fprintf(out, "Instructions/second: %.0f\n",
			float64(instructions)/elapsed.Seconds())
	}

	return nil
}
