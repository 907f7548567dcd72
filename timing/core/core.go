// Package core provides the cycle-level CPU core model.
// It wraps the three-phase CPU controller and its memory model behind a
// simple run interface.
package core

import (
	"errors"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/mem"
)

// ErrCycleLimit is returned when a run reaches its cycle limit before the
// program exits.
var ErrCycleLimit = errors.New("cycle limit reached")

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// FetchStalls is the number of cycles spent waiting for fetches.
	FetchStalls uint64
	// DataStalls is the number of cycles spent waiting for data accesses.
	DataStalls uint64
}

// CPI returns cycles per retired instruction, or 0 before any retires.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core represents a cycle-level CPU core in front of a memory model.
type Core struct {
	// CPU is the underlying phase controller.
	CPU *CPU

	memory  mem.Memory
	regFile *emu.RegFile

	cycles   uint64
	halted   bool
	exitCode int
}

// NewCore creates a new Core driving memory. The core owns an emu.RegFile
// unless opts replace it.
func NewCore(memory mem.Memory, opts ...CPUOption) *Core {
	regFile := &emu.RegFile{}
	opts = append([]CPUOption{WithRegisterFile(regFile)}, opts...)

	return &Core{
		CPU:     NewCPU(memory, opts...),
		memory:  memory,
		regFile: regFile,
	}
}

// RegFile returns the register file the core was created with.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the memory model.
func (c *Core) Memory() mem.Memory {
	return c.memory
}

// SetPC restarts execution at pc.
func (c *Core) SetPC(pc uint32) {
	c.CPU.Reset(pc)
	c.halted = false
	c.exitCode = 0
}

// Tick executes one clock edge: the CPU steps first, then memory latency
// advances.
func (c *Core) Tick() {
	if c.halted {
		return
	}

	c.CPU.Clock()
	c.memory.Clock()
	c.cycles++

	if msg, ok := c.CPU.Message(); ok && msg.IsExit() {
		c.halted = true
		c.exitCode = msg.ExitCode()
	}
}

// Halted returns true once the program has written an exit message.
func (c *Core) Halted() bool {
	return c.halted
}

// ExitCode returns the exit code if the core has halted.
func (c *Core) ExitCode() int {
	return c.exitCode
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return Stats{
		Cycles:       c.cycles,
		Instructions: c.CPU.Retired(),
		FetchStalls:  c.CPU.FetchStalls(),
		DataStalls:   c.CPU.DataStalls(),
	}
}

// Run executes the core until it halts and returns the exit code. A
// maxCycles of 0 means no limit.
func (c *Core) Run(maxCycles uint64) (int, error) {
	for !c.halted {
		if maxCycles > 0 && c.cycles >= maxCycles {
			return -1, ErrCycleLimit
		}
		c.Tick()
	}
	return c.exitCode, nil
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.halted; i++ {
		c.Tick()
	}
	return !c.halted
}
