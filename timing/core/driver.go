package core

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Driver runs a Core as an akita ticking component, one core cycle per
// tick of its frequency.
type Driver struct {
	*sim.TickingComponent

	engine    sim.Engine
	core      *Core
	maxCycles uint64
}

// NewDriver creates a driver ticking core on engine. A maxCycles of 0 means
// no limit.
func NewDriver(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	core *Core,
	maxCycles uint64,
) *Driver {
	d := &Driver{
		engine:    engine,
		core:      core,
		maxCycles: maxCycles,
	}
	d.TickingComponent = sim.NewTickingComponent(name, engine, freq, d)

	return d
}

// Core returns the driven core.
func (d *Driver) Core() *Core {
	return d.core
}

// Tick advances the core by one cycle. It stops making progress once the
// core halts or reaches the cycle limit, which drains the engine.
func (d *Driver) Tick() bool {
	if d.core.Halted() {
		return false
	}
	if d.maxCycles > 0 && d.core.Stats().Cycles >= d.maxCycles {
		return false
	}

	d.core.Tick()
	return true
}

// Run schedules the first tick and runs the engine until the core stops.
func (d *Driver) Run() (int, error) {
	d.TickLater()

	if err := d.engine.Run(); err != nil {
		return -1, err
	}

	if !d.core.Halted() {
		return -1, ErrCycleLimit
	}

	return d.core.ExitCode(), nil
}
