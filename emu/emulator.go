package emu

import (
	"fmt"

	"github.com/sarchlab/rvsim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program wrote an exit message to tohost.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes RV32I programs functionally, one instruction per step
// and without any timing. It shares the executor with the timing core and
// serves as its reference.
type Emulator struct {
	regFile  *RegFile
	csrFile  *CSRFile
	storage  *Storage
	decoder  *insts.Decoder
	executor *Executor

	pc               uint32
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStorage runs the emulator on an existing storage.
func WithStorage(s *Storage) EmulatorOption {
	return func(e *Emulator) {
		e.storage = s
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new RV32I emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:  &RegFile{},
		csrFile:  NewCSRFile(),
		decoder:  insts.NewDecoder(),
		executor: NewExecutor(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.storage == nil {
		e.storage = NewStorage(DefaultStorageWords)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Storage returns the emulator's backing storage.
func (e *Emulator) Storage() *Storage {
	return e.storage
}

// PC returns the current instruction pointer.
func (e *Emulator) PC() uint32 {
	return e.pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram copies raw program bytes to entry and starts execution there.
func (e *Emulator) LoadProgram(entry uint32, program []byte) {
	e.storage.LoadBytes(entry, program)
	e.pc = entry
}

// LoadImage loads an ELF image and starts execution at its entry point.
func (e *Emulator) LoadImage(data []byte) error {
	entry, err := e.storage.LoadImage(data)
	if err != nil {
		return err
	}
	e.pc = entry
	return nil
}

// Reset clears the registers and counters. Storage is kept.
func (e *Emulator) Reset(pc uint32) {
	e.regFile = &RegFile{}
	e.csrFile.Reset()
	e.pc = pc
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("max instructions reached"),
		}
	}

	inst := e.decoder.Decode(e.storage.Read(e.pc))
	if inst.Type == insts.Unsupported {
		return StepResult{
			Err: fmt.Errorf("unsupported instruction 0x%08X at PC=0x%X",
				e.storage.Read(e.pc), e.pc),
		}
	}

	e.regFile.Read(inst)
	e.csrFile.Read(inst)
	e.executor.Execute(inst, e.pc)

	switch inst.Type {
	case insts.Ld:
		inst.Data = e.storage.Read(inst.Addr)
	case insts.St:
		e.storage.Write(inst.Addr, inst.Data)
	}

	e.regFile.Write(inst)
	e.csrFile.Write(inst)
	e.csrFile.Clock()
	e.csrFile.InstructionRetired()
	e.pc = inst.NextIP
	e.instructionCount++

	if msg, ok := e.csrFile.Message(); ok && msg.IsExit() {
		return StepResult{Exited: true, ExitCode: msg.ExitCode()}
	}

	return StepResult{}
}

// Run executes instructions until the program exits or an error occurs.
func (e *Emulator) Run() (int, error) {
	for {
		result := e.Step()
		if result.Err != nil {
			return -1, result.Err
		}
		if result.Exited {
			return result.ExitCode, nil
		}
	}
}
