package core

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/mem"
)

// Phase is the state of the CPU controller.
type Phase uint8

// Controller phases, visited in order.
const (
	PhaseFetch Phase = iota
	PhaseDecodeExecute
	PhaseWriteback
)

func (p Phase) String() string {
	switch p {
	case PhaseFetch:
		return "Fetch"
	case PhaseDecodeExecute:
		return "DecodeExecute"
	case PhaseWriteback:
		return "Writeback"
	}
	return "Phase(?)"
}

// Decoder turns a fetched word into an instruction record.
type Decoder interface {
	Decode(word uint32) *insts.Instruction
}

// RegisterFile supplies source operands and commits results.
type RegisterFile interface {
	Read(inst *insts.Instruction)
	Write(inst *insts.Instruction)
}

// CSRFile holds the control and status registers and the counters.
type CSRFile interface {
	Read(inst *insts.Instruction)
	Write(inst *insts.Instruction)
	Clock()
	InstructionRetired()
	Reset()
	Message() (emu.HostMessage, bool)
}

// CPUOption configures a CPU.
type CPUOption func(*CPU)

// WithDecoder replaces the RV32I decoder.
func WithDecoder(d Decoder) CPUOption {
	return func(c *CPU) {
		c.decoder = d
	}
}

// WithRegisterFile replaces the register file.
func WithRegisterFile(r RegisterFile) CPUOption {
	return func(c *CPU) {
		c.regFile = r
	}
}

// WithCSRFile replaces the CSR file.
func WithCSRFile(f CSRFile) CPUOption {
	return func(c *CPU) {
		c.csrFile = f
	}
}

// CPU is the three-phase controller. Each clock edge attempts exactly one
// phase step; a step whose memory response is not ready stalls and is
// retried on the next edge.
type CPU struct {
	memory   mem.Memory
	decoder  Decoder
	regFile  RegisterFile
	csrFile  CSRFile
	executor *emu.Executor

	ip    uint32
	phase Phase
	inst  *insts.Instruction

	stalled     bool
	retired     uint64
	fetchStalls uint64
	dataStalls  uint64
}

// NewCPU creates a CPU driving memory. Without options it uses the RV32I
// decoder and fresh register and CSR files.
func NewCPU(memory mem.Memory, opts ...CPUOption) *CPU {
	c := &CPU{
		memory:   memory,
		decoder:  insts.NewDecoder(),
		regFile:  &emu.RegFile{},
		csrFile:  emu.NewCSRFile(),
		executor: emu.NewExecutor(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IP returns the instruction pointer.
func (c *CPU) IP() uint32 {
	return c.ip
}

// Phase returns the current phase.
func (c *CPU) Phase() Phase {
	return c.phase
}

// Instruction returns the in-flight instruction, or nil between
// instructions.
func (c *CPU) Instruction() *insts.Instruction {
	return c.inst
}

// Stalled reports whether the last clock edge made no progress.
func (c *CPU) Stalled() bool {
	return c.stalled
}

// Retired returns the number of instructions retired since the last reset.
func (c *CPU) Retired() uint64 {
	return c.retired
}

// FetchStalls returns the edges spent waiting for instruction fetches.
func (c *CPU) FetchStalls() uint64 {
	return c.fetchStalls
}

// DataStalls returns the edges spent waiting for data accesses.
func (c *CPU) DataStalls() uint64 {
	return c.dataStalls
}

// Clock processes one clock edge: it ticks the CSR file, then attempts one
// phase step.
func (c *CPU) Clock() {
	c.csrFile.Clock()

	switch c.phase {
	case PhaseFetch:
		c.stalled = !c.fetch()
	case PhaseDecodeExecute:
		c.stalled = !c.decodeExecute()
		if c.stalled {
			c.fetchStalls++
		}
	case PhaseWriteback:
		c.stalled = !c.writeback()
		if c.stalled {
			c.dataStalls++
		}
	}
}

// fetch drops the previous instruction and requests the next word. It never
// polls in the same edge.
func (c *CPU) fetch() bool {
	c.inst = nil
	c.memory.RequestFetch(c.ip)
	c.phase = PhaseDecodeExecute
	return true
}

func (c *CPU) decodeExecute() bool {
	word, ok := c.memory.PollFetch()
	if !ok {
		return false
	}

	inst := c.decoder.Decode(word)
	c.regFile.Read(inst)
	c.csrFile.Read(inst)
	c.executor.Execute(inst, c.ip)
	c.memory.RequestData(inst.Addr, inst.Type)

	c.inst = inst
	c.phase = PhaseWriteback
	return true
}

func (c *CPU) writeback() bool {
	inst := c.inst
	if !c.memory.PollData(inst.Addr, inst.Type, &inst.Data) {
		return false
	}

	c.regFile.Write(inst)
	c.csrFile.Write(inst)
	c.csrFile.InstructionRetired()
	c.retired++

	c.ip = inst.NextIP
	c.phase = PhaseFetch
	return true
}

// Reset restarts execution at ip. The CSR file is reset and the in-flight
// instruction dropped; memory, and with it any cache contents, is untouched.
func (c *CPU) Reset(ip uint32) {
	c.csrFile.Reset()
	c.ip = ip
	c.phase = PhaseFetch
	c.inst = nil
	c.stalled = false
	c.retired = 0
	c.fetchStalls = 0
	c.dataStalls = 0
}

// Message returns the pending host message, if any.
func (c *CPU) Message() (emu.HostMessage, bool) {
	return c.csrFile.Message()
}
