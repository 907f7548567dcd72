package emu

import "github.com/sarchlab/rvsim/insts"

// HostMessage is a value the program wrote to the tohost CSR.
type HostMessage struct {
	Value uint32
}

// IsExit reports whether the message requests program termination.
func (m HostMessage) IsExit() bool {
	return m.Value&1 == 1
}

// ExitCode returns the exit status carried by an exit message. Zero means
// the program passed.
func (m HostMessage) ExitCode() int {
	return int(m.Value >> 1)
}

// CSRFile holds the control and status registers and the cycle and
// instruction counters.
type CSRFile struct {
	regs    map[uint16]uint32
	cycle   uint64
	instret uint64

	message    HostMessage
	hasMessage bool
}

// NewCSRFile creates a CSR file in reset state.
func NewCSRFile() *CSRFile {
	c := &CSRFile{}
	c.Reset()
	return c
}

// Read fills inst.CsrVal from the CSR the instruction names.
func (c *CSRFile) Read(inst *insts.Instruction) {
	if !inst.HasCsr {
		return
	}
	inst.CsrVal = c.Value(inst.Csr)
}

// Write commits a CSR write instruction. Counters are read-only.
func (c *CSRFile) Write(inst *insts.Instruction) {
	if inst.Type != insts.Csrw || !inst.HasCsr {
		return
	}

	switch inst.Csr {
	case insts.CSRToHost:
		c.message = HostMessage{Value: inst.Data}
		c.hasMessage = true
	case insts.CSRCycle, insts.CSRCycleH, insts.CSRTime, insts.CSRTimeH,
		insts.CSRInstret, insts.CSRInstretH, insts.CSRMHartID:
	default:
		c.regs[inst.Csr] = inst.Data
	}
}

// Value returns the current value of a CSR.
func (c *CSRFile) Value(csr uint16) uint32 {
	switch csr {
	case insts.CSRCycle, insts.CSRTime, insts.CSRMCycle:
		return uint32(c.cycle)
	case insts.CSRCycleH, insts.CSRTimeH:
		return uint32(c.cycle >> 32)
	case insts.CSRInstret, insts.CSRMInstret:
		return uint32(c.instret)
	case insts.CSRInstretH:
		return uint32(c.instret >> 32)
	case insts.CSRMHartID:
		return 0
	}
	return c.regs[csr]
}

// Clock advances the cycle counter.
func (c *CSRFile) Clock() {
	c.cycle++
}

// InstructionRetired advances the retired-instruction counter.
func (c *CSRFile) InstructionRetired() {
	c.instret++
}

// Cycles returns the cycle counter.
func (c *CSRFile) Cycles() uint64 { return c.cycle }

// Retired returns the retired-instruction counter.
func (c *CSRFile) Retired() uint64 { return c.instret }

// Reset clears every CSR, the counters and any pending message.
func (c *CSRFile) Reset() {
	c.regs = make(map[uint16]uint32)
	c.cycle = 0
	c.instret = 0
	c.message = HostMessage{}
	c.hasMessage = false
}

// Message returns and clears the pending host message.
func (c *CSRFile) Message() (HostMessage, bool) {
	if !c.hasMessage {
		return HostMessage{}, false
	}
	c.hasMessage = false
	return c.message, true
}
