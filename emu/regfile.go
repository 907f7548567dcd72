package emu

import "github.com/sarchlab/rvsim/insts"

// RegFile represents the RV32I integer register file.
// X[0] is hardwired to zero.
type RegFile struct {
	X [32]uint32
}

// ReadReg reads a register value. Register 0 and out-of-range registers
// (e.g. the NoReg sentinel) read as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a register value. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// Read fills the source operand values of inst.
func (r *RegFile) Read(inst *insts.Instruction) {
	if inst.HasSrc1() {
		inst.Src1Val = r.ReadReg(inst.Src1)
	}
	if inst.HasSrc2() {
		inst.Src2Val = r.ReadReg(inst.Src2)
	}
}

// Write commits inst.Data to the destination register, if any.
func (r *RegFile) Write(inst *insts.Instruction) {
	if inst.HasDst() {
		r.WriteReg(inst.Dst, inst.Data)
	}
}
