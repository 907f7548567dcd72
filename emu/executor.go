package emu

import "github.com/sarchlab/rvsim/insts"

// Executor computes the architectural effect of a decoded instruction. It
// fills Data, Addr and NextIP from the operand values already read into the
// instruction; it never touches memory or registers itself.
type Executor struct {
	alu    *ALU
	branch *BranchUnit
}

// NewExecutor creates an Executor.
func NewExecutor() *Executor {
	return &Executor{
		alu:    NewALU(),
		branch: NewBranchUnit(),
	}
}

// Execute evaluates inst located at ip.
func (e *Executor) Execute(inst *insts.Instruction, ip uint32) {
	inst.NextIP = ip + 4

	switch inst.Type {
	case insts.Alu:
		inst.Data = e.aluResult(inst)
	case insts.Auipc:
		inst.Data = ip + inst.Imm
	case insts.Ld:
		inst.Addr = e.aluResult(inst)
	case insts.St:
		inst.Addr = e.aluResult(inst)
		inst.Data = inst.Src2Val
	case insts.Csrr:
		inst.Data = inst.CsrVal
	case insts.Csrw:
		inst.Data = inst.Src1Val
	case insts.J:
		inst.Data = ip + 4
		if e.taken(inst) {
			inst.NextIP = ip + inst.Imm
		}
	case insts.Jr:
		inst.Data = ip + 4
		if e.taken(inst) {
			inst.NextIP = inst.Imm + inst.Src1Val
		}
	case insts.Br:
		if e.taken(inst) {
			inst.NextIP = ip + inst.Imm
		}
	}
}

// aluResult uses the immediate as the second operand when present. An
// instruction without a first operand, or without any second operand,
// evaluates to 0.
func (e *Executor) aluResult(inst *insts.Instruction) uint32 {
	if !inst.HasSrc1() || (!inst.HasImm && !inst.HasSrc2()) {
		return 0
	}

	b := inst.Src2Val
	if inst.HasImm {
		b = inst.Imm
	}
	return e.alu.Eval(inst.AluFunc, inst.Src1Val, b)
}

func (e *Executor) taken(inst *insts.Instruction) bool {
	return e.branch.Taken(inst.BrFunc, inst.Src1Val, inst.Src2Val)
}
