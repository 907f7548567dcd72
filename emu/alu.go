package emu

import "github.com/sarchlab/rvsim/insts"

// ALU evaluates the RV32I integer operations. Each AluFunc maps to a pure
// function of two 32-bit operands.
type ALU struct {
	funcs [insts.NumAluFuncs]func(a, b uint32) uint32
}

// NewALU creates an ALU with every operation populated.
func NewALU() *ALU {
	return &ALU{
		funcs: [insts.NumAluFuncs]func(a, b uint32) uint32{
			insts.AluAdd:  func(a, b uint32) uint32 { return a + b },
			insts.AluSub:  func(a, b uint32) uint32 { return a - b },
			insts.AluSll:  func(a, b uint32) uint32 { return a << (b & 0x1F) },
			insts.AluSrl:  func(a, b uint32) uint32 { return a >> (b & 0x1F) },
			insts.AluSra:  func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 0x1F)) },
			insts.AluSlt:  func(a, b uint32) uint32 { return boolToWord(int32(a) < int32(b)) },
			insts.AluSltu: func(a, b uint32) uint32 { return boolToWord(a < b) },
			insts.AluXor:  func(a, b uint32) uint32 { return a ^ b },
			insts.AluAnd:  func(a, b uint32) uint32 { return a & b },
			insts.AluOr:   func(a, b uint32) uint32 { return a | b },
		},
	}
}

// Eval applies fn to a and b. An out-of-range fn evaluates to 0.
func (u *ALU) Eval(fn insts.AluFunc, a, b uint32) uint32 {
	if fn >= insts.NumAluFuncs {
		return 0
	}
	return u.funcs[fn](a, b)
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
