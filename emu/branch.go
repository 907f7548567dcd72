package emu

import "github.com/sarchlab/rvsim/insts"

// BranchUnit evaluates branch conditions. Each BrFunc maps to a pure
// predicate over two 32-bit operands.
type BranchUnit struct {
	conds [insts.NumBrFuncs]func(a, b uint32) bool
}

// NewBranchUnit creates a BranchUnit with every condition populated.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{
		conds: [insts.NumBrFuncs]func(a, b uint32) bool{
			insts.BrEq:  func(a, b uint32) bool { return a == b },
			insts.BrNeq: func(a, b uint32) bool { return a != b },
			insts.BrLt:  func(a, b uint32) bool { return int32(a) < int32(b) },
			insts.BrGe:  func(a, b uint32) bool { return int32(a) >= int32(b) },
			insts.BrLtu: func(a, b uint32) bool { return a < b },
			insts.BrGeu: func(a, b uint32) bool { return a >= b },
			insts.BrAT:  func(a, b uint32) bool { return true },
			insts.BrNT:  func(a, b uint32) bool { return false },
		},
	}
}

// Taken reports whether the branch selected by fn is taken.
func (u *BranchUnit) Taken(fn insts.BrFunc, a, b uint32) bool {
	if fn >= insts.NumBrFuncs {
		return false
	}
	return u.conds[fn](a, b)
}
