package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("ALU", func() {
	alu := emu.NewALU()

	DescribeTable("operations",
		func(fn insts.AluFunc, a, b, want uint32) {
			Expect(alu.Eval(fn, a, b)).To(Equal(want))
		},
		Entry("add", insts.AluAdd, uint32(3), uint32(4), uint32(7)),
		Entry("add wraps", insts.AluAdd, uint32(0xFFFFFFFF), uint32(1), uint32(0)),
		Entry("sub", insts.AluSub, uint32(3), uint32(4), uint32(0xFFFFFFFF)),
		Entry("sll", insts.AluSll, uint32(1), uint32(4), uint32(16)),
		Entry("sll masks the amount", insts.AluSll, uint32(1), uint32(33), uint32(2)),
		Entry("srl", insts.AluSrl, uint32(0x80000000), uint32(31), uint32(1)),
		Entry("sra", insts.AluSra, uint32(0x80000000), uint32(31), uint32(0xFFFFFFFF)),
		Entry("slt signed", insts.AluSlt, uint32(0xFFFFFFFF), uint32(0), uint32(1)),
		Entry("sltu unsigned", insts.AluSltu, uint32(0xFFFFFFFF), uint32(0), uint32(0)),
		Entry("xor", insts.AluXor, uint32(0b1100), uint32(0b1010), uint32(0b0110)),
		Entry("and", insts.AluAnd, uint32(0b1100), uint32(0b1010), uint32(0b1000)),
		Entry("or", insts.AluOr, uint32(0b1100), uint32(0b1010), uint32(0b1110)),
	)

	It("should evaluate unknown operations to zero", func() {
		Expect(alu.Eval(insts.NumAluFuncs, 1, 2)).To(BeZero())
	})
})

var _ = Describe("BranchUnit", func() {
	branch := emu.NewBranchUnit()

	DescribeTable("conditions",
		func(fn insts.BrFunc, a, b uint32, want bool) {
			Expect(branch.Taken(fn, a, b)).To(Equal(want))
		},
		Entry("eq", insts.BrEq, uint32(5), uint32(5), true),
		Entry("neq", insts.BrNeq, uint32(5), uint32(5), false),
		Entry("lt signed", insts.BrLt, uint32(0xFFFFFFFF), uint32(1), true),
		Entry("ltu unsigned", insts.BrLtu, uint32(0xFFFFFFFF), uint32(1), false),
		Entry("ge signed", insts.BrGe, uint32(1), uint32(0xFFFFFFFF), true),
		Entry("geu unsigned", insts.BrGeu, uint32(1), uint32(0xFFFFFFFF), false),
		Entry("always", insts.BrAT, uint32(0), uint32(1), true),
		Entry("never", insts.BrNT, uint32(0), uint32(0), false),
	)
})

var _ = Describe("Executor", func() {
	var (
		executor *emu.Executor
		decoder  *insts.Decoder
	)

	const ip = uint32(0x1000)

	BeforeEach(func() {
		executor = emu.NewExecutor()
		decoder = insts.NewDecoder()
	})

	decode := func(word, src1, src2 uint32) *insts.Instruction {
		inst := decoder.Decode(word)
		inst.Src1Val = src1
		inst.Src2Val = src2
		return inst
	}

	It("should compute register ALU results", func() {
		inst := decode(insts.EncodeSUB(1, 2, 3), 10, 4)

		executor.Execute(inst, ip)

		Expect(inst.Data).To(Equal(uint32(6)))
		Expect(inst.NextIP).To(Equal(ip + 4))
	})

	It("should prefer the immediate as second operand", func() {
		inst := decode(insts.EncodeADDI(1, 2, -5), 10, 999)

		executor.Execute(inst, ip)

		Expect(inst.Data).To(Equal(uint32(5)))
	})

	It("should compute lui through the add table", func() {
		inst := decode(insts.EncodeLUI(1, 0x12345), 0, 0)

		executor.Execute(inst, ip)

		Expect(inst.Data).To(Equal(uint32(0x12345000)))
	})

	It("should yield zero for an ALU record without operands", func() {
		inst := &insts.Instruction{
			Type: insts.Alu, AluFunc: insts.AluAdd,
			Src1: insts.NoReg, Src2: insts.NoReg, Dst: 1,
			Src1Val: 5,
		}

		executor.Execute(inst, ip)

		Expect(inst.Data).To(BeZero())
	})

	It("should compute load addresses", func() {
		inst := decode(insts.EncodeLW(1, 2, -4), 0x2000, 0)

		executor.Execute(inst, ip)

		Expect(inst.Addr).To(Equal(uint32(0x1FFC)))
		Expect(inst.NextIP).To(Equal(ip + 4))
	})

	It("should compute store address and data", func() {
		inst := decode(insts.EncodeSW(3, 2, 8), 0x2000, 0xCAFE)

		executor.Execute(inst, ip)

		Expect(inst.Addr).To(Equal(uint32(0x2008)))
		Expect(inst.Data).To(Equal(uint32(0xCAFE)))
	})

	It("should pass CSR values through", func() {
		w := decode(insts.EncodeCSRRW(0, insts.CSRToHost, 10), 0x55, 0)
		executor.Execute(w, ip)
		Expect(w.Data).To(Equal(uint32(0x55)))

		r := decode(insts.EncodeCSRRS(10, insts.CSRCycle, 0), 0, 0)
		r.CsrVal = 1234
		executor.Execute(r, ip)
		Expect(r.Data).To(Equal(uint32(1234)))
	})

	It("should link and jump for jal", func() {
		inst := decode(insts.EncodeJAL(1, -16), 0, 0)

		executor.Execute(inst, ip)

		Expect(inst.Data).To(Equal(ip + 4))
		Expect(inst.NextIP).To(Equal(ip - 16))
	})

	It("should link and jump for jalr", func() {
		inst := decode(insts.EncodeJALR(1, 5, 12), 0x3000, 0)

		executor.Execute(inst, ip)

		Expect(inst.Data).To(Equal(ip + 4))
		Expect(inst.NextIP).To(Equal(uint32(0x300C)))
	})

	It("should take a branch when the condition holds", func() {
		inst := decode(insts.EncodeBNE(1, 2, 32), 1, 2)

		executor.Execute(inst, ip)

		Expect(inst.NextIP).To(Equal(ip + 32))
	})

	It("should fall through when the condition fails", func() {
		inst := decode(insts.EncodeBEQ(1, 2, 32), 1, 2)

		executor.Execute(inst, ip)

		Expect(inst.NextIP).To(Equal(ip + 4))
	})

	It("should add the immediate to the pc for auipc", func() {
		inst := decode(insts.EncodeAUIPC(1, 2), 0, 0)

		executor.Execute(inst, ip)

		Expect(inst.Data).To(Equal(ip + 0x2000))
		Expect(inst.NextIP).To(Equal(ip + 4))
	})

	It("should step over unsupported instructions", func() {
		inst := decode(0xFFFFFFFF, 0, 0)

		executor.Execute(inst, ip)

		Expect(inst.NextIP).To(Equal(ip + 4))
		Expect(inst.Data).To(BeZero())
		Expect(inst.Addr).To(BeZero())
	})
})
