package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Emulator", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator(emu.WithStorage(emu.NewStorage(64 * 1024)))
	})

	It("should set the PC to the entry point", func() {
		e.LoadProgram(0x1000, insts.BuildProgram(insts.EncodeADDI(1, 0, 1)))
		Expect(e.PC()).To(Equal(uint32(0x1000)))
	})

	It("should exit with the code written to tohost", func() {
		e.LoadProgram(0x1000, insts.BuildProgram(
			insts.EncodeADDI(10, 0, 7<<1|1),
			insts.EncodeExit(10),
		))

		code, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(7))
		Expect(e.InstructionCount()).To(Equal(uint64(2)))
	})

	It("should run a loop summing 1..10", func() {
		e.LoadProgram(0x1000, insts.BuildProgram(
			insts.EncodeADDI(5, 0, 10), // t0 = 10
			insts.EncodeADDI(6, 0, 0),  // t1 = 0
			insts.EncodeADD(6, 6, 5),   // loop: t1 += t0
			insts.EncodeADDI(5, 5, -1), // t0--
			insts.EncodeBNE(5, 0, -8),  // bne t0, zero, loop
			insts.EncodeADDI(10, 0, 1),
			insts.EncodeExit(10),
		))

		code, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(BeZero())
		Expect(e.RegFile().ReadReg(6)).To(Equal(uint32(55)))
	})

	It("should store and load through storage", func() {
		e.LoadProgram(0x1000, insts.BuildProgram(
			insts.EncodeLUI(2, 0x8),    // sp = 0x8000
			insts.EncodeADDI(5, 0, 99), // t0 = 99
			insts.EncodeSW(5, 2, 4),    // sw t0, 4(sp)
			insts.EncodeLW(6, 2, 4),    // lw t1, 4(sp)
			insts.EncodeADDI(10, 0, 1),
			insts.EncodeExit(10),
		))

		_, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(e.Storage().Read(0x8004)).To(Equal(uint32(99)))
		Expect(e.RegFile().ReadReg(6)).To(Equal(uint32(99)))
	})

	It("should call and return", func() {
		e.LoadProgram(0x1000, insts.BuildProgram(
			insts.EncodeJAL(1, 12),        // call f
			insts.EncodeADDI(10, 10, 1),   // a0 = 7
			insts.EncodeExit(10),          // exit 3
			insts.EncodeADDI(10, 0, 3<<1), // f: a0 = 6
			insts.EncodeJALR(0, 1, 0),     // ret
		))

		code, err := e.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(3))
	})

	It("should report unsupported instructions", func() {
		e.LoadProgram(0x1000, insts.BuildProgram(0x00000073))

		_, err := e.Run()

		Expect(err).To(MatchError(ContainSubstring("unsupported instruction")))
	})

	It("should stop at the instruction limit", func() {
		e = emu.NewEmulator(
			emu.WithStorage(emu.NewStorage(64*1024)),
			emu.WithMaxInstructions(3),
		)
		e.LoadProgram(0x1000, insts.BuildProgram(insts.EncodeJAL(0, 0)))

		_, err := e.Run()

		Expect(err).To(MatchError(ContainSubstring("max instructions")))
		Expect(e.InstructionCount()).To(Equal(uint64(3)))
	})

	It("should clear registers on reset but keep storage", func() {
		e.LoadProgram(0x1000, insts.BuildProgram(insts.EncodeADDI(1, 0, 5)))
		e.Step()

		e.Reset(0x1000)

		Expect(e.RegFile().ReadReg(1)).To(BeZero())
		Expect(e.InstructionCount()).To(BeZero())
		Expect(e.Storage().Read(0x1000)).To(Equal(insts.EncodeADDI(1, 0, 5)))
	})
})
