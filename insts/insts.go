// Package insts provides RV32I instruction definitions and decoding.
//
// This package decodes RISC-V machine code into a structured instruction
// record that is carried through the simulated CPU. It supports:
//   - Integer register/immediate ALU operations (OP, OP-IMM, LUI)
//   - Word loads and stores (LW, SW)
//   - Branches and jumps (BEQ..BGEU, JAL, JALR), AUIPC
//   - CSR read and write (CSRRS, CSRRW)
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x02a00513) // addi a0, zero, 42
//	fmt.Printf("Type: %v, Dst: %d, Imm: %d\n", inst.Type, inst.Dst, inst.Imm)
package insts

// IType is the kind of a decoded instruction.
type IType uint8

// Instruction kinds.
const (
	Unsupported IType = iota
	Alu
	Ld
	St
	Csrr
	Csrw
	J
	Jr
	Br
	Auipc
)

var itypeNames = [...]string{
	Unsupported: "Unsupported",
	Alu:         "Alu",
	Ld:          "Ld",
	St:          "St",
	Csrr:        "Csrr",
	Csrw:        "Csrw",
	J:           "J",
	Jr:          "Jr",
	Br:          "Br",
	Auipc:       "Auipc",
}

func (t IType) String() string {
	if int(t) < len(itypeNames) {
		return itypeNames[t]
	}
	return "IType(?)"
}

// IsMemory returns true for loads and stores.
func (t IType) IsMemory() bool {
	return t == Ld || t == St
}

// AluFunc selects the ALU operation.
type AluFunc uint8

// ALU operations.
const (
	AluAdd AluFunc = iota
	AluSll
	AluSlt
	AluSltu
	AluXor
	AluAnd
	AluOr
	AluSub
	AluSra
	AluSrl

	// NumAluFuncs is the number of ALU operations.
	NumAluFuncs
)

// BrFunc selects the branch comparison.
type BrFunc uint8

// Branch comparisons.
const (
	BrEq BrFunc = iota
	BrNeq
	BrLt
	BrLtu
	BrGe
	BrGeu
	BrAT // always taken
	BrNT // never taken

	// NumBrFuncs is the number of branch comparisons.
	NumBrFuncs
)

// NoReg marks an absent register operand.
const NoReg uint8 = 0xFF

// CSR addresses known to the CSR file.
const (
	CSRToHost   uint16 = 0x780
	CSRMCycle   uint16 = 0xB00
	CSRMInstret uint16 = 0xB02
	CSRCycle    uint16 = 0xC00
	CSRTime     uint16 = 0xC01
	CSRInstret  uint16 = 0xC02
	CSRCycleH   uint16 = 0xC80
	CSRTimeH    uint16 = 0xC81
	CSRInstretH uint16 = 0xC82
	CSRMHartID  uint16 = 0xF14
)

// Instruction is a decoded RV32I instruction together with the values the
// CPU fills in while it moves through the phases.
type Instruction struct {
	Type    IType
	AluFunc AluFunc
	BrFunc  BrFunc

	// Register operands; NoReg when absent.
	Src1 uint8
	Src2 uint8
	Dst  uint8

	// Sign-extended immediate.
	Imm    uint32
	HasImm bool

	Csr    uint16
	HasCsr bool

	// Operand values, filled by the register and CSR files.
	Src1Val uint32
	Src2Val uint32
	CsrVal  uint32

	// Results, filled by the executor and the memory stage.
	Addr   uint32
	Data   uint32
	NextIP uint32
}

// HasSrc1 reports whether the first source register is present.
func (i *Instruction) HasSrc1() bool { return i.Src1 != NoReg }

// HasSrc2 reports whether the second source register is present.
func (i *Instruction) HasSrc2() bool { return i.Src2 != NoReg }

// HasDst reports whether the destination register is present.
func (i *Instruction) HasDst() bool { return i.Dst != NoReg }
