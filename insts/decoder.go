// Package insts provides RV32I instruction definitions and decoding.
package insts

// Major opcodes (bits [6:0]).
const (
	opLoad   = 0b0000011
	opOpImm  = 0b0010011
	opAuipc  = 0b0010111
	opStore  = 0b0100011
	opOp     = 0b0110011
	opLui    = 0b0110111
	opBranch = 0b1100011
	opJalr   = 0b1100111
	opJal    = 0b1101111
	opSystem = 0b1110011
)

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word. Unknown encodings come
// back with Type Unsupported.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Type: Unsupported,
		Src1: NoReg,
		Src2: NoReg,
		Dst:  NoReg,
	}

	rd := uint8((word >> 7) & 0x1F)
	rs1 := uint8((word >> 15) & 0x1F)
	rs2 := uint8((word >> 20) & 0x1F)
	funct3 := (word >> 12) & 0x7
	funct7 := word >> 25

	switch word & 0x7F {
	case opLui:
		// lui rd, imm == addi rd, x0, imm<<12
		inst.Type = Alu
		inst.AluFunc = AluAdd
		inst.Src1 = 0
		inst.Dst = rd
		inst.setImm(immU(word))
	case opAuipc:
		inst.Type = Auipc
		inst.Dst = rd
		inst.setImm(immU(word))
	case opJal:
		inst.Type = J
		inst.BrFunc = BrAT
		inst.Dst = rd
		inst.setImm(immJ(word))
	case opJalr:
		if funct3 != 0 {
			break
		}
		inst.Type = Jr
		inst.BrFunc = BrAT
		inst.Src1 = rs1
		inst.Dst = rd
		inst.setImm(immI(word))
	case opBranch:
		d.decodeBranch(word, funct3, rs1, rs2, inst)
	case opLoad:
		if funct3 != 0b010 { // lw only
			break
		}
		inst.Type = Ld
		inst.AluFunc = AluAdd
		inst.Src1 = rs1
		inst.Dst = rd
		inst.setImm(immI(word))
	case opStore:
		if funct3 != 0b010 { // sw only
			break
		}
		inst.Type = St
		inst.AluFunc = AluAdd
		inst.Src1 = rs1
		inst.Src2 = rs2
		inst.setImm(immS(word))
	case opOpImm:
		d.decodeOpImm(word, funct3, rs1, rd, inst)
	case opOp:
		d.decodeOp(funct3, funct7, rs1, rs2, rd, inst)
	case opSystem:
		d.decodeSystem(word, funct3, rs1, rd, inst)
	}

	return inst
}

func (d *Decoder) decodeBranch(word, funct3 uint32, rs1, rs2 uint8, inst *Instruction) {
	var fn BrFunc
	switch funct3 {
	case 0b000:
		fn = BrEq
	case 0b001:
		fn = BrNeq
	case 0b100:
		fn = BrLt
	case 0b101:
		fn = BrGe
	case 0b110:
		fn = BrLtu
	case 0b111:
		fn = BrGeu
	default:
		return
	}

	inst.Type = Br
	inst.BrFunc = fn
	inst.Src1 = rs1
	inst.Src2 = rs2
	inst.setImm(immB(word))
}

func (d *Decoder) decodeOpImm(word, funct3 uint32, rs1, rd uint8, inst *Instruction) {
	imm := immI(word)

	var fn AluFunc
	switch funct3 {
	case 0b000:
		fn = AluAdd
	case 0b010:
		fn = AluSlt
	case 0b011:
		fn = AluSltu
	case 0b100:
		fn = AluXor
	case 0b110:
		fn = AluOr
	case 0b111:
		fn = AluAnd
	case 0b001:
		if word>>25 != 0 {
			return
		}
		fn = AluSll
		imm &= 0x1F
	case 0b101:
		switch word >> 25 {
		case 0b0000000:
			fn = AluSrl
		case 0b0100000:
			fn = AluSra
		default:
			return
		}
		imm &= 0x1F
	}

	inst.Type = Alu
	inst.AluFunc = fn
	inst.Src1 = rs1
	inst.Dst = rd
	inst.setImm(imm)
}

func (d *Decoder) decodeOp(funct3, funct7 uint32, rs1, rs2, rd uint8, inst *Instruction) {
	var fn AluFunc
	switch {
	case funct7 == 0 && funct3 == 0b000:
		fn = AluAdd
	case funct7 == 0b0100000 && funct3 == 0b000:
		fn = AluSub
	case funct7 == 0 && funct3 == 0b001:
		fn = AluSll
	case funct7 == 0 && funct3 == 0b010:
		fn = AluSlt
	case funct7 == 0 && funct3 == 0b011:
		fn = AluSltu
	case funct7 == 0 && funct3 == 0b100:
		fn = AluXor
	case funct7 == 0 && funct3 == 0b101:
		fn = AluSrl
	case funct7 == 0b0100000 && funct3 == 0b101:
		fn = AluSra
	case funct7 == 0 && funct3 == 0b110:
		fn = AluOr
	case funct7 == 0 && funct3 == 0b111:
		fn = AluAnd
	default:
		return
	}

	inst.Type = Alu
	inst.AluFunc = fn
	inst.Src1 = rs1
	inst.Src2 = rs2
	inst.Dst = rd
}

func (d *Decoder) decodeSystem(word, funct3 uint32, rs1, rd uint8, inst *Instruction) {
	csr := uint16(word >> 20)

	switch funct3 {
	case 0b001: // csrrw
		inst.Type = Csrw
		inst.Src1 = rs1
	case 0b010: // csrrs
		inst.Type = Csrr
		inst.Dst = rd
	default:
		return
	}

	inst.Csr = csr
	inst.HasCsr = true
}

func (i *Instruction) setImm(imm uint32) {
	i.Imm = imm
	i.HasImm = true
}

func signExtend(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

func immI(word uint32) uint32 {
	return uint32(int32(word) >> 20)
}

func immS(word uint32) uint32 {
	v := (word>>25)<<5 | (word>>7)&0x1F
	return signExtend(v, 12)
}

func immB(word uint32) uint32 {
	v := (word>>31&1)<<12 |
		(word>>7&1)<<11 |
		(word>>25&0x3F)<<5 |
		(word>>8&0xF)<<1
	return signExtend(v, 13)
}

func immU(word uint32) uint32 {
	return word & 0xFFFFF000
}

func immJ(word uint32) uint32 {
	v := (word>>31&1)<<20 |
		(word>>12&0xFF)<<12 |
		(word>>20&1)<<11 |
		(word>>21&0x3FF)<<1
	return signExtend(v, 21)
}
