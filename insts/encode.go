package insts

import "encoding/binary"

// Instruction encoding helpers. Register arguments are x-register numbers;
// immediates are given as signed byte values and truncated to their field.

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 | funct3<<12 | (rd&0x1F)<<7 | opcode
}

func encodeI(imm int32, rs1, funct3, rd, opcode uint32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | (rs1&0x1F)<<15 | funct3<<12 | (rd&0x1F)<<7 | opcode
}

func encodeS(imm int32, rs2, rs1, funct3, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 | funct3<<12 | (u&0x1F)<<7 | opcode
}

func encodeB(offset int32, rs2, rs1, funct3 uint32) uint32 {
	u := uint32(offset)
	return (u>>12&1)<<31 | (u>>5&0x3F)<<25 | (rs2&0x1F)<<20 | (rs1&0x1F)<<15 |
		funct3<<12 | (u>>1&0xF)<<8 | (u>>11&1)<<7 | opBranch
}

// EncodeADD encodes add rd, rs1, rs2.
func EncodeADD(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b000, rd, opOp) }

// EncodeSUB encodes sub rd, rs1, rs2.
func EncodeSUB(rd, rs1, rs2 uint32) uint32 { return encodeR(0b0100000, rs2, rs1, 0b000, rd, opOp) }

// EncodeSLL encodes sll rd, rs1, rs2.
func EncodeSLL(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b001, rd, opOp) }

// EncodeSLT encodes slt rd, rs1, rs2.
func EncodeSLT(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b010, rd, opOp) }

// EncodeSLTU encodes sltu rd, rs1, rs2.
func EncodeSLTU(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b011, rd, opOp) }

// EncodeXOR encodes xor rd, rs1, rs2.
func EncodeXOR(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b100, rd, opOp) }

// EncodeSRL encodes srl rd, rs1, rs2.
func EncodeSRL(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b101, rd, opOp) }

// EncodeSRA encodes sra rd, rs1, rs2.
func EncodeSRA(rd, rs1, rs2 uint32) uint32 { return encodeR(0b0100000, rs2, rs1, 0b101, rd, opOp) }

// EncodeOR encodes or rd, rs1, rs2.
func EncodeOR(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b110, rd, opOp) }

// EncodeAND encodes and rd, rs1, rs2.
func EncodeAND(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0b111, rd, opOp) }

// EncodeADDI encodes addi rd, rs1, imm.
func EncodeADDI(rd, rs1 uint32, imm int32) uint32 { return encodeI(imm, rs1, 0b000, rd, opOpImm) }

// EncodeSLTI encodes slti rd, rs1, imm.
func EncodeSLTI(rd, rs1 uint32, imm int32) uint32 { return encodeI(imm, rs1, 0b010, rd, opOpImm) }

// EncodeXORI encodes xori rd, rs1, imm.
func EncodeXORI(rd, rs1 uint32, imm int32) uint32 { return encodeI(imm, rs1, 0b100, rd, opOpImm) }

// EncodeORI encodes ori rd, rs1, imm.
func EncodeORI(rd, rs1 uint32, imm int32) uint32 { return encodeI(imm, rs1, 0b110, rd, opOpImm) }

// EncodeANDI encodes andi rd, rs1, imm.
func EncodeANDI(rd, rs1 uint32, imm int32) uint32 { return encodeI(imm, rs1, 0b111, rd, opOpImm) }

// EncodeSLLI encodes slli rd, rs1, shamt.
func EncodeSLLI(rd, rs1, shamt uint32) uint32 {
	return encodeI(int32(shamt&0x1F), rs1, 0b001, rd, opOpImm)
}

// EncodeSRLI encodes srli rd, rs1, shamt.
func EncodeSRLI(rd, rs1, shamt uint32) uint32 {
	return encodeI(int32(shamt&0x1F), rs1, 0b101, rd, opOpImm)
}

// EncodeSRAI encodes srai rd, rs1, shamt.
func EncodeSRAI(rd, rs1, shamt uint32) uint32 {
	return encodeI(int32(0x400|shamt&0x1F), rs1, 0b101, rd, opOpImm)
}

// EncodeLUI encodes lui rd, imm20 (imm20 is the upper 20 bits).
func EncodeLUI(rd, imm20 uint32) uint32 { return imm20<<12 | (rd&0x1F)<<7 | opLui }

// EncodeAUIPC encodes auipc rd, imm20.
func EncodeAUIPC(rd, imm20 uint32) uint32 { return imm20<<12 | (rd&0x1F)<<7 | opAuipc }

// EncodeLW encodes lw rd, imm(rs1).
func EncodeLW(rd, rs1 uint32, imm int32) uint32 { return encodeI(imm, rs1, 0b010, rd, opLoad) }

// EncodeSW encodes sw rs2, imm(rs1).
func EncodeSW(rs2, rs1 uint32, imm int32) uint32 { return encodeS(imm, rs2, rs1, 0b010, opStore) }

// EncodeBEQ encodes beq rs1, rs2, offset.
func EncodeBEQ(rs1, rs2 uint32, offset int32) uint32 { return encodeB(offset, rs2, rs1, 0b000) }

// EncodeBNE encodes bne rs1, rs2, offset.
func EncodeBNE(rs1, rs2 uint32, offset int32) uint32 { return encodeB(offset, rs2, rs1, 0b001) }

// EncodeBLT encodes blt rs1, rs2, offset.
func EncodeBLT(rs1, rs2 uint32, offset int32) uint32 { return encodeB(offset, rs2, rs1, 0b100) }

// EncodeBGE encodes bge rs1, rs2, offset.
func EncodeBGE(rs1, rs2 uint32, offset int32) uint32 { return encodeB(offset, rs2, rs1, 0b101) }

// EncodeBLTU encodes bltu rs1, rs2, offset.
func EncodeBLTU(rs1, rs2 uint32, offset int32) uint32 { return encodeB(offset, rs2, rs1, 0b110) }

// EncodeBGEU encodes bgeu rs1, rs2, offset.
func EncodeBGEU(rs1, rs2 uint32, offset int32) uint32 { return encodeB(offset, rs2, rs1, 0b111) }

// EncodeJAL encodes jal rd, offset.
func EncodeJAL(rd uint32, offset int32) uint32 {
	u := uint32(offset)
	return (u>>20&1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&1)<<20 | (u>>12&0xFF)<<12 | (rd&0x1F)<<7 | opJal
}

// EncodeJALR encodes jalr rd, imm(rs1).
func EncodeJALR(rd, rs1 uint32, imm int32) uint32 { return encodeI(imm, rs1, 0b000, rd, opJalr) }

// EncodeCSRRW encodes csrrw rd, csr, rs1.
func EncodeCSRRW(rd uint32, csr uint16, rs1 uint32) uint32 {
	return uint32(csr)<<20 | (rs1&0x1F)<<15 | 0b001<<12 | (rd&0x1F)<<7 | opSystem
}

// EncodeCSRRS encodes csrrs rd, csr, rs1.
func EncodeCSRRS(rd uint32, csr uint16, rs1 uint32) uint32 {
	return uint32(csr)<<20 | (rs1&0x1F)<<15 | 0b010<<12 | (rd&0x1F)<<7 | opSystem
}

// EncodeExit encodes csrw tohost, rs1. Writing (code<<1)|1 ends the program.
func EncodeExit(rs1 uint32) uint32 { return EncodeCSRRW(0, CSRToHost, rs1) }

// BuildProgram assembles instruction words into a little-endian byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, len(instrs)*4)
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[i*4:], inst)
	}
	return program
}
