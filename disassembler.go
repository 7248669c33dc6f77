package gigue

// Disassembler decodes 32-bit RISC-V words back into Instruction values.
// It is an inspection helper consuming the same opcode tables as the
// encoder (spec.md §1) — never invoked by the generator itself, only by
// tests and external tooling. Grounded on src/gigue/disassembler.py's
// extract_info/extract_opcode7/disassemble shape, corrected to route
// every format to its own decoder (the original's disassemble() sent J,
// U, and S words through disassemble_r_instruction, which only prints
// fields; that is a presentation bug, not a format decision, so it is not
// carried over here).
type Disassembler struct{}

func extractInfo(word uint32, size, shift uint) uint32 {
	mask := uint32((1 << size) - 1)
	return (word >> shift) & mask
}

func (Disassembler) ExtractOpcode7(word uint32) uint32 { return extractInfo(word, 7, 0) }
func (Disassembler) ExtractFunct3(word uint32) uint32  { return extractInfo(word, 3, 12) }
func (Disassembler) ExtractFunct7(word uint32) uint32  { return extractInfo(word, 7, 25) }
func (Disassembler) ExtractRd(word uint32) uint32      { return extractInfo(word, 5, 7) }
func (Disassembler) ExtractRs1(word uint32) uint32     { return extractInfo(word, 5, 15) }
func (Disassembler) ExtractRs2(word uint32) uint32     { return extractInfo(word, 5, 20) }

var rMnemonicByFunct = map[uint32]map[uint32]map[uint32]string{
	0x33: {
		0x0: {0x00: "add", 0x20: "sub", 0x01: "mul"},
		0x1: {0x00: "sll", 0x01: "mulh"},
		0x2: {0x00: "slt", 0x01: "mulhsu"},
		0x3: {0x00: "sltu", 0x01: "mulhu"},
		0x4: {0x00: "xor", 0x01: "div"},
		0x5: {0x00: "srl", 0x20: "sra", 0x01: "divu"},
		0x6: {0x00: "or", 0x01: "rem"},
		0x7: {0x00: "and", 0x01: "remu"},
	},
	0x3B: {
		0x0: {0x00: "addw", 0x20: "subw", 0x01: "mulw"},
		0x1: {0x00: "sllw"},
		0x4: {0x01: "divw"},
		0x5: {0x00: "srlw", 0x20: "sraw", 0x01: "divuw"},
		0x6: {0x01: "remw"},
		0x7: {0x01: "remuw"},
	},
}

var iMnemonicByOpcodeFunct = map[uint32]map[uint32]string{
	0x13: {0x0: "addi", 0x2: "slti", 0x3: "sltiu", 0x4: "xori", 0x6: "ori", 0x7: "andi"},
	0x1B: {0x0: "addiw"},
	0x03: {0x0: "lb", 0x1: "lh", 0x2: "lw", 0x3: "ld", 0x4: "lbu", 0x5: "lhu"},
	0x67: {0x0: "jalr"},
}

var sMnemonicByFunct3 = map[uint32]string{0x0: "sb", 0x1: "sh", 0x2: "sw", 0x3: "sd"}
var bMnemonicByFunct3 = map[uint32]string{0x0: "beq", 0x1: "bne", 0x4: "blt", 0x5: "bge", 0x6: "bltu", 0x7: "bgeu"}

// Decode reconstructs an Instruction from its encoded word. Returns
// UnknownInstructionError if the opcode/funct combination is not one
// gigue's encoder ever produces (e.g. compressed or floating-point
// encodings, which are out of scope).
func (d Disassembler) Decode(word uint32) (Instruction, error) {
	opcode := d.ExtractOpcode7(word)
	funct3 := d.ExtractFunct3(word)
	rd := d.ExtractRd(word)
	rs1 := d.ExtractRs1(word)
	rs2 := d.ExtractRs2(word)
	funct7 := d.ExtractFunct7(word)

	switch opcode {
	case 0x33, 0x3B:
		byFunct3, ok := rMnemonicByFunct[opcode]
		if !ok {
			break
		}
		byFunct7, ok := byFunct3[funct3]
		if !ok {
			break
		}
		mnemonic, ok := byFunct7[funct7]
		if !ok {
			break
		}
		return Instruction{Format: FormatR, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Funct7: funct7, Rd: rd, Rs1: rs1, Rs2: rs2}, nil

	case 0x13, 0x1B, 0x03, 0x67:
		byFunct3, ok := iMnemonicByOpcodeFunct[opcode]
		if !ok {
			break
		}
		mnemonic, ok := byFunct3[funct3]
		if !ok {
			break
		}
		imm := int32(sext(int64(extractInfo(word, 12, 20)), 12))
		return Instruction{Format: FormatI, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Rd: rd, Rs1: rs1, Imm: imm}, nil

	case 0x73:
		switch extractInfo(word, 12, 20) {
		case 0:
			return Instruction{Format: FormatI, Mnemonic: "ecall", Opcode: opcode, Imm: 0}, nil
		case 1:
			return Instruction{Format: FormatI, Mnemonic: "ebreak", Opcode: opcode, Imm: 1}, nil
		}

	case 0x23:
		mnemonic, ok := sMnemonicByFunct3[funct3]
		if !ok {
			break
		}
		lo := extractInfo(word, 5, 7)
		hi := extractInfo(word, 7, 25)
		imm := int32(sext(int64((hi<<5)|lo), 12))
		return Instruction{Format: FormatS, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Rs1: rs1, Rs2: rs2, Imm: imm}, nil

	case 0x63:
		mnemonic, ok := bMnemonicByFunct3[funct3]
		if !ok {
			break
		}
		b11 := extractInfo(word, 1, 7)
		b4_1 := extractInfo(word, 4, 8)
		b10_5 := extractInfo(word, 6, 25)
		b12 := extractInfo(word, 1, 31)
		imm := int32(sext(int64((b12<<12)|(b11<<11)|(b10_5<<5)|(b4_1<<1)), 13))
		return Instruction{Format: FormatB, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Rs1: rs1, Rs2: rs2, Imm: imm}, nil

	case 0x37, 0x17:
		mnemonic := "lui"
		if opcode == 0x17 {
			mnemonic = "auipc"
		}
		imm := int32(word & 0xFFFFF000)
		return Instruction{Format: FormatU, Mnemonic: mnemonic, Opcode: opcode, Rd: rd, Imm: imm}, nil

	case 0x6F:
		b19_12 := extractInfo(word, 8, 12)
		b11 := extractInfo(word, 1, 20)
		b10_1 := extractInfo(word, 10, 21)
		b20 := extractInfo(word, 1, 31)
		imm := int32(sext(int64((b20<<20)|(b19_12<<12)|(b11<<11)|(b10_1<<1)), 21))
		return Instruction{Format: FormatJ, Mnemonic: "jal", Opcode: opcode, Rd: rd, Imm: imm}, nil
	}

	return Instruction{}, &UnknownInstructionError{Word: word}
}

// Disassemble decodes word and returns its mnemonic only; operands and
// immediates are not rendered.
func (d Disassembler) Disassemble(word uint32) (string, error) {
	in, err := d.Decode(word)
	if err != nil {
		return "", err
	}
	return in.Mnemonic, nil
}
