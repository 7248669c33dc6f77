package gigue

import "encoding/binary"

// Format is the RISC-V instruction format kind.
type Format int

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	default:
		return "?"
	}
}

// Instruction is an immutable value carrying every field a RISC-V
// encoding needs. Fields unused by Format are left zero. Produced by the
// constructors in this file (which validate operand ranges) or by Decode
// (the disassembler's inverse); consumed only to emit a 32-bit
// word.
type Instruction struct {
	Format   Format
	Mnemonic string
	Opcode   uint32
	Funct3   uint32
	Funct7   uint32
	Rd       uint32
	Rs1      uint32
	Rs2      uint32
	Imm      int32
}

func checkReg(name string, reg uint32) error {
	if reg > 31 {
		return &EncodingError{Mnemonic: name, Field: "register", Value: int64(reg)}
	}
	return nil
}

func checkImm(name string, imm int64, low, high int64) error {
	if imm < low || imm > high {
		return &EncodingError{Mnemonic: name, Field: "imm", Value: imm}
	}
	return nil
}

// Encode packs the instruction into its 32-bit word. It is total: by the
// time an Instruction value exists, its constructor has already validated
// every field, so Encode itself never fails (spec.md §4.1's Encoder
// contract: well-formed builder output never triggers EncodingError here).
func (in Instruction) Encode() uint32 {
	switch in.Format {
	case FormatR:
		return in.Opcode | (in.Rd << 7) | (in.Funct3 << 12) | (in.Rs1 << 15) | (in.Rs2 << 20) | (in.Funct7 << 25)
	case FormatI:
		return in.Opcode | (in.Rd << 7) | (in.Funct3 << 12) | (in.Rs1 << 15) | (uint32(in.Imm&0xFFF) << 20)
	case FormatS:
		imm := uint32(in.Imm)
		lo := imm & 0x1F
		hi := (imm >> 5) & 0x7F
		return in.Opcode | (lo << 7) | (in.Funct3 << 12) | (in.Rs1 << 15) | (in.Rs2 << 20) | (hi << 25)
	case FormatB:
		imm := uint32(in.Imm)
		b11 := (imm >> 11) & 0x1
		b4_1 := (imm >> 1) & 0xF
		b10_5 := (imm >> 5) & 0x3F
		b12 := (imm >> 12) & 0x1
		return in.Opcode | (b11 << 7) | (b4_1 << 8) | (in.Funct3 << 12) | (in.Rs1 << 15) | (in.Rs2 << 20) | (b10_5 << 25) | (b12 << 31)
	case FormatU:
		return in.Opcode | (in.Rd << 7) | (uint32(in.Imm) & 0xFFFFF000)
	case FormatJ:
		imm := uint32(in.Imm)
		b19_12 := (imm >> 12) & 0xFF
		b11 := (imm >> 11) & 0x1
		b10_1 := (imm >> 1) & 0x3FF
		b20 := (imm >> 20) & 0x1
		return in.Opcode | (in.Rd << 7) | (b19_12 << 12) | (b11 << 20) | (b10_1 << 21) | (b20 << 31)
	default:
		return 0
	}
}

// GenerateBytes emits the instruction as 4 little-endian bytes.
func (in Instruction) GenerateBytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, in.Encode())
	return buf
}

// RInstruction builds a register-register instruction.
func RInstruction(mnemonic string, opcode, funct3, funct7, rd, rs1, rs2 uint32) (Instruction, error) {
	if err := checkReg(mnemonic, rd); err != nil {
		return Instruction{}, err
	}
	if err := checkReg(mnemonic, rs1); err != nil {
		return Instruction{}, err
	}
	if err := checkReg(mnemonic, rs2); err != nil {
		return Instruction{}, err
	}
	return Instruction{Format: FormatR, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Funct7: funct7, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
}

func rOp(mnemonic string, opcode, funct3, funct7 uint32) func(rd, rs1, rs2 uint32) (Instruction, error) {
	return func(rd, rs1, rs2 uint32) (Instruction, error) {
		return RInstruction(mnemonic, opcode, funct3, funct7, rd, rs1, rs2)
	}
}

var (
	Add    = rOp("add", 0x33, 0x0, 0x00)
	Sub    = rOp("sub", 0x33, 0x0, 0x20)
	Sll    = rOp("sll", 0x33, 0x1, 0x00)
	Slt    = rOp("slt", 0x33, 0x2, 0x00)
	Sltu   = rOp("sltu", 0x33, 0x3, 0x00)
	Xor    = rOp("xor", 0x33, 0x4, 0x00)
	Srl    = rOp("srl", 0x33, 0x5, 0x00)
	Sra    = rOp("sra", 0x33, 0x5, 0x20)
	Or     = rOp("or", 0x33, 0x6, 0x00)
	And    = rOp("and", 0x33, 0x7, 0x00)
	Mul    = rOp("mul", 0x33, 0x0, 0x01)
	Mulh   = rOp("mulh", 0x33, 0x1, 0x01)
	Mulhsu = rOp("mulhsu", 0x33, 0x2, 0x01)
	Mulhu  = rOp("mulhu", 0x33, 0x3, 0x01)
	Div    = rOp("div", 0x33, 0x4, 0x01)
	Divu   = rOp("divu", 0x33, 0x5, 0x01)
	Rem    = rOp("rem", 0x33, 0x6, 0x01)
	Remu   = rOp("remu", 0x33, 0x7, 0x01)

	Addw  = rOp("addw", 0x3B, 0x0, 0x00)
	Subw  = rOp("subw", 0x3B, 0x0, 0x20)
	Sllw  = rOp("sllw", 0x3B, 0x1, 0x00)
	Srlw  = rOp("srlw", 0x3B, 0x5, 0x00)
	Sraw  = rOp("sraw", 0x3B, 0x5, 0x20)
	Mulw  = rOp("mulw", 0x3B, 0x0, 0x01)
	Divw  = rOp("divw", 0x3B, 0x4, 0x01)
	Divuw = rOp("divuw", 0x3B, 0x5, 0x01)
	Remw  = rOp("remw", 0x3B, 0x6, 0x01)
	Remuw = rOp("remuw", 0x3B, 0x7, 0x01)
)

// RMnemonics lists the R-type mnemonics the random instruction pool
// samples from — grounded on InstructionBuilder.R_INSTRUCTIONS. The
// divide/remainder constructors above are not in the pool.
var RMnemonics = []string{
	"add", "addw", "and", "mul", "mulh", "mulhsu", "mulhu", "mulw",
	"or", "sll", "sllw", "slt", "sltu", "sra", "sraw", "srl", "srlw",
	"sub", "subw", "xor",
}

var rConstructors = map[string]func(rd, rs1, rs2 uint32) (Instruction, error){
	"add": Add, "addw": Addw, "and": And, "mul": Mul, "mulh": Mulh,
	"mulhsu": Mulhsu, "mulhu": Mulhu, "mulw": Mulw, "or": Or, "sll": Sll,
	"sllw": Sllw, "slt": Slt, "sltu": Sltu, "sra": Sra, "sraw": Sraw,
	"srl": Srl, "srlw": Srlw, "sub": Sub, "subw": Subw, "xor": Xor,
}

// IInstructionBase builds an immediate-form instruction with a 12-bit signed
// immediate.
func IInstructionBase(mnemonic string, opcode, funct3, rd, rs1 uint32, imm int32) (Instruction, error) {
	if err := checkReg(mnemonic, rd); err != nil {
		return Instruction{}, err
	}
	if err := checkReg(mnemonic, rs1); err != nil {
		return Instruction{}, err
	}
	if err := checkImm(mnemonic, int64(imm), -2048, 2047); err != nil {
		return Instruction{}, err
	}
	return Instruction{Format: FormatI, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Rd: rd, Rs1: rs1, Imm: imm}, nil
}

func iOp(mnemonic string, opcode, funct3 uint32) func(rd, rs1 uint32, imm int32) (Instruction, error) {
	return func(rd, rs1 uint32, imm int32) (Instruction, error) {
		return IInstructionBase(mnemonic, opcode, funct3, rd, rs1, imm)
	}
}

var (
	Addi   = iOp("addi", 0x13, 0x0)
	Slti   = iOp("slti", 0x13, 0x2)
	Sltiu  = iOp("sltiu", 0x13, 0x3)
	Xori   = iOp("xori", 0x13, 0x4)
	Ori    = iOp("ori", 0x13, 0x6)
	Andi   = iOp("andi", 0x13, 0x7)
	Addiw  = iOp("addiw", 0x1B, 0x0)
	Jalr   = iOp("jalr", 0x67, 0x0)

	Lb  = iOp("lb", 0x03, 0x0)
	Lh  = iOp("lh", 0x03, 0x1)
	Lw  = iOp("lw", 0x03, 0x2)
	Ld  = iOp("ld", 0x03, 0x3)
	Lbu = iOp("lbu", 0x03, 0x4)
	Lhu = iOp("lhu", 0x03, 0x5)
)

// IMnemonics is the arithmetic/logic I-type pool (excludes loads and
// jalr, which have their own roles), grounded on
// InstructionBuilder.I_INSTRUCTIONS.
var IMnemonics = []string{"addi", "addiw", "andi", "ori", "slti", "sltiu", "xori"}

var iConstructors = map[string]func(rd, rs1 uint32, imm int32) (Instruction, error){
	"addi": Addi, "addiw": Addiw, "andi": Andi, "ori": Ori,
	"slti": Slti, "sltiu": Sltiu, "xori": Xori,
}

// LoadMnemonics is InstructionBuilder.I_INSTRUCTIONS_LOAD.
var LoadMnemonics = []string{"lb", "lbu", "ld", "lh", "lhu"}

var loadConstructors = map[string]func(rd, rs1 uint32, imm int32) (Instruction, error){
	"lb": Lb, "lbu": Lbu, "ld": Ld, "lh": Lh, "lhu": Lhu,
}

// Nop is addi x0, x0, 0.
func Nop() Instruction {
	in, _ := Addi(Zero, Zero, 0)
	return in
}

// Ret is jalr x0, ra, 0.
func Ret() Instruction {
	in, _ := Jalr(Zero, RA, 0)
	return in
}

// Ebreak traps.
func Ebreak() Instruction {
	return Instruction{Format: FormatI, Mnemonic: "ebreak", Opcode: 0x73, Funct3: 0, Rd: 0, Rs1: 0, Imm: 1}
}

// Ecall performs a system call.
func Ecall() Instruction {
	return Instruction{Format: FormatI, Mnemonic: "ecall", Opcode: 0x73, Funct3: 0, Rd: 0, Rs1: 0, Imm: 0}
}

// Jr is the jalr-as-jump-register pseudo-instruction used by trampolines:
// jalr x0, 0(rs1).
func Jr(rs1 uint32) (Instruction, error) {
	return Jalr(Zero, rs1, 0)
}

// SInstructionBase builds a store instruction: the format's immediate is
// split across bits [4:0] and [11:5].
func SInstructionBase(mnemonic string, opcode, funct3, rs1, rs2 uint32, imm int32) (Instruction, error) {
	if err := checkReg(mnemonic, rs1); err != nil {
		return Instruction{}, err
	}
	if err := checkReg(mnemonic, rs2); err != nil {
		return Instruction{}, err
	}
	if err := checkImm(mnemonic, int64(imm), -2048, 2047); err != nil {
		return Instruction{}, err
	}
	return Instruction{Format: FormatS, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Rs1: rs1, Rs2: rs2, Imm: imm}, nil
}

func sOp(mnemonic string, opcode, funct3 uint32) func(rs1, rs2 uint32, imm int32) (Instruction, error) {
	return func(rs1, rs2 uint32, imm int32) (Instruction, error) {
		return SInstructionBase(mnemonic, opcode, funct3, rs1, rs2, imm)
	}
}

var (
	Sb = sOp("sb", 0x23, 0x0)
	Sh = sOp("sh", 0x23, 0x1)
	Sw = sOp("sw", 0x23, 0x2)
	Sd = sOp("sd", 0x23, 0x3)
)

// StoreMnemonics is InstructionBuilder.S_INSTRUCTIONS.
var StoreMnemonics = []string{"sb", "sd", "sh", "sw"}

var sConstructors = map[string]func(rs1, rs2 uint32, imm int32) (Instruction, error){
	"sb": Sb, "sd": Sd, "sh": Sh, "sw": Sw,
}

// BInstructionBase builds a conditional branch; imm must be even and fit a
// 13-bit signed range (bit 0 implicit zero).
func BInstructionBase(mnemonic string, opcode, funct3, rs1, rs2 uint32, imm int32) (Instruction, error) {
	if err := checkReg(mnemonic, rs1); err != nil {
		return Instruction{}, err
	}
	if err := checkReg(mnemonic, rs2); err != nil {
		return Instruction{}, err
	}
	if imm%2 != 0 {
		return Instruction{}, &EncodingError{Mnemonic: mnemonic, Field: "imm (must be even)", Value: int64(imm)}
	}
	if err := checkImm(mnemonic, int64(imm), -4096, 4095); err != nil {
		return Instruction{}, err
	}
	return Instruction{Format: FormatB, Mnemonic: mnemonic, Opcode: opcode, Funct3: funct3, Rs1: rs1, Rs2: rs2, Imm: imm}, nil
}

func bOp(mnemonic string, opcode, funct3 uint32) func(rs1, rs2 uint32, imm int32) (Instruction, error) {
	return func(rs1, rs2 uint32, imm int32) (Instruction, error) {
		return BInstructionBase(mnemonic, opcode, funct3, rs1, rs2, imm)
	}
}

var (
	Beq  = bOp("beq", 0x63, 0x0)
	Bne  = bOp("bne", 0x63, 0x1)
	Blt  = bOp("blt", 0x63, 0x4)
	Bge  = bOp("bge", 0x63, 0x5)
	Bltu = bOp("bltu", 0x63, 0x6)
	Bgeu = bOp("bgeu", 0x63, 0x7)
)

// BranchMnemonics is InstructionBuilder.B_INSTRUCTIONS.
var BranchMnemonics = []string{"beq", "bge", "bgeu", "blt", "bltu", "bne"}

var bConstructors = map[string]func(rs1, rs2 uint32, imm int32) (Instruction, error){
	"beq": Beq, "bge": Bge, "bgeu": Bgeu, "blt": Blt, "bltu": Bltu, "bne": Bne,
}

// UInstructionBase builds a 20-bit-upper-immediate instruction.
func UInstructionBase(mnemonic string, opcode, rd uint32, imm uint32) (Instruction, error) {
	if err := checkReg(mnemonic, rd); err != nil {
		return Instruction{}, err
	}
	return Instruction{Format: FormatU, Mnemonic: mnemonic, Opcode: opcode, Rd: rd, Imm: int32(imm)}, nil
}

// Lui loads an upper immediate.
func Lui(rd uint32, imm uint32) (Instruction, error) {
	return UInstructionBase("lui", 0x37, rd, imm)
}

// Auipc adds a PC-relative upper immediate.
func Auipc(rd uint32, imm uint32) (Instruction, error) {
	return UInstructionBase("auipc", 0x17, rd, imm)
}

// UMnemonics is InstructionBuilder.U_INSTRUCTIONS.
var UMnemonics = []string{"auipc", "lui"}

var uConstructors = map[string]func(rd uint32, imm uint32) (Instruction, error){
	"auipc": Auipc, "lui": Lui,
}

// Jal builds a jump-and-link with a 21-bit signed, even offset.
func Jal(rd uint32, imm int32) (Instruction, error) {
	if err := checkReg("jal", rd); err != nil {
		return Instruction{}, err
	}
	if imm%2 != 0 {
		return Instruction{}, &EncodingError{Mnemonic: "jal", Field: "imm (must be even)", Value: int64(imm)}
	}
	if err := checkImm("jal", int64(imm), -(1 << 20), (1<<20)-1); err != nil {
		return Instruction{}, err
	}
	return Instruction{Format: FormatJ, Mnemonic: "jal", Opcode: 0x6F, Rd: rd, Imm: imm}, nil
}
