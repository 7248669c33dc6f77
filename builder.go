package gigue

import (
	"errors"
	"math/rand"
	"sort"
)

// Builder is the capability set both Method and PIC need to synthesize
// their bodies and call sequences. The base InstructionBuilder implements
// it directly; the rimi package wraps it with shadow-stack/domain-switch
// behavior. This is dependency injection in place of the original's
// class-overlay inheritance (spec.md §9's "Subclass overlays for RIMI"
// design note) and mirrors how riscv64_backend.go is handed a Writer
// rather than constructing one itself.
type Builder interface {
	BuildNop() Instruction
	BuildRet() Instruction

	BuildRandomInstruction(r *rand.Rand, registers []uint32, maxOffset int, dataReg uint32, dataSize int, weights InstructionWeights) (Instruction, error)

	BuildMethodBaseCall(offset int64) ([]Instruction, error)
	BuildMethodTrampolineCall(offset int64, trampOffset int64) ([]Instruction, error)
	BuildPicCall(offset int64, hitCase int32, hitCaseReg uint32) ([]Instruction, error)
	BuildSwitchCase(caseNumber int32, methodOffset int32, hitCaseReg, cmpReg uint32) ([]Instruction, error)

	BuildPrologue(usedSRegs, localVarNb int, containsCall bool) []Instruction
	BuildEpilogue(usedSRegs, localVarNb int, containsCall bool) []Instruction

	BuildCallJitEltTrampoline() []Instruction
	BuildRetFromJitEltTrampoline() []Instruction
}

// InstructionBuilder is the base, RIMI-free builder — a stateless factory
// of instruction sequences. Grounded on riscv64_backend.go's per-mnemonic
// emitters, generalized from "one instruction per compiler IR node" to
// "one randomized instruction per slot".
type InstructionBuilder struct{}

var _ Builder = InstructionBuilder{}

// alignmentFor returns the memory-access width, in bytes, implied by a
// load/store mnemonic's trailing letter (InstructionBuilder.ALIGNMENT).
func alignmentFor(mnemonic string) int {
	switch {
	case len(mnemonic) > 0 && mnemonic[len(mnemonic)-1] == 'b':
		return 1
	case len(mnemonic) > 0 && mnemonic[len(mnemonic)-1] == 'h':
		return 2
	case len(mnemonic) > 0 && mnemonic[len(mnemonic)-1] == 'w':
		return 4
	case len(mnemonic) > 0 && mnemonic[len(mnemonic)-1] == 'd':
		return 8
	default:
		return 1
	}
}

func (InstructionBuilder) BuildNop() Instruction { return Nop() }
func (InstructionBuilder) BuildRet() Instruction { return Ret() }

func randReg(r *rand.Rand, registers []uint32) uint32 {
	return registers[r.Intn(len(registers))]
}

func randImm12(r *rand.Rand) int32 {
	raw := r.Int31n(0x1000)
	return int32(sext(int64(raw), 12))
}

// BuildRandomRInstruction draws a register-register instruction from
// InstructionBuilder.R_INSTRUCTIONS with replacement-sampled operands.
func BuildRandomRInstruction(r *rand.Rand, registers []uint32) (Instruction, error) {
	mnemonic := RMnemonics[r.Intn(len(RMnemonics))]
	rd := randReg(r, registers)
	rs1 := randReg(r, registers)
	rs2 := randReg(r, registers)
	return rConstructors[mnemonic](rd, rs1, rs2)
}

// BuildRandomIInstruction draws from InstructionBuilder.I_INSTRUCTIONS.
func BuildRandomIInstruction(r *rand.Rand, registers []uint32) (Instruction, error) {
	mnemonic := IMnemonics[r.Intn(len(IMnemonics))]
	rd := randReg(r, registers)
	rs1 := randReg(r, registers)
	return iConstructors[mnemonic](rd, rs1, randImm12(r))
}

// BuildRandomUInstruction draws lui/auipc with a full-range immediate.
func BuildRandomUInstruction(r *rand.Rand, registers []uint32) (Instruction, error) {
	mnemonic := UMnemonics[r.Intn(len(UMnemonics))]
	rd := randReg(r, registers)
	imm := r.Uint32()
	return uConstructors[mnemonic](rd, imm)
}

// BuildRandomSInstruction draws a store whose base is always dataReg and
// whose offset is aligned to the access width and bounded by the data
// page size.
func BuildRandomSInstruction(r *rand.Rand, registers []uint32, dataReg uint32, dataSize int) (Instruction, error) {
	mnemonic := StoreMnemonics[r.Intn(len(StoreMnemonics))]
	rs2 := randReg(r, registers)
	bound := dataSize
	if bound > 0x7FF {
		bound = 0x7FF
	}
	imm := align(r.Intn(bound+1), alignmentFor(mnemonic))
	return sConstructors[mnemonic](dataReg, rs2, int32(imm))
}

// BuildRandomLInstruction draws a load whose base is always dataReg.
func BuildRandomLInstruction(r *rand.Rand, registers []uint32, dataReg uint32, dataSize int) (Instruction, error) {
	mnemonic := LoadMnemonics[r.Intn(len(LoadMnemonics))]
	rd := randReg(r, registers)
	bound := dataSize
	if bound > 0x7FF {
		bound = 0x7FF
	}
	imm := align(r.Intn(bound+1), alignmentFor(mnemonic))
	return loadConstructors[mnemonic](rd, dataReg, int32(imm))
}

// sizeOffset is InstructionBuilder.size_offset: candidate jump/branch
// offsets that stay 4-byte aligned and remain inside the remaining body.
// The step-12 candidates leave a multiple of 12 bytes to the end of the
// body, which is a boundary of the 3-instruction call slots bunched there;
// Method.FillBody redraws any jump that would land inside a 6-instruction
// slot. Empty when maxOffset leaves no room for a 4-byte hop.
func sizeOffset(maxOffset int) []int {
	if maxOffset < 4 {
		return nil
	}
	seen := map[int]bool{4: true, maxOffset: true}
	for i := 1; i <= maxOffset/12; i++ {
		seen[i*12+maxOffset%12] = true
	}
	if maxOffset%12 == 8 {
		seen[8] = true
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	// Sorted so a seeded index into the set picks the same offset every run.
	sort.Ints(out)
	return out
}

var errNoLegalOffset = errors.New("gigue: no legal aligned offset fits in the remaining body")

// BuildRandomJInstruction draws a jal that stays within the method body.
// Declines with errNoLegalOffset when maxOffset leaves no room for even
// the minimal 4-byte hop — the dispatcher resamples another category
// when that happens (spec.md §9's explicit precondition).
func BuildRandomJInstruction(r *rand.Rand, registers []uint32, maxOffset int) (Instruction, error) {
	if maxOffset < 4 {
		return Instruction{}, errNoLegalOffset
	}
	offsets := sizeOffset(maxOffset)
	offset := offsets[r.Intn(len(offsets))]
	if offset < 4 {
		return Instruction{}, errNoLegalOffset
	}
	rd := randReg(r, registers)
	return Jal(rd, int32(offset))
}

// BuildRandomBInstruction draws a conditional branch under the same
// offset constraints as BuildRandomJInstruction.
func BuildRandomBInstruction(r *rand.Rand, registers []uint32, maxOffset int) (Instruction, error) {
	if maxOffset < 4 {
		return Instruction{}, errNoLegalOffset
	}
	offsets := sizeOffset(maxOffset)
	offset := offsets[r.Intn(len(offsets))]
	if offset < 4 {
		return Instruction{}, errNoLegalOffset
	}
	mnemonic := BranchMnemonics[r.Intn(len(BranchMnemonics))]
	rs1 := randReg(r, registers)
	rs2 := randReg(r, registers)
	return bConstructors[mnemonic](rs1, rs2, int32(offset))
}

// BuildRandomInstruction is the weighted dispatcher over the seven
// format builders. When a J/B draw declines for lack of a legal offset,
// it draws a category again rather than propagating the error —
// numerically stable even when some weights are 0 (a 0-weight category
// is simply never chosen by the cumulative-weight scan below).
func (InstructionBuilder) BuildRandomInstruction(r *rand.Rand, registers []uint32, maxOffset int, dataReg uint32, dataSize int, weights InstructionWeights) (Instruction, error) {
	categories := []string{"R", "I", "U", "J", "B", "S", "L"}
	w := []int{weights.R, weights.I, weights.U, weights.J, weights.B, weights.S, weights.L}
	total := 0
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		return BuildRandomRInstruction(r, registers)
	}
	const maxAttempts = 32
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pick := r.Intn(total)
		idx := 0
		for cum := 0; idx < len(w); idx++ {
			cum += w[idx]
			if pick < cum {
				break
			}
		}
		var instr Instruction
		var err error
		switch categories[idx] {
		case "R":
			instr, err = BuildRandomRInstruction(r, registers)
		case "I":
			instr, err = BuildRandomIInstruction(r, registers)
		case "U":
			instr, err = BuildRandomUInstruction(r, registers)
		case "J":
			instr, err = BuildRandomJInstruction(r, registers, maxOffset)
		case "B":
			instr, err = BuildRandomBInstruction(r, registers, maxOffset)
		case "S":
			instr, err = BuildRandomSInstruction(r, registers, dataReg, dataSize)
		case "L":
			instr, err = BuildRandomLInstruction(r, registers, dataReg, dataSize)
		}
		if err == nil {
			return instr, nil
		}
		if !errors.Is(err, errNoLegalOffset) {
			return Instruction{}, err
		}
		// draw a category again on the next attempt
	}
	// Every J/B attempt declined; fall back to a format with no offset
	// constraint so the slot is never left unfilled.
	return BuildRandomRInstruction(r, registers)
}

// SplitOffset splits a 32-bit PC-relative offset into the auipc/jalr
// pair. offset_low is the jalr's 12-bit signed immediate; offset_high is
// the auipc's 20-bit upper immediate, pre-adjusted for jalr's
// sign-extension of offset_low (InstructionBuilder.split_offset).
func SplitOffset(offset int64) (low int32, high uint32, err error) {
	if offset < 0 {
		if -offset < 8 {
			return 0, 0, &WrongOffsetError{Offset: offset}
		}
	} else if offset < 8 {
		return 0, 0, &WrongOffsetError{Offset: offset}
	}
	u := uint32(offset)
	offsetLow := u & 0xFFF
	offsetHigh := (u & 0xFFFFF000) + ((u & 0x800) << 1)
	return int32(sext(int64(offsetLow), 12)), offsetHigh, nil
}

// BuildMethodBaseCall is [auipc ra, high; jalr ra, ra, low] — 2 raw
// instructions, budgeted at CallSizeBase (3) slots: Method.PatchCalls puts
// the hit-case addi in the third slot when the callee is a PIC, and a nop
// otherwise.
func (InstructionBuilder) BuildMethodBaseCall(offset int64) ([]Instruction, error) {
	low, high, err := SplitOffset(offset)
	if err != nil {
		return nil, err
	}
	auipc, _ := Auipc(RA, high)
	jalr, _ := Jalr(RA, RA, low)
	return []Instruction{auipc, jalr}, nil
}

// BuildMethodTrampolineCall first materializes the callee's address into
// CALL_TMP_REG via a PC-relative auipc+addi pair, then jumps to the
// shared call_jit_elt trampoline via its own auipc+jalr — 4 raw
// instructions, budgeted at CallSizeTrampoline (6) slots.
func (InstructionBuilder) BuildMethodTrampolineCall(offset int64, trampOffset int64) ([]Instruction, error) {
	targetLow, targetHigh, err := SplitOffset(offset)
	if err != nil {
		return nil, err
	}
	trampLow, trampHigh, err := SplitOffset(trampOffset)
	if err != nil {
		return nil, err
	}
	auipcTarget, _ := Auipc(CallTmpReg, targetHigh)
	addiTarget, _ := Addi(CallTmpReg, CallTmpReg, targetLow)
	auipcTramp, _ := Auipc(RA, trampHigh)
	jalrTramp, _ := Jalr(RA, RA, trampLow)
	return []Instruction{auipcTarget, addiTarget, auipcTramp, jalrTramp}, nil
}

// BuildPicCall prepends the hit-case tag to a base call: 3 instructions
// total (addi + auipc + jalr), matching CallSizeBase exactly.
func (InstructionBuilder) BuildPicCall(offset int64, hitCase int32, hitCaseReg uint32) ([]Instruction, error) {
	base, err := InstructionBuilder{}.BuildMethodBaseCall(offset)
	if err != nil {
		return nil, err
	}
	tag, err := Addi(hitCaseReg, Zero, hitCase)
	if err != nil {
		return nil, err
	}
	return append([]Instruction{tag}, base...), nil
}

// BuildSwitchCase: load the case number, skip the jal if it doesn't
// match the hit case, otherwise jump to the case's method. bne (not beq)
// is deliberate: the forward skip is over exactly one jal, giving that
// jal the full +-1MiB range instead of beq's +-4KiB.
func (InstructionBuilder) BuildSwitchCase(caseNumber int32, methodOffset int32, hitCaseReg, cmpReg uint32) ([]Instruction, error) {
	loadCase, err := Addi(cmpReg, Zero, caseNumber)
	if err != nil {
		return nil, err
	}
	skip, err := Bne(cmpReg, hitCaseReg, 8)
	if err != nil {
		return nil, err
	}
	jump, err := Jal(Zero, methodOffset)
	if err != nil {
		return nil, err
	}
	return []Instruction{loadCase, skip, jump}, nil
}

// BuildPrologue decrements sp by (used_s_regs + local_var_nb + contains_call)*8,
// stores s0..s{used_s_regs-1}, and stores ra if contains_call.
func (InstructionBuilder) BuildPrologue(usedSRegs, localVarNb int, containsCall bool) []Instruction {
	extra := 0
	if containsCall {
		extra = 1
	}
	stackSpace := int32(usedSRegs+localVarNb+extra) * 8
	out := make([]Instruction, 0, usedSRegs+2)
	dec, _ := Addi(SP, SP, -stackSpace)
	out = append(out, dec)
	for i := 0; i < usedSRegs; i++ {
		sd, _ := Sd(SP, CalleeSavedRegisters[i], int32(i*8))
		out = append(out, sd)
	}
	if containsCall {
		sd, _ := Sd(SP, RA, int32(usedSRegs*8))
		out = append(out, sd)
	}
	return out
}

// BuildEpilogue reverses BuildPrologue exactly and ends with ret.
func (InstructionBuilder) BuildEpilogue(usedSRegs, localVarNb int, containsCall bool) []Instruction {
	extra := 0
	if containsCall {
		extra = 1
	}
	stackSpace := int32(usedSRegs+localVarNb+extra) * 8
	out := make([]Instruction, 0, usedSRegs+2)
	for i := 0; i < usedSRegs; i++ {
		ld, _ := Ld(CalleeSavedRegisters[i], SP, int32(i*8))
		out = append(out, ld)
	}
	if containsCall {
		ld, _ := Ld(RA, SP, int32(usedSRegs*8))
		out = append(out, ld)
	}
	inc, _ := Addi(SP, SP, stackSpace)
	out = append(out, inc, Ret())
	return out
}

// BuildCallJitEltTrampoline: jr CALL_TMP_REG. RA is set by the caller;
// the callee address is staged in CALL_TMP_REG by
// BuildMethodTrampolineCall. Does nothing beyond the bare jump without an
// isolation overlay — see the rimi package.
func (InstructionBuilder) BuildCallJitEltTrampoline() []Instruction {
	jr, _ := Jr(CallTmpReg)
	return []Instruction{jr}
}

// BuildRetFromJitEltTrampoline: ret. RA is set by the caller.
func (InstructionBuilder) BuildRetFromJitEltTrampoline() []Instruction {
	return []Instruction{Ret()}
}
