package gigue

// Register conventions. Names mirror the RISC-V ABI; numeric values are
// the raw 5-bit encodings used throughout the encoder and builder.
const (
	Zero = 0 // x0
	RA   = 1 // x1, return address
	SP   = 2 // x2, stack pointer
	GP   = 3 // x3
	TP   = 4 // x4

	HitCaseReg = 5 // x5 / t0, PIC case tag
	CallTmpReg = 6 // x6 / t1, trampoline call target staging
	CmpReg     = 7 // x7 / t2, switch-case compare scratch

	S0 = 8 // x8
	S1 = 9 // x9

	A0 = 10
	A1 = 11
	A2 = 12
	A3 = 13
	A4 = 14
	A5 = 15
	A6 = 16
	A7 = 17

	S2  = 18
	S3  = 19
	S4  = 20
	S5  = 21
	S6  = 22
	S7  = 23
	S8  = 24
	S9  = 25
	S10 = 26
	S11 = 27

	DataReg = 31 // x31 / t6
)

// CalleeSavedRegisters lists s0..s11 in ABI order. build_prologue/epilogue
// save/restore a prefix of this slice.
var CalleeSavedRegisters = []uint32{S0, S1, S2, S3, S4, S5, S6, S7, S8, S9, S10, S11}

// DefaultRegisters is the caller-saved temporary/argument register pool
// handed to the random instruction builder by default: t0-t2, a0-a7, t3-t5,
// excluding the data register so random-fill instructions never clobber
// the base every load/store in a body addresses through, mirroring
// generator.py's self.registers filtering.
var DefaultRegisters = []uint32{
	HitCaseReg, CallTmpReg, CmpReg,
	A0, A1, A2, A3, A4, A5, A6, A7,
	28, 29, 30,
}

// Trampoline names, looked up by the generator when patching calls in
// trampoline mode.
const (
	TrampolineCallJitElt     = "call_jit_elt"
	TrampolineRetFromJitElt  = "ret_from_jit_elt"
)

// DefaultTrampolines is the order trampolines are laid out in JIT memory.
var DefaultTrampolines = []string{TrampolineCallJitElt, TrampolineRetFromJitElt}

// Call-site accounting sizes (in instruction slots).
const (
	CallSizeBase       = 3
	CallSizeTrampoline = 6
)

// DataSize is the default size, in bytes, of the data region.
const DataSize = 32 * 1024

// MaxCodeSize is 2 MiB, the original generator's MAX_CODE_SIZE. No code
// in this module checks an image against it.
const MaxCodeSize = 2 * 1024 * 1024

// InstructionWeights is a named weight vector over the seven random
// instruction format categories, replacing the bare 7-int slice used by
// the original source with a self-documenting struct (see SPEC_FULL.md).
type InstructionWeights struct {
	R, I, U, J, B, S, L int
}

// DefaultInstructionWeights spreads draws evenly across all seven formats.
var DefaultInstructionWeights = InstructionWeights{R: 1, I: 1, U: 1, J: 1, B: 1, S: 1, L: 1}

// DataGenerationStrategy names the supported data-region fill strategies.
type DataGenerationStrategy string

const (
	DataZeroes      DataGenerationStrategy = "zeroes"
	DataRandom      DataGenerationStrategy = "random"
	DataIterative32 DataGenerationStrategy = "iterative32"
)
