// Package rimi overlays gigue's base instruction builder with the
// shadow-stack and domain-switch behavior RIMI (a register-isolation
// hardware extension) needs its call/return trampolines to exercise.
// It wraps gigue.Builder rather than subclassing the base generator —
// dependency injection standing in for the original's InstructionBuilder
// subclass chain (rimi_builder.py), since Go has no inheritance.
package rimi

// SSPReg is the shadow stack pointer: x28/t3, removed from the general
// random-instruction register pool so ordinary random instructions never
// clobber it. rimi_generator.py's ShadowStackTrampolineGenerator does the
// analogous removal from self.registers.
const SSPReg = 28

// ShadowStackSlotSize is the width, in bytes, of one shadow-stack entry
// (a single saved return address).
const ShadowStackSlotSize = 8

// DefaultShadowStackSize is the default shadow stack region size in bytes.
const DefaultShadowStackSize = 4 * 1024

// DomainSwitchOpcode is RISC-V's custom-0 reserved opcode (0001011),
// the vendor-extension slot the unprivileged spec sets aside for exactly
// this kind of non-standard instruction. The original rimi_constants.py
// was not available to ground this encoding on directly (filtered out
// of the retrieved source), so the opcode choice is this module's own
// Open Question resolution — recorded in DESIGN.md — rather than a port.
const DomainSwitchOpcode = 0x0B

// funct7 values distinguishing the two domain-switch instructions built
// on DomainSwitchOpcode.
const (
	domainSwitchEnterFunct7 = 0x01
	domainSwitchExitFunct7  = 0x02
)
