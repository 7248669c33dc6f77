package rimi

import "github.com/xyproto/gigue"

// ShadowStackBuilder wraps a base gigue.Builder and extends the two JIT
// trampolines with a shadow stack: the call side pushes the return
// address before handing off, the return side pops and restores it
// before returning through the base builder's ret. Everything else is
// forwarded unchanged to the embedded Builder. Grounded on
// rimi_generator.py's RIMIShadowStackTrampolineGenerator, translated
// from subclassing to embedding.
type ShadowStackBuilder struct {
	gigue.Builder
}

var _ gigue.Builder = ShadowStackBuilder{}

// NewShadowStackBuilder wraps base with shadow-stack call/return trampolines.
func NewShadowStackBuilder(base gigue.Builder) ShadowStackBuilder {
	return ShadowStackBuilder{Builder: base}
}

// BuildCallJitEltTrampoline pushes ra onto the shadow stack (sd then
// post-increment sp-style pointer bump) before the base jump to
// CallTmpReg.
func (b ShadowStackBuilder) BuildCallJitEltTrampoline() []gigue.Instruction {
	push, _ := gigue.Sd(SSPReg, gigue.RA, 0)
	bump, _ := gigue.Addi(SSPReg, SSPReg, ShadowStackSlotSize)
	return append([]gigue.Instruction{push, bump}, b.Builder.BuildCallJitEltTrampoline()...)
}

// BuildRetFromJitEltTrampoline pre-decrements the shadow stack pointer
// and restores ra from it before the base builder's return sequence.
func (b ShadowStackBuilder) BuildRetFromJitEltTrampoline() []gigue.Instruction {
	decrement, _ := gigue.Addi(SSPReg, SSPReg, -ShadowStackSlotSize)
	pop, _ := gigue.Ld(gigue.RA, SSPReg, 0)
	return append([]gigue.Instruction{decrement, pop}, b.Builder.BuildRetFromJitEltTrampoline()...)
}

// FullBuilder wraps ShadowStackBuilder, additionally bracketing every
// call/return with the custom domain-switch instruction — the "full"
// RIMI isolation mode that swaps register files, not just stacks, across
// a call. Grounded on RIMIFullTrampolineGenerator's further builder swap.
type FullBuilder struct {
	ShadowStackBuilder
	// DomainIDReg holds the callee's domain id, staged by the caller the
	// same way CallTmpReg stages the call target.
	DomainIDReg uint32
	// SavedDomainReg receives the caller's domain id across the call so
	// the return path can restore it.
	SavedDomainReg uint32
}

var _ gigue.Builder = FullBuilder{}

// NewFullBuilder wraps base with shadow-stack and domain-switch trampolines.
func NewFullBuilder(base gigue.Builder, domainIDReg, savedDomainReg uint32) FullBuilder {
	return FullBuilder{
		ShadowStackBuilder: NewShadowStackBuilder(base),
		DomainIDReg:        domainIDReg,
		SavedDomainReg:     savedDomainReg,
	}
}

// BuildCallJitEltTrampoline pushes the shadow stack, then switches into
// the callee's domain before the base jump.
func (b FullBuilder) BuildCallJitEltTrampoline() []gigue.Instruction {
	base := b.ShadowStackBuilder.BuildCallJitEltTrampoline()
	enter, _ := DomainSwitchEnter(b.SavedDomainReg, b.DomainIDReg)
	return append([]gigue.Instruction{enter}, base...)
}

// BuildRetFromJitEltTrampoline restores the caller's domain before
// popping the shadow stack and returning.
func (b FullBuilder) BuildRetFromJitEltTrampoline() []gigue.Instruction {
	exit, _ := DomainSwitchExit(b.SavedDomainReg)
	base := b.ShadowStackBuilder.BuildRetFromJitEltTrampoline()
	return append([]gigue.Instruction{exit}, base...)
}
