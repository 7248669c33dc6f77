package rimi

import "github.com/xyproto/gigue"

// filterRegister returns regs with every occurrence of excluded removed.
func filterRegister(regs []uint32, excluded uint32) []uint32 {
	out := make([]uint32, 0, len(regs))
	for _, r := range regs {
		if r != excluded {
			out = append(out, r)
		}
	}
	return out
}

// NewShadowStackConfig adapts a base gigue.Config into one that drives a
// shadow-stack-only RIMI run: SSPReg is pulled out of the general
// register pool (so random-fill instructions never clobber it) and
// base.Builder is wrapped in ShadowStackBuilder. Grounded on
// RIMIShadowStackTrampolineGenerator's constructor, which does both of
// these before delegating to the base Generator.
func NewShadowStackConfig(base gigue.Config) gigue.Config {
	cfg := base
	cfg.UseTrampolines = true
	cfg.Registers = filterRegister(cfg.Registers, SSPReg)
	inner := cfg.Builder
	if inner == nil {
		inner = gigue.InstructionBuilder{}
	}
	cfg.Builder = NewShadowStackBuilder(inner)
	return cfg
}

// NewFullConfig further layers domain-switch behavior over
// NewShadowStackConfig, pulling domainIDReg/savedDomainReg out of the
// register pool the same way SSPReg is. Grounded on
// RIMIFullTrampolineGenerator.
func NewFullConfig(base gigue.Config, domainIDReg, savedDomainReg uint32) gigue.Config {
	cfg := NewShadowStackConfig(base)
	cfg.Registers = filterRegister(filterRegister(cfg.Registers, domainIDReg), savedDomainReg)
	inner := cfg.Builder.(ShadowStackBuilder).Builder
	cfg.Builder = NewFullBuilder(inner, domainIDReg, savedDomainReg)
	return cfg
}

// ShadowStackImage extends gigue.Image with the shadow stack region
// RIMI's trampolines read and write. Grounded on
// generate_shadowstack_binary/write_shadowstack_binary.
type ShadowStackImage struct {
	gigue.Image
	ShadowStackAddress uint64
	ShadowStack        []byte
}

// Assemble packages g's image together with a zero-initialized shadow
// stack region of the given size at shadowStackAddress. The shadow stack
// always starts zeroed (never randomized like the data region) since its
// contents are addresses the trampolines themselves will write.
func Assemble(g *gigue.Generator, shadowStackAddress uint64, shadowStackSize int) ShadowStackImage {
	return ShadowStackImage{
		Image:              g.Assemble(),
		ShadowStackAddress: shadowStackAddress,
		ShadowStack:        make([]byte, shadowStackSize),
	}
}
