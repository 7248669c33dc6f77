package gigue

// Trampoline is a fixed-address indirection stub the generator lays down
// once, shared by every patched call site in trampoline mode. Its body
// comes straight from the injected Builder, so the rimi package can swap
// in a shadow-stack/domain-switch variant without touching the generator
// (see DESIGN.md's dependency-injection note on builder.go's Builder
// interface). Grounded on builder.py's build_call_jit_elt_trampoline /
// build_ret_from_jit_elt_trampoline.
type Trampoline struct {
	name         string
	address      uint64
	instructions []Instruction
}

// NewCallJitEltTrampoline builds the call-side trampoline: the caller
// has already staged the callee address in CallTmpReg, so this just
// jumps to it (or, under RIMI, pushes a shadow-stack frame first).
func NewCallJitEltTrampoline(address uint64, builder Builder) *Trampoline {
	return &Trampoline{
		name:         TrampolineCallJitElt,
		address:      address,
		instructions: builder.BuildCallJitEltTrampoline(),
	}
}

// NewRetFromJitEltTrampoline builds the return-side trampoline.
func NewRetFromJitEltTrampoline(address uint64, builder Builder) *Trampoline {
	return &Trampoline{
		name:         TrampolineRetFromJitElt,
		address:      address,
		instructions: builder.BuildRetFromJitEltTrampoline(),
	}
}

// Name is the trampoline's lookup key (TrampolineCallJitElt or
// TrampolineRetFromJitElt).
func (t *Trampoline) Name() string { return t.name }

// Address is the trampoline's first-instruction address.
func (t *Trampoline) Address() uint64 { return t.address }

// TotalSize is the trampoline's instruction count.
func (t *Trampoline) TotalSize() int { return len(t.instructions) }

// GenerateBytes emits the trampoline's machine code.
func (t *Trampoline) GenerateBytes() []byte {
	out := make([]byte, 0, len(t.instructions)*4)
	for _, in := range t.instructions {
		out = append(out, in.GenerateBytes()...)
	}
	return out
}
