package gigue

import "math/rand"

// PIC is a polymorphic inline cache: a switch-case table (one
// addi+bne+jal triple per case) followed by caseNumber independent
// method bodies, one per case. A caller's call slot (Method.PatchCalls)
// tags the desired case into HitCaseReg before jumping to the switch
// table's start. Grounded on builder.py's build_switch_case and
// generator.py's add_pic (which builds one Method-shaped body per case).
type PIC struct {
	address    uint64
	callDepth  int
	caseNumber int

	switchTable []Instruction
	cases       []*Method
}

// NewPIC lays out a PIC's switch table and its per-case method bodies.
// caseBodySizes/caseCallNumbers/caseCallSizes are parallel slices, one
// entry per case, sized by the caller the way generator.go sizes a plain
// Method.
func NewPIC(address uint64, callDepth int, caseBodySizes, caseCallNumbers, caseCallSizes []int, usedSRegs int) (*PIC, error) {
	caseNumber := len(caseBodySizes)
	if caseNumber == 0 {
		return nil, &EmptySectionError{Address: address}
	}
	p := &PIC{address: address, callDepth: callDepth, caseNumber: caseNumber}

	switchTableInstrs := caseNumber * 3
	cursor := address + uint64(switchTableInstrs)*4
	p.cases = make([]*Method, 0, caseNumber)
	for i := 0; i < caseNumber; i++ {
		m, err := NewMethod(cursor, callDepth, caseBodySizes[i], caseCallNumbers[i], caseCallSizes[i], usedSRegs)
		if err != nil {
			return nil, err
		}
		p.cases = append(p.cases, m)
		cursor += uint64(m.TotalSize()) * 4
	}

	builder := InstructionBuilder{}
	p.switchTable = make([]Instruction, 0, switchTableInstrs)
	for i := 0; i < caseNumber; i++ {
		entryAddr := address + uint64(i*3)*4
		// The jal that consumes methodOffset is the entry's third
		// instruction; jal's target is PC_of_jal + imm, so the offset must
		// be relative to entryAddr+8, not the entry's start.
		jalAddr := entryAddr + 8
		methodOffset := int64(p.cases[i].Address()) - int64(jalAddr)
		entry, err := builder.BuildSwitchCase(int32(i), int32(methodOffset), HitCaseReg, CmpReg)
		if err != nil {
			return nil, err
		}
		p.switchTable = append(p.switchTable, entry...)
	}
	return p, nil
}

// Address is the PIC's first instruction (the switch table's start).
func (p *PIC) Address() uint64 { return p.address }

// CallDepth is the PIC's position in the call-depth DAG: all of its
// cases share it, since a caller targets the PIC as a whole.
func (p *PIC) CallDepth() int { return p.callDepth }

// IsPIC always reports true.
func (p *PIC) IsPIC() bool { return true }

// CaseNumber is how many switch cases this PIC offers.
func (p *PIC) CaseNumber() int { return p.caseNumber }

// TotalSize is the switch table plus every case body, in instructions.
func (p *PIC) TotalSize() int {
	total := len(p.switchTable)
	for _, c := range p.cases {
		total += c.TotalSize()
	}
	return total
}

// Cases exposes the per-case method bodies so the generator can fill and
// patch them like any other Method.
func (p *PIC) Cases() []*Method { return p.cases }

// Callees exposes every callee patched into any case, for callers walking
// the call graph. Empty until PatchCalls has run.
func (p *PIC) Callees() []Callable {
	var out []Callable
	for _, c := range p.cases {
		out = append(out, c.Callees()...)
	}
	return out
}

// FillBodies fills every case's random body. Each case draws its own
// registers/weights the same way a plain Method would.
func (p *PIC) FillBodies(r *rand.Rand, builder Builder, registers []uint32, dataReg uint32, dataSize int, weights InstructionWeights, usedSRegs int) error {
	for _, c := range p.cases {
		if err := c.FillBody(r, builder, registers, dataReg, dataSize, weights, usedSRegs); err != nil {
			return err
		}
	}
	return nil
}

// PatchCalls patches every case's call slots. calleesByCase[i] are the
// callees for case i, in slot order.
func (p *PIC) PatchCalls(r *rand.Rand, builder Builder, calleesByCase [][]Callable, trampolineAddr func() (uint64, bool)) error {
	if len(calleesByCase) != len(p.cases) {
		return &CallNumberError{Expected: len(p.cases), Got: len(calleesByCase)}
	}
	for i, c := range p.cases {
		if err := c.PatchCalls(r, builder, calleesByCase[i], trampolineAddr); err != nil {
			return err
		}
	}
	return nil
}

// GenerateBytes emits the switch table followed by every case body.
func (p *PIC) GenerateBytes() []byte {
	out := make([]byte, 0, p.TotalSize()*4)
	for _, in := range p.switchTable {
		out = append(out, in.GenerateBytes()...)
	}
	for _, c := range p.cases {
		out = append(out, c.GenerateBytes()...)
	}
	return out
}
