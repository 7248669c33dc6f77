package gigue

import "math/rand"

// Method is one JIT-callable code element: a prologue, a random-filled
// body carrying call_number reserved call slots bunched at its tail, and
// an epilogue. Grounded on generator.py's fill_with_instructions /
// patch_method_calls and builder.py's build_prologue/build_epilogue.
type Method struct {
	address    uint64
	callDepth  int
	bodySize   int // instructions, excludes prologue/epilogue
	callNumber int
	callSize   int // CallSizeBase or CallSizeTrampoline

	instructions []Instruction
	prologueLen  int
	epilogueLen  int

	// callSiteIndices[i] is the instruction index (within instructions)
	// where the i-th reserved call slot begins.
	callSiteIndices []int
	patched         bool

	// callees is set by PatchCalls, in slot order, for callers that need
	// to walk the call graph (e.g. to confirm it stays acyclic).
	callees []Callable
}

// NewMethod validates the sizes and emits the method's prologue. FillBody,
// called separately, appends the random body instructions, the
// call_number*call_size nop-filled call slots bunched at the tail of the
// body, and the epilogue.
func NewMethod(address uint64, callDepth, bodySize, callNumber, callSize int, usedSRegs int) (*Method, error) {
	if bodySize <= 0 {
		return nil, &EmptySectionError{Address: address}
	}
	if callNumber*callSize > bodySize {
		return nil, &CallNumberError{Expected: bodySize / callSize, Got: callNumber}
	}
	m := &Method{
		address:    address,
		callDepth:  callDepth,
		bodySize:   bodySize,
		callNumber: callNumber,
		callSize:   callSize,
	}
	containsCall := callNumber > 0
	prologue := InstructionBuilder{}.BuildPrologue(usedSRegs, 0, containsCall)
	epilogue := InstructionBuilder{}.BuildEpilogue(usedSRegs, 0, containsCall)
	m.prologueLen = len(prologue)
	m.epilogueLen = len(epilogue)

	m.instructions = make([]Instruction, 0, len(prologue)+bodySize+len(epilogue))
	m.instructions = append(m.instructions, prologue...)
	return m, nil
}

// Address is the method's first-instruction address.
func (m *Method) Address() uint64 { return m.address }

// CallDepth is this method's position in the call-depth DAG.
func (m *Method) CallDepth() int { return m.callDepth }

// CallNumber is how many call slots this method reserves.
func (m *Method) CallNumber() int { return m.callNumber }

// TotalSize is the method's total instruction count (prologue+body+epilogue).
func (m *Method) TotalSize() int { return m.prologueLen + m.bodySize + m.epilogueLen }

// IsPIC reports false for a plain Method.
func (m *Method) IsPIC() bool { return false }

// CaseNumber is 0 for a plain Method (only PICs have cases).
func (m *Method) CaseNumber() int { return 0 }

// FillBody draws random-format instructions for the whole non-call
// portion of the body, then appends call_number*call_size nop
// placeholders bunched at the tail, then the epilogue. max_offset passed
// to each random draw is measured to the end of the body (not the
// method), so no jump generated here can escape past the call-slot
// block. A jump or branch whose target would fall inside a call slot
// rather than on its first instruction is drawn again.
func (m *Method) FillBody(r *rand.Rand, builder Builder, registers []uint32, dataReg uint32, dataSize int, weights InstructionWeights, usedSRegs int) error {
	randomCount := m.bodySize - m.callNumber*m.callSize
	for i := 0; i < randomCount; i++ {
		maxOffset := (m.bodySize - i) * 4
		var instr Instruction
		for {
			var err error
			instr, err = builder.BuildRandomInstruction(r, registers, maxOffset, dataReg, dataSize, weights)
			if err != nil {
				return err
			}
			if instr.Format != FormatJ && instr.Format != FormatB {
				break
			}
			target := i + int(instr.Imm)/4
			if target <= randomCount || (target-randomCount)%m.callSize == 0 {
				break
			}
		}
		m.instructions = append(m.instructions, instr)
	}
	m.callSiteIndices = make([]int, 0, m.callNumber)
	for i := 0; i < m.callNumber; i++ {
		m.callSiteIndices = append(m.callSiteIndices, len(m.instructions))
		for j := 0; j < m.callSize; j++ {
			m.instructions = append(m.instructions, builder.BuildNop())
		}
	}
	containsCall := m.callNumber > 0
	m.instructions = append(m.instructions, InstructionBuilder{}.BuildEpilogue(usedSRegs, 0, containsCall)...)
	return nil
}

// Callable is anything a call slot can target: a Method or a PIC.
type Callable interface {
	Address() uint64
	CallDepth() int
	TotalSize() int
	IsPIC() bool
	CaseNumber() int
	GenerateBytes() []byte
	// Callees returns whatever this element was patched to call, in slot
	// order (case order, for a PIC). Empty until PatchCalls has run.
	Callees() []Callable
}

// PatchCalls fills each reserved call slot with a real call sequence
// aimed at its callee, padding any unused slot tail with nops.
// trampolineAddr, when its bool is true, gives the shared call_jit_elt
// trampoline's address and every slot routes through it regardless of
// callee kind; when false every slot gets a direct base/pic call. Either
// way call_size is uniform across the method, which is what makes the
// random-fill alignment trick (builder.go's sizeOffset) land jumps only
// on call-slot boundaries.
func (m *Method) PatchCalls(r *rand.Rand, builder Builder, callees []Callable, trampolineAddr func() (uint64, bool)) error {
	if len(callees) != m.callNumber {
		return &CallNumberError{Expected: m.callNumber, Got: len(callees)}
	}
	for i, callee := range callees {
		if callee.Address() == m.address {
			return &RecursiveCallError{Address: m.address}
		}
		if callee.CallDepth() >= m.callDepth {
			return &MutualCallError{Caller: m.address, Callee: callee.Address()}
		}
		slotStart := m.callSiteIndices[i]
		slotAddr := m.address + uint64(slotStart)*4

		var seq []Instruction
		var err error
		if callee.IsPIC() {
			hitCase := int32(r.Intn(callee.CaseNumber()))
			tag, tagErr := Addi(HitCaseReg, Zero, hitCase)
			if tagErr != nil {
				return tagErr
			}
			seq = []Instruction{tag}
			slotAddr += 4
		}
		if trampAddr, ok := trampolineAddr(); ok {
			// The staging auipc+addi occupy the jump's first two
			// instructions; the trampoline-jumping auipc is the third.
			trampAuipcAddr := slotAddr + 8
			jump, jumpErr := builder.BuildMethodTrampolineCall(int64(callee.Address())-int64(slotAddr), int64(trampAddr)-int64(trampAuipcAddr))
			seq, err = append(seq, jump...), jumpErr
		} else {
			jump, jumpErr := builder.BuildMethodBaseCall(int64(callee.Address()) - int64(slotAddr))
			seq, err = append(seq, jump...), jumpErr
		}
		if err != nil {
			return err
		}
		if len(seq) > m.callSize {
			return &WrongAddressError{Reason: "call sequence overflows its reserved slot"}
		}
		for j, instr := range seq {
			m.instructions[slotStart+j] = instr
		}
		for j := len(seq); j < m.callSize; j++ {
			m.instructions[slotStart+j] = builder.BuildNop()
		}
	}
	m.callees = callees
	m.patched = true
	return nil
}

// Callees exposes the callees this method was patched to call, in slot
// order. Empty until PatchCalls has run.
func (m *Method) Callees() []Callable { return m.callees }

// GenerateBytes emits the method's full instruction stream as machine code.
func (m *Method) GenerateBytes() []byte {
	out := make([]byte, 0, len(m.instructions)*4)
	for _, in := range m.instructions {
		out = append(out, in.GenerateBytes()...)
	}
	return out
}

// Instructions exposes the method's instruction stream, e.g. for the
// disassembler or tests.
func (m *Method) Instructions() []Instruction { return m.instructions }
