package gigue

import (
	"math/rand"
	"testing"
)

func TestNewMethodRejectsZeroBodySize(t *testing.T) {
	if _, err := NewMethod(0x1000, 0, 0, 0, CallSizeBase, 4); err == nil {
		t.Fatal("expected EmptySectionError")
	}
}

func TestNewMethodRejectsOversizedCallBudget(t *testing.T) {
	if _, err := NewMethod(0x1000, 0, 10, 10, CallSizeBase, 4); err == nil {
		t.Fatal("expected CallNumberError: 10 calls * 3 slots > 10 body instructions")
	}
}

func TestMethodFillBodyProducesExactTotalSize(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	m, err := NewMethod(0x1000, 0, 30, 2, CallSizeBase, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.FillBody(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	if len(m.Instructions()) != m.TotalSize() {
		t.Fatalf("instruction count %d != TotalSize %d", len(m.Instructions()), m.TotalSize())
	}
}

func TestMethodCallSlotsLandOnReservedBoundaries(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	m, err := NewMethod(0x1000, 0, 60, 3, CallSizeBase, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.FillBody(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	if len(m.callSiteIndices) != 3 {
		t.Fatalf("expected 3 call slots, got %d", len(m.callSiteIndices))
	}
	for i := 1; i < len(m.callSiteIndices); i++ {
		if m.callSiteIndices[i] != m.callSiteIndices[i-1]+CallSizeBase {
			t.Fatalf("call slots are not contiguous: %v", m.callSiteIndices)
		}
	}
}

func TestPatchCallsRejectsRecursion(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	m, err := NewMethod(0x1000, 1, 30, 1, CallSizeBase, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.FillBody(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	noTrampoline := func() (uint64, bool) { return 0, false }
	err = m.PatchCalls(r, InstructionBuilder{}, []Callable{m}, noTrampoline)
	if err == nil {
		t.Fatal("expected RecursiveCallError")
	}
	if _, ok := err.(*RecursiveCallError); !ok {
		t.Fatalf("expected *RecursiveCallError, got %T", err)
	}
}

func TestPatchCallsRejectsCallNumberMismatch(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	m, err := NewMethod(0x1000, 1, 30, 2, CallSizeBase, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.FillBody(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	leaf, err := NewMethod(0x2000, 0, 4, 0, CallSizeBase, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := leaf.FillBody(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	noTrampoline := func() (uint64, bool) { return 0, false }
	err = m.PatchCalls(r, InstructionBuilder{}, []Callable{leaf}, noTrampoline)
	if _, ok := err.(*CallNumberError); !ok {
		t.Fatalf("expected *CallNumberError, got %v", err)
	}
}

func TestPatchCallsWritesValidCallSequence(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	leaf, err := NewMethod(0x2000, 0, 10, 0, CallSizeBase, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := leaf.FillBody(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	caller, err := NewMethod(0x1000, 1, 30, 1, CallSizeBase, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := caller.FillBody(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	noTrampoline := func() (uint64, bool) { return 0, false }
	if err := caller.PatchCalls(r, InstructionBuilder{}, []Callable{leaf}, noTrampoline); err != nil {
		t.Fatal(err)
	}
	slot := caller.callSiteIndices[0]
	if caller.instructions[slot].Mnemonic != "auipc" {
		t.Fatalf("expected patched slot to start with auipc, got %s", caller.instructions[slot].Mnemonic)
	}
}
