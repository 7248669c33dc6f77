package gigue

import (
	"math/rand"
	"testing"
)

func TestNewPICLaysOutSwitchTableAndCases(t *testing.T) {
	sizes := []int{10, 10, 10}
	calls := []int{0, 0, 0}
	callSizes := []int{CallSizeBase, CallSizeBase, CallSizeBase}
	p, err := NewPIC(0x4000, 0, sizes, calls, callSizes, 4)
	if err != nil {
		t.Fatal(err)
	}
	if p.CaseNumber() != 3 {
		t.Fatalf("expected 3 cases, got %d", p.CaseNumber())
	}
	if len(p.switchTable) != 9 {
		t.Fatalf("expected a 3-instruction switch entry per case (9 total), got %d", len(p.switchTable))
	}
	for i, c := range p.Cases() {
		// The jal is the entry's third instruction; its offset is
		// relative to its own address, not the entry's start.
		jalAddr := p.address + uint64(i*3)*4 + 8
		wantOffset := int64(c.Address()) - int64(jalAddr)
		gotOffset := int64(p.switchTable[i*3+2].Imm)
		if gotOffset != wantOffset {
			t.Errorf("case %d: switch jump offset %d, want %d", i, gotOffset, wantOffset)
		}
	}
}

func TestPICSwitchJumpLandsOnCaseEntry(t *testing.T) {
	sizes := []int{10, 10, 10}
	calls := []int{0, 0, 0}
	callSizes := []int{CallSizeBase, CallSizeBase, CallSizeBase}
	p, err := NewPIC(0x4000, 0, sizes, calls, callSizes, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range p.Cases() {
		jalAddr := p.address + uint64(i*3)*4 + 8
		target := int64(jalAddr) + int64(p.switchTable[i*3+2].Imm)
		if uint64(target) != c.Address() {
			t.Errorf("case %d: jal targets 0x%x, want case entry 0x%x", i, target, c.Address())
		}
	}
}

func TestPICGenerateBytesMatchesTotalSize(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	sizes := []int{12, 12}
	calls := []int{0, 0}
	callSizes := []int{CallSizeBase, CallSizeBase}
	p, err := NewPIC(0x4000, 0, sizes, calls, callSizes, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.FillBodies(r, InstructionBuilder{}, DefaultRegisters, DataReg, 4096, DefaultInstructionWeights, 4); err != nil {
		t.Fatal(err)
	}
	bytes := p.GenerateBytes()
	if len(bytes) != p.TotalSize()*4 {
		t.Fatalf("byte length %d != TotalSize*4 %d", len(bytes), p.TotalSize()*4)
	}
}

func TestNewPICRejectsZeroCases(t *testing.T) {
	if _, err := NewPIC(0x4000, 0, nil, nil, nil, 4); err == nil {
		t.Fatal("expected EmptySectionError for zero cases")
	}
}
