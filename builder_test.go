package gigue

import (
	"math/rand"
	"testing"
)

func TestSplitOffsetRoundTrips(t *testing.T) {
	offsets := []int64{8, 100, -100, 4096, -4096, 1 << 20, -(1 << 20), 0x7FFFF000}
	for _, offset := range offsets {
		low, high, err := SplitOffset(offset)
		if err != nil {
			t.Fatalf("SplitOffset(%d): %v", offset, err)
		}
		got := int64(int32(high)) + int64(low)
		if got != offset {
			t.Errorf("SplitOffset(%d) = (low=%d, high=%d), recombined %d", offset, low, high, got)
		}
	}
}

func TestSplitOffsetRejectsTinyMagnitude(t *testing.T) {
	for _, offset := range []int64{0, 1, -1, 7, -7} {
		if _, _, err := SplitOffset(offset); err == nil {
			t.Errorf("SplitOffset(%d): expected WrongOffsetError", offset)
		}
	}
}

func TestSizeOffsetStaysAligned(t *testing.T) {
	for _, max := range []int{0, 4, 8, 12, 40, 100} {
		for _, offset := range sizeOffset(max) {
			if offset > max {
				t.Errorf("sizeOffset(%d) produced %d > max", max, offset)
			}
			if offset%4 != 0 {
				t.Errorf("sizeOffset(%d) produced unaligned %d", max, offset)
			}
		}
	}
}

func TestBuildRandomJInstructionDeclinesWhenNoRoom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	if _, err := BuildRandomJInstruction(r, DefaultRegisters, 0); err == nil {
		t.Fatal("expected decline for maxOffset=0")
	}
}

func TestBuildRandomInstructionNeverReturnsAnError(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	b := InstructionBuilder{}
	for i := 0; i < 500; i++ {
		if _, err := b.BuildRandomInstruction(r, DefaultRegisters, 4, DataReg, 4096, DefaultInstructionWeights); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
}

func TestBuildMethodBaseCallProducesTwoInstructions(t *testing.T) {
	b := InstructionBuilder{}
	seq, err := b.BuildMethodBaseCall(1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(seq))
	}
	if seq[0].Mnemonic != "auipc" || seq[1].Mnemonic != "jalr" {
		t.Fatalf("unexpected sequence: %+v", seq)
	}
}

func TestBuildMethodTrampolineCallProducesFourInstructions(t *testing.T) {
	b := InstructionBuilder{}
	seq, err := b.BuildMethodTrampolineCall(2000, -500)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(seq))
	}
}

func TestBuildSwitchCaseUsesBneNotBeq(t *testing.T) {
	b := InstructionBuilder{}
	seq, err := b.BuildSwitchCase(3, 64, HitCaseReg, CmpReg)
	if err != nil {
		t.Fatal(err)
	}
	if seq[1].Mnemonic != "bne" {
		t.Fatalf("expected bne as the skip instruction, got %s", seq[1].Mnemonic)
	}
}

func TestPrologueEpilogueAreInverses(t *testing.T) {
	b := InstructionBuilder{}
	prologue := b.BuildPrologue(4, 0, true)
	epilogue := b.BuildEpilogue(4, 0, true)
	// addi sp,sp,-N ... then the epilogue's final addi sp,sp,+N must cancel.
	dec := prologue[0]
	inc := epilogue[len(epilogue)-2]
	if dec.Imm != -inc.Imm {
		t.Fatalf("stack adjustment mismatch: prologue %d, epilogue %d", dec.Imm, inc.Imm)
	}
	if epilogue[len(epilogue)-1].Mnemonic != "jalr" {
		t.Fatalf("epilogue must end in ret (jalr), got %s", epilogue[len(epilogue)-1].Mnemonic)
	}
}
