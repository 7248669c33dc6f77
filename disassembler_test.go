package gigue

import "testing"

func TestDisassembleReturnsMnemonic(t *testing.T) {
	d := Disassembler{}
	in, err := Add(S0, A0, A1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Disassemble(in.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != "add" {
		t.Fatalf("got %q, want %q", got, "add")
	}
}

func TestDisassembleRejectsGarbage(t *testing.T) {
	d := Disassembler{}
	if _, err := d.Disassemble(0xFFFFFFFF); err == nil {
		t.Fatal("expected an error for an unrecognized encoding")
	}
}

func TestExtractFieldsMatchEncode(t *testing.T) {
	d := Disassembler{}
	in, err := Add(S2, A0, A1)
	if err != nil {
		t.Fatal(err)
	}
	word := in.Encode()
	if d.ExtractRd(word) != S2 {
		t.Errorf("rd: got %d want %d", d.ExtractRd(word), uint32(S2))
	}
	if d.ExtractRs1(word) != A0 {
		t.Errorf("rs1: got %d want %d", d.ExtractRs1(word), uint32(A0))
	}
	if d.ExtractRs2(word) != A1 {
		t.Errorf("rs2: got %d want %d", d.ExtractRs2(word), uint32(A1))
	}
}
