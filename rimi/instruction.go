package rimi

import (
	"fmt"

	"github.com/xyproto/gigue"
)

func checkReg(name string, reg uint32) error {
	if reg > 31 {
		return fmt.Errorf("rimi: %s register out of range: %d", name, reg)
	}
	return nil
}

// DomainSwitchEnter is the custom-0-opcode instruction a call-side
// trampoline issues to cross into the callee's isolation domain:
// rs1 carries the target domain id, rd receives the caller's prior
// domain id (so the matching exit instruction can restore it).
func DomainSwitchEnter(rd, rs1 uint32) (gigue.Instruction, error) {
	if err := checkReg("dswitch.enter", rd); err != nil {
		return gigue.Instruction{}, err
	}
	if err := checkReg("dswitch.enter", rs1); err != nil {
		return gigue.Instruction{}, err
	}
	return gigue.Instruction{
		Format: gigue.FormatR, Mnemonic: "dswitch.enter",
		Opcode: DomainSwitchOpcode, Funct3: 0x0, Funct7: domainSwitchEnterFunct7,
		Rd: rd, Rs1: rs1,
	}, nil
}

// DomainSwitchExit restores the domain id rs1 was given by the matching
// DomainSwitchEnter, on the return-side trampoline.
func DomainSwitchExit(rs1 uint32) (gigue.Instruction, error) {
	if err := checkReg("dswitch.exit", rs1); err != nil {
		return gigue.Instruction{}, err
	}
	return gigue.Instruction{
		Format: gigue.FormatR, Mnemonic: "dswitch.exit",
		Opcode: DomainSwitchOpcode, Funct3: 0x0, Funct7: domainSwitchExitFunct7,
		Rd: gigue.Zero, Rs1: rs1,
	}, nil
}
