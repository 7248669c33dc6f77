package gigue

import "fmt"

// The error kinds from spec.md §7. Each is a small typed value rather than
// a bare sentinel so a caller can errors.As() the one it cares about and
// read the offending values back out — the teacher's own constructors
// (riscv64_instructions.go) only ever needed one error shape per function
// and used fmt.Errorf directly; gigue's generator needs to tell seven
// kinds apart, so each gets a type.

// EncodingError reports an immediate or register out of the range its
// instruction format allows. Well-formed builder output never triggers
// this; it is a bug indicator.
type EncodingError struct {
	Mnemonic string
	Field    string
	Value    int64
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %s field %s out of range (value %d)", e.Mnemonic, e.Field, e.Value)
}

// WrongOffsetError is raised when a call offset's magnitude is too small
// to be split into an auipc/jalr pair (abs(offset) < 8).
type WrongOffsetError struct {
	Offset int64
}

func (e *WrongOffsetError) Error() string {
	return fmt.Sprintf("call offset should be at least 8 in magnitude (currently %d)", e.Offset)
}

// EmptySectionError is raised when a method or PIC is sized to zero
// instructions by the variation draw.
type EmptySectionError struct {
	Address uint64
}

func (e *EmptySectionError) Error() string {
	return fmt.Sprintf("element at address 0x%x was sized to zero instructions", e.Address)
}

// CallNumberError is raised when the number of callees handed to
// patch_calls does not match the method's planned call_number.
type CallNumberError struct {
	Expected, Got int
}

func (e *CallNumberError) Error() string {
	return fmt.Sprintf("call number mismatch: expected %d callees, got %d", e.Expected, e.Got)
}

// RecursiveCallError is raised when a method would call itself.
type RecursiveCallError struct {
	Address uint64
}

func (e *RecursiveCallError) Error() string {
	return fmt.Sprintf("method at address 0x%x cannot call itself", e.Address)
}

// MutualCallError is raised when a callee already (transitively) calls
// its prospective caller, which the call-depth invariant should have
// made structurally impossible.
type MutualCallError struct {
	Caller, Callee uint64
}

func (e *MutualCallError) Error() string {
	return fmt.Sprintf("mutual call detected between 0x%x and 0x%x", e.Caller, e.Callee)
}

// WrongAddressError is raised when the interpreter region would overrun
// the JIT region, or an element would cross the end of its allotted
// region.
type WrongAddressError struct {
	Reason string
}

func (e *WrongAddressError) Error() string {
	return "wrong address: " + e.Reason
}

// UnknownInstructionError is disassembler-side only; the generator never
// raises it.
type UnknownInstructionError struct {
	Word uint32
}

func (e *UnknownInstructionError) Error() string {
	return fmt.Sprintf("unknown instruction encoding: 0x%08x", e.Word)
}
