package gigue

import "math/rand"

// Dataminer fills the data region random instructions load from and
// store into. Grounded on generator.py's data-generation branch inside
// generate_data_machine_code/generate_data_bytes, expanded into named
// strategies per SPEC_FULL.md (the original only ever inlined the
// "random" case; zeroes and iterative32 are supplemented here because
// they are trivial, useful baselines for a RIMI isolation fuzzer wanting
// reproducible memory contents to diff across domains).
type Dataminer struct{}

// Generate produces size bytes of data-region content per strategy.
func (Dataminer) Generate(r *rand.Rand, size int, strategy DataGenerationStrategy) []byte {
	out := make([]byte, size)
	switch strategy {
	case DataZeroes:
		// already zero-valued
	case DataIterative32:
		for i := 0; i+4 <= size; i += 4 {
			v := uint32(i / 4)
			out[i] = byte(v)
			out[i+1] = byte(v >> 8)
			out[i+2] = byte(v >> 16)
			out[i+3] = byte(v >> 24)
		}
	case DataRandom:
		fallthrough
	default:
		r.Read(out)
	}
	return out
}
