package gigue

import "testing"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 99
	cfg.JitStartAddress = 0x2000
	cfg.JitSize = 8 * 1024
	cfg.InterpreterStartAddress = 0x1000
	cfg.InterpreterSize = 2 * 1024
	cfg.DataSize = 1024
	cfg.MethodBodySizeMean = 15
	cfg.MethodBodySizeStd = 8
	cfg.MethodBodySizeMin = 4
	cfg.MethodBodySizeMax = 40
	return cfg
}

func TestGeneratorRunProducesNonEmptyImage(t *testing.T) {
	gen, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := gen.Run(); err != nil {
		t.Fatal(err)
	}
	img := gen.Assemble()
	if len(img.Bytes) == 0 {
		t.Fatal("expected a non-empty image")
	}
	if len(img.Data) != 1024 {
		t.Fatalf("expected 1024 bytes of data, got %d", len(img.Data))
	}
}

// TestGeneratorImageLayoutInvariant checks spec testable property 6: the
// interpreter bytes plus nop padding exactly fill the gap up to
// jit_start_address, and the total image length is word-aligned.
func TestGeneratorImageLayoutInvariant(t *testing.T) {
	gen, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := gen.Run(); err != nil {
		t.Fatal(err)
	}
	img := gen.Assemble()
	interp := gen.GenerateInterpreterBytes()
	gotGap := img.JitStartAddress - (img.InterpreterStartAddress + uint64(len(interp)))
	wantPaddingLen := int(gotGap)
	jit := gen.GenerateJITBytes()
	if len(img.Bytes) != len(interp)+wantPaddingLen+len(jit) {
		t.Fatalf("image length %d != interpreter(%d)+padding(%d)+jit(%d)",
			len(img.Bytes), len(interp), wantPaddingLen, len(jit))
	}
	if len(img.Bytes)%4 != 0 {
		t.Fatalf("image length %d is not a multiple of 4", len(img.Bytes))
	}
	for i := len(interp); i < len(interp)+wantPaddingLen; i += 4 {
		word := img.Bytes[i : i+4]
		nop := Nop().GenerateBytes()
		for j := range nop {
			if word[j] != nop[j] {
				t.Fatalf("byte %d: padding region is not all nops", i+j)
			}
		}
	}
}

func TestGeneratorIsDeterministicForASeed(t *testing.T) {
	gen1, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := gen1.Run(); err != nil {
		t.Fatal(err)
	}
	gen2, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := gen2.Run(); err != nil {
		t.Fatal(err)
	}
	b1 := gen1.Assemble()
	b2 := gen2.Assemble()
	if string(b1.Bytes) != string(b2.Bytes) {
		t.Fatal("same seed produced a different image")
	}
}

// TestGeneratorCallGraphRespectsDepthInvariant walks the patched callee
// graph across several seeds and checks spec testable property 5: every
// callee has strictly smaller call depth than its caller (so the graph is
// acyclic), and no element ever appears in its own transitive-callee
// closure.
func TestGeneratorCallGraphRespectsDepthInvariant(t *testing.T) {
	for seed := int64(0); seed < 8; seed++ {
		cfg := testConfig()
		cfg.Seed = seed
		gen, err := NewGenerator(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if err := gen.Run(); err != nil {
			t.Fatal(err)
		}
		for _, e := range gen.Elements() {
			for _, callee := range e.Callees() {
				if callee.CallDepth() >= e.CallDepth() {
					t.Fatalf("seed %d: callee at 0x%x (depth %d) is not strictly shallower than caller at 0x%x (depth %d)",
						seed, callee.Address(), callee.CallDepth(), e.Address(), e.CallDepth())
				}
			}
		}
		for _, e := range gen.Elements() {
			if closureContains(e, e.Address(), make(map[uint64]bool)) {
				t.Fatalf("seed %d: element at 0x%x appears in its own transitive-callee closure", seed, e.Address())
			}
		}
	}
}

// closureContains reports whether target appears anywhere in root's
// transitive callees, not counting root itself. visited guards against
// revisiting a shared callee (the graph is a DAG, not a tree).
func closureContains(root Callable, target uint64, visited map[uint64]bool) bool {
	for _, callee := range root.Callees() {
		if callee.Address() == target {
			return true
		}
		if visited[callee.Address()] {
			continue
		}
		visited[callee.Address()] = true
		if closureContains(callee, target, visited) {
			return true
		}
	}
	return false
}

func TestGeneratorWithTrampolinesProducesTrampolines(t *testing.T) {
	cfg := testConfig()
	cfg.UseTrampolines = true
	gen, err := NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := gen.Run(); err != nil {
		t.Fatal(err)
	}
	if len(gen.Trampolines()) != 2 {
		t.Fatalf("expected 2 trampolines, got %d", len(gen.Trampolines()))
	}
}

func TestGeneratorRejectsNonPositiveJitSize(t *testing.T) {
	cfg := testConfig()
	cfg.JitSize = 0
	if _, err := NewGenerator(cfg); err == nil {
		t.Fatal("expected WrongAddressError for zero jit size")
	}
}
