package rimi

import (
	"testing"

	"github.com/xyproto/gigue"
)

func shadowStackTestConfig() gigue.Config {
	base := gigue.DefaultConfig()
	base.Seed = 3
	base.JitStartAddress = 0x1000
	base.JitSize = 8 * 1024
	base.InterpreterStartAddress = 0x4000
	base.InterpreterSize = 2 * 1024
	base.DataSize = 512
	base.MethodBodySizeMin = 4
	base.MethodBodySizeMax = 30
	return base
}

func TestShadowStackGeneratorRunsEndToEnd(t *testing.T) {
	cfg := NewShadowStackConfig(shadowStackTestConfig())
	gen, err := gigue.NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := gen.Run(); err != nil {
		t.Fatal(err)
	}
	image := Assemble(gen, cfg.InterpreterStartAddress+uint64(cfg.InterpreterSize), DefaultShadowStackSize)
	if len(image.ShadowStack) != DefaultShadowStackSize {
		t.Fatalf("expected %d shadow stack bytes, got %d", DefaultShadowStackSize, len(image.ShadowStack))
	}
	if len(image.Bytes) == 0 {
		t.Fatal("expected a non-empty image")
	}
}

func TestFullGeneratorRunsEndToEnd(t *testing.T) {
	cfg := NewFullConfig(shadowStackTestConfig(), 29, 30)
	gen, err := gigue.NewGenerator(cfg)
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
