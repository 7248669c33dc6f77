// Command gigue generates a synthetic RISC-V RV64IM binary for stress
// testing hardware register/memory isolation extensions such as RIMI.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/xyproto/gigue"
	"github.com/xyproto/gigue/rimi"
)

const versionString = "gigue 1.0.0"

func main() {
	var (
		seed           = flag.Int64("seed", 1, "PRNG seed (determinism: same seed, same binary)")
		jitStart       = flag.String("jit-start", "0x1000", "JIT code region start address")
		jitSize        = flag.Int("jit-size", 64*1024, "JIT code region size, in bytes")
		interpStart    = flag.String("interp-start", "0x11000", "interpretation loop start address")
		interpSize     = flag.Int("interp-size", 4*1024, "interpretation loop region size, in bytes")
		dataSize       = flag.Int("data-size", gigue.DataSize, "data region size, in bytes")
		dataStrategy   = flag.String("data-strategy", "random", "data fill strategy: zeroes, random, iterative32")
		picsRatio      = flag.Float64("pics-ratio", 0.2, "fraction of JIT elements built as PICs")
		useTrampolines = flag.Bool("trampolines", false, "route calls through shared call/ret trampolines")
		rimiMode       = flag.String("rimi", "none", "RIMI isolation overlay: none, shadowstack, full")
		outPrefix      = flag.String("o", "gigue_out", "output file prefix")
		version        = flag.Bool("version", false, "print version information and exit")
		verbose        = flag.Bool("v", false, "verbose mode")
	)
	flag.Parse()

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	jitStartAddr, err := strconv.ParseUint(*jitStart, 0, 64)
	if err != nil {
		log.Fatalf("gigue: invalid -jit-start %q: %v", *jitStart, err)
	}
	interpStartAddr, err := strconv.ParseUint(*interpStart, 0, 64)
	if err != nil {
		log.Fatalf("gigue: invalid -interp-start %q: %v", *interpStart, err)
	}

	cfg := gigue.DefaultConfig()
	cfg.Seed = *seed
	cfg.JitStartAddress = jitStartAddr
	cfg.JitSize = *jitSize
	cfg.InterpreterStartAddress = interpStartAddr
	cfg.InterpreterSize = *interpSize
	cfg.DataSize = *dataSize
	cfg.PicsRatio = *picsRatio
	cfg.UseTrampolines = *useTrampolines
	cfg.Verbose = *verbose

	switch *dataStrategy {
	case "zeroes":
		cfg.DataStrategy = gigue.DataZeroes
	case "random":
		cfg.DataStrategy = gigue.DataRandom
	case "iterative32":
		cfg.DataStrategy = gigue.DataIterative32
	default:
		log.Fatalf("gigue: unknown -data-strategy %q", *dataStrategy)
	}

	shadowStackSize := 0
	switch *rimiMode {
	case "none":
	case "shadowstack":
		cfg = rimi.NewShadowStackConfig(cfg)
		shadowStackSize = rimi.DefaultShadowStackSize
	case "full":
		cfg = rimi.NewFullConfig(cfg, 29, 30) // t4, t5: domain id / saved domain id
		shadowStackSize = rimi.DefaultShadowStackSize
	default:
		log.Fatalf("gigue: unknown -rimi mode %q (want none, shadowstack, full)", *rimiMode)
	}

	gen, err := gigue.NewGenerator(cfg)
	if err != nil {
		log.Fatalf("gigue: %v", err)
	}
	if err := gen.Run(); err != nil {
		log.Fatalf("gigue: generation failed: %v", err)
	}

	if *verbose {
		log.Printf("jit elements: %d, trampolines: %d", len(gen.Elements()), len(gen.Trampolines()))
	}

	if shadowStackSize > 0 {
		image := rimi.Assemble(gen, cfg.InterpreterStartAddress+uint64(cfg.InterpreterSize), shadowStackSize)
		writeFile(*outPrefix+".bin", image.Bytes)
		writeFile(*outPrefix+".data.bin", image.Data)
		writeFile(*outPrefix+".shadowstack.bin", image.ShadowStack)
		return
	}

	image := gen.Assemble()
	writeFile(*outPrefix+".bin", image.Bytes)
	writeFile(*outPrefix+".data.bin", image.Data)
}

func writeFile(name string, data []byte) {
	if err := os.WriteFile(name, data, 0o644); err != nil {
		log.Fatalf("gigue: writing %s: %v", name, err)
	}
}
