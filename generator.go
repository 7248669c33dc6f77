package gigue

import (
	"log"
	"math/rand"
	"os"
	"sort"
)

// Logger is the package-wide diagnostic logger, in the teacher's
// log.Fatalf/log.Printf idiom. Callers may redirect it (e.g. to a file,
// or to io.Discard in tests) by reassigning it before running a Generator.
var Logger = log.New(os.Stderr, "gigue: ", log.LstdFlags)

// Config parameterizes a Generator run. Every distribution parameter
// mirrors a constructor keyword argument from generator.py's Generator
// __init__; grouping them into a struct (rather than Go's equivalent of
// **kwargs — a long positional or variadic-option list) is the one
// ambient-stack deviation from the teacher's style, justified in
// DESIGN.md: riscv64_backend.go has no analogous wide-config
// constructor to imitate.
type Config struct {
	Seed int64

	JitStartAddress         uint64
	JitSize                 int
	InterpreterStartAddress uint64
	InterpreterSize         int
	DataSize                int
	DataStrategy            DataGenerationStrategy

	MethodBodySizeMean float64
	MethodBodySizeStd  float64
	MethodBodySizeMin  int
	MethodBodySizeMax  int

	CallOccupationMean float64
	CallOccupationStd  float64
	CallDepthMean      float64

	PicsRatio         float64
	PicCaseNumberMean float64
	PicCaseNumberStd  float64
	PicCaseNumberMin  int
	PicCaseNumberMax  int

	UsedSRegs int
	Registers []uint32
	Weights   InstructionWeights

	UseTrampolines bool

	// Builder overrides the instruction-building strategy. Nil selects
	// the base InstructionBuilder; the rimi package supplies shadow-stack
	// and full-isolation variants here.
	Builder Builder

	// Verbose gates phase-boundary and per-element debug logging to Logger.
	Verbose bool
}

// DefaultConfig returns a Config with the same shape of defaults
// generator.py ships (moderate method sizes, light call fan-out,
// shallow call depth), adjusted to Go's instruction-count rather than
// byte-count units where the original mixed the two.
func DefaultConfig() Config {
	return Config{
		Seed:                    1,
		JitStartAddress:         0x1000,
		JitSize:                 64 * 1024,
		InterpreterStartAddress: 0x11000,
		InterpreterSize:         4 * 1024,
		DataSize:                DataSize,
		DataStrategy:            DataRandom,

		MethodBodySizeMean: 20,
		MethodBodySizeStd:  10,
		MethodBodySizeMin:  1,
		MethodBodySizeMax:  100,

		CallOccupationMean: 0.3,
		CallOccupationStd:  0.1,
		CallDepthMean:      2,

		PicsRatio:         0.2,
		PicCaseNumberMean: 3,
		PicCaseNumberStd:  1,
		PicCaseNumberMin:  2,
		PicCaseNumberMax:  6,

		UsedSRegs: len(CalleeSavedRegisters),
		Registers: DefaultRegisters,
		Weights:   DefaultInstructionWeights,
	}
}

// Generator orchestrates the four phases spec.md §4.6 describes: fill
// the JIT region with methods/PICs, wire their calls, build the
// interpretation loop that drives them, and assemble the final image.
// Grounded on generator.py's Generator/TrampolineGenerator, collapsed
// into a single type with Config.UseTrampolines standing in for the
// subclass split (SPEC_FULL.md's supplemented-features note on this).
type Generator struct {
	cfg     Config
	rand    *rand.Rand
	builder Builder

	methods []*Method
	pics    []*PIC
	// elements is every top-level JIT element (Method or PIC) in
	// address order; the interpretation loop calls each one once.
	elements []Callable
	// depthIndex buckets every element by call depth, for extractCallees.
	depthIndex map[int][]Callable

	trampolines map[string]*Trampoline
	interpreter *Method

	jitCursor uint64
}

// NewGenerator validates cfg and prepares an empty Generator. Call
// FillJitCode, then PatchCalls, then FillInterpretationLoop, then one of
// the GenerateXBytes methods (or Assemble). Run does the first three in
// order.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.JitSize <= 0 {
		return nil, &WrongAddressError{Reason: "jit size must be positive"}
	}
	if cfg.InterpreterSize <= 0 {
		return nil, &WrongAddressError{Reason: "interpreter size must be positive"}
	}
	builder := cfg.Builder
	if builder == nil {
		builder = InstructionBuilder{}
	}
	return &Generator{
		cfg:         cfg,
		rand:        rand.New(rand.NewSource(cfg.Seed)),
		builder:     builder,
		depthIndex:  make(map[int][]Callable),
		trampolines: make(map[string]*Trampoline),
		jitCursor:   cfg.JitStartAddress,
	}, nil
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func (g *Generator) callSize() int {
	if g.cfg.UseTrampolines {
		return CallSizeTrampoline
	}
	return CallSizeBase
}

func (g *Generator) register(c Callable, depth int) {
	g.depthIndex[depth] = append(g.depthIndex[depth], c)
	g.elements = append(g.elements, c)
}

// flattenCallables concatenates every element at a call depth strictly
// smaller than callDepth, mirroring helpers.go's flattenMethods but over
// the wider Callable interface (PICs are eligible callees too). Buckets
// are taken in ascending depth order so the pool, and therefore every
// seeded draw from it, is the same on every run.
func flattenCallables(depthIndex map[int][]Callable, callDepth int) []Callable {
	depths := make([]int, 0, len(depthIndex))
	for depth := range depthIndex {
		if depth < callDepth {
			depths = append(depths, depth)
		}
	}
	sort.Ints(depths)
	var out []Callable
	for _, depth := range depths {
		out = append(out, depthIndex[depth]...)
	}
	return out
}

// addLeafMethod places a zero-call, depth-0 method, guaranteeing a call
// target exists before any deeper element is generated.
func (g *Generator) addLeafMethod(address uint64) (*Method, error) {
	size := g.cfg.MethodBodySizeMin
	if size < 1 {
		size = 1
	}
	m, err := NewMethod(address, 0, size, 0, g.callSize(), g.cfg.UsedSRegs)
	if err != nil {
		return nil, err
	}
	if err := m.FillBody(g.rand, g.builder, g.cfg.Registers, DataReg, g.cfg.DataSize, g.cfg.Weights, g.cfg.UsedSRegs); err != nil {
		return nil, err
	}
	g.methods = append(g.methods, m)
	g.register(m, 0)
	if g.cfg.Verbose {
		Logger.Printf("added leaf method at 0x%x, size %d", address, m.TotalSize())
	}
	return m, nil
}

func (g *Generator) sampleBodySize() int {
	v := generateTruncNorm(g.rand, g.cfg.MethodBodySizeMean, g.cfg.MethodBodySizeStd,
		float64(g.cfg.MethodBodySizeMin), float64(g.cfg.MethodBodySizeMax))
	return clampInt(int(v), g.cfg.MethodBodySizeMin, g.cfg.MethodBodySizeMax)
}

func (g *Generator) sampleCallNumber(bodySize int) int {
	occ := generateTruncNorm(g.rand, g.cfg.CallOccupationMean, g.cfg.CallOccupationStd, 0, 1)
	n := int(occ * float64(bodySize) / float64(g.callSize()))
	if n < 0 {
		n = 0
	}
	return n
}

func (g *Generator) sampleCallDepth() int {
	return generatePoisson(g.rand, g.cfg.CallDepthMean)
}

// addMethod samples a body size, call occupation, and call depth, then
// constructs and fills a Method at address. A method drawn at depth 0 has
// no shallower callee available, so it is built as a leaf.
func (g *Generator) addMethod(address uint64) (*Method, error) {
	bodySize := g.sampleBodySize()
	callNumber := g.sampleCallNumber(bodySize)
	callDepth := g.sampleCallDepth()
	if callDepth == 0 {
		callNumber = 0
	}
	m, err := NewMethod(address, callDepth, bodySize, callNumber, g.callSize(), g.cfg.UsedSRegs)
	if err != nil {
		return nil, err
	}
	if err := m.FillBody(g.rand, g.builder, g.cfg.Registers, DataReg, g.cfg.DataSize, g.cfg.Weights, g.cfg.UsedSRegs); err != nil {
		return nil, err
	}
	g.methods = append(g.methods, m)
	g.register(m, callDepth)
	if g.cfg.Verbose {
		Logger.Printf("added method at 0x%x, depth %d, size %d, calls %d", address, callDepth, m.TotalSize(), callNumber)
	}
	return m, nil
}

// addPIC samples a case number and builds one independent method body per
// case, all sharing a single call depth and switch table. The cases of a
// PIC drawn at depth 0 are all leaves.
func (g *Generator) addPIC(address uint64) (*PIC, error) {
	caseNumber := clampInt(
		int(generateTruncNorm(g.rand, g.cfg.PicCaseNumberMean, g.cfg.PicCaseNumberStd,
			float64(g.cfg.PicCaseNumberMin), float64(g.cfg.PicCaseNumberMax))),
		g.cfg.PicCaseNumberMin, g.cfg.PicCaseNumberMax)
	callDepth := g.sampleCallDepth()

	bodySizes := make([]int, caseNumber)
	callNumbers := make([]int, caseNumber)
	callSizes := make([]int, caseNumber)
	for i := 0; i < caseNumber; i++ {
		bodySizes[i] = g.sampleBodySize()
		callNumbers[i] = g.sampleCallNumber(bodySizes[i])
		if callDepth == 0 {
			callNumbers[i] = 0
		}
		callSizes[i] = g.callSize()
	}
	p, err := NewPIC(address, callDepth, bodySizes, callNumbers, callSizes, g.cfg.UsedSRegs)
	if err != nil {
		return nil, err
	}
	if err := p.FillBodies(g.rand, g.builder, g.cfg.Registers, DataReg, g.cfg.DataSize, g.cfg.Weights, g.cfg.UsedSRegs); err != nil {
		return nil, err
	}
	g.pics = append(g.pics, p)
	g.register(p, callDepth)
	if g.cfg.Verbose {
		Logger.Printf("added pic at 0x%x, depth %d, cases %d, size %d", address, callDepth, caseNumber, p.TotalSize())
	}
	return p, nil
}

// FillJitCode is phase 1: lay trampolines (if enabled), one guaranteed
// leaf method, then methods/PICs chosen by PicsRatio until the JIT
// region is exhausted.
func (g *Generator) FillJitCode() error {
	if g.cfg.Verbose {
		Logger.Printf("fill_jit_code: start, region 0x%x..0x%x", g.cfg.JitStartAddress, g.cfg.JitStartAddress+uint64(g.cfg.JitSize))
	}
	if g.cfg.UseTrampolines {
		call := NewCallJitEltTrampoline(g.jitCursor, g.builder)
		g.trampolines[call.Name()] = call
		g.jitCursor += uint64(call.TotalSize()) * 4

		ret := NewRetFromJitEltTrampoline(g.jitCursor, g.builder)
		g.trampolines[ret.Name()] = ret
		g.jitCursor += uint64(ret.TotalSize()) * 4
	}

	end := g.cfg.JitStartAddress + uint64(g.cfg.JitSize)
	if _, err := g.addLeafMethod(g.jitCursor); err != nil {
		return err
	}
	g.jitCursor += uint64(g.methods[len(g.methods)-1].TotalSize()) * 4

	minElementInstrs := g.cfg.MethodBodySizeMin
	for g.jitCursor+uint64(minElementInstrs)*4 <= end {
		var size int
		if g.rand.Float64() < g.cfg.PicsRatio {
			p, err := g.addPIC(g.jitCursor)
			if err != nil {
				break
			}
			size = p.TotalSize()
		} else {
			m, err := g.addMethod(g.jitCursor)
			if err != nil {
				break
			}
			size = m.TotalSize()
		}
		g.jitCursor += uint64(size) * 4
	}
	if g.cfg.Verbose {
		Logger.Printf("fill_jit_code: done, %d methods, %d pics", len(g.methods), len(g.pics))
	}
	return nil
}

// trampolineAddr returns the call_jit_elt trampoline's address when
// trampoline mode is active, satisfying Method/PIC.PatchCalls.
func (g *Generator) trampolineAddr() (uint64, bool) {
	if !g.cfg.UseTrampolines {
		return 0, false
	}
	t, ok := g.trampolines[TrampolineCallJitElt]
	if !ok {
		return 0, false
	}
	return t.Address(), true
}

// extractCallees picks n random eligible callees (strictly smaller call
// depth than callDepth) with replacement, the way generator.py's
// extract_callees samples from its flattened depth buckets.
func (g *Generator) extractCallees(callDepth, n int) ([]Callable, error) {
	if n == 0 {
		return nil, nil
	}
	pool := flattenCallables(g.depthIndex, callDepth)
	if len(pool) == 0 {
		return nil, &CallNumberError{Expected: n, Got: 0}
	}
	out := make([]Callable, n)
	for i := range out {
		out[i] = pool[g.rand.Intn(len(pool))]
	}
	return out, nil
}

// PatchCalls is phase 2: every method and every PIC case gets its call
// slots wired to randomly chosen, strictly-shallower callees.
func (g *Generator) PatchCalls() error {
	if g.cfg.Verbose {
		Logger.Printf("patch_calls: start, %d methods, %d pics", len(g.methods), len(g.pics))
	}
	for _, m := range g.methods {
		callees, err := g.extractCallees(m.CallDepth(), m.CallNumber())
		if err != nil {
			return err
		}
		if err := m.PatchCalls(g.rand, g.builder, callees, g.trampolineAddr); err != nil {
			return err
		}
	}
	for _, p := range g.pics {
		calleesByCase := make([][]Callable, len(p.Cases()))
		for i, c := range p.Cases() {
			callees, err := g.extractCallees(c.CallDepth(), c.CallNumber())
			if err != nil {
				return err
			}
			calleesByCase[i] = callees
		}
		if err := p.PatchCalls(g.rand, g.builder, calleesByCase, g.trampolineAddr); err != nil {
			return err
		}
	}
	if g.cfg.Verbose {
		Logger.Printf("patch_calls: done")
	}
	return nil
}

// FillInterpretationLoop is phase 3: build a driver method at
// InterpreterStartAddress that calls every top-level JIT element exactly
// once, in shuffled order, then returns. Mirrors
// fill_interpretation_loop's shuffle-and-call-everything shape.
func (g *Generator) FillInterpretationLoop() error {
	if g.cfg.Verbose {
		Logger.Printf("fill_interpretation_loop: start, %d elements", len(g.elements))
	}
	order := make([]int, len(g.elements))
	for i := range order {
		order[i] = i
	}
	g.rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	callNumber := len(g.elements)
	bodySize := callNumber * g.callSize()
	if bodySize == 0 {
		bodySize = 1
	}
	// A sentinel depth larger than any sampled call depth: the loop is
	// the DAG's root, so every registered element is a legal callee.
	const interpreterDepth = 1 << 30
	loop, err := NewMethod(g.cfg.InterpreterStartAddress, interpreterDepth, bodySize, callNumber, g.callSize(), g.cfg.UsedSRegs)
	if err != nil {
		return err
	}
	if loop.TotalSize()*4 > g.cfg.InterpreterSize {
		return &WrongAddressError{Reason: "interpretation loop overflows its reserved region"}
	}
	// The loop's body is entirely call slots: pass through FillBody with
	// zero random fill so callSiteIndices gets populated.
	if err := loop.FillBody(g.rand, g.builder, g.cfg.Registers, DataReg, g.cfg.DataSize, g.cfg.Weights, g.cfg.UsedSRegs); err != nil {
		return err
	}
	callees := make([]Callable, callNumber)
	for i, idx := range order {
		callees[i] = g.elements[idx]
	}
	if err := loop.PatchCalls(g.rand, g.builder, callees, g.trampolineAddr); err != nil {
		return err
	}
	g.interpreter = loop
	if g.cfg.Verbose {
		Logger.Printf("fill_interpretation_loop: done, size %d", loop.TotalSize())
	}
	return nil
}

// Run executes all three build phases in order.
func (g *Generator) Run() error {
	if err := g.FillJitCode(); err != nil {
		return err
	}
	if err := g.PatchCalls(); err != nil {
		return err
	}
	return g.FillInterpretationLoop()
}

// GenerateJITBytes concatenates every JIT element's machine code, in
// address order (trampolines first, if present).
func (g *Generator) GenerateJITBytes() []byte {
	var out []byte
	for _, name := range DefaultTrampolines {
		if t, ok := g.trampolines[name]; ok {
			out = append(out, t.GenerateBytes()...)
		}
	}
	for _, e := range g.elements {
		out = append(out, e.GenerateBytes()...)
	}
	return out
}

// GenerateInterpreterBytes emits the interpretation loop's machine code.
func (g *Generator) GenerateInterpreterBytes() []byte {
	if g.interpreter == nil {
		return nil
	}
	return g.interpreter.GenerateBytes()
}

// GenerateDataBytes emits the data region's contents per cfg.DataStrategy.
func (g *Generator) GenerateDataBytes() []byte {
	return Dataminer{}.Generate(g.rand, g.cfg.DataSize, g.cfg.DataStrategy)
}

// Image is the fully assembled output of a Generator run: the single
// unified byte stream (interpreter || nop-padding || trampolines || JIT
// elements) plus the data region, matching the layout invariant
// `interpreter_start + |interpreter_bytes| + |padding| == jit_start`.
type Image struct {
	InterpreterStartAddress uint64
	JitStartAddress         uint64
	// Bytes is the unified image: the interpretation loop, nop padding up
	// to JitStartAddress, the trampolines (if any), then the JIT elements.
	Bytes []byte
	Data  []byte
}

// nopPadding returns n/4 nop instructions' worth of bytes, the filler
// Phase 4 uses to carry the interpreter region up to jit_start_address.
func nopPadding(n int) []byte {
	out := make([]byte, 0, n)
	nop := Nop().GenerateBytes()
	for len(out) < n {
		out = append(out, nop...)
	}
	return out
}

// Assemble runs no generation itself — it packages whatever
// GenerateInterpreterBytes/GenerateJITBytes/GenerateDataBytes currently
// produce into the unified image Phase 4 describes: the interpreter
// bytes, nop padding up to JitStartAddress, then the trampolines and JIT
// elements GenerateJITBytes already concatenates in that order.
func (g *Generator) Assemble() Image {
	interp := g.GenerateInterpreterBytes()
	jit := g.GenerateJITBytes()
	padEnd := g.cfg.JitStartAddress
	padStart := g.cfg.InterpreterStartAddress + uint64(len(interp))
	var padding []byte
	if padEnd > padStart {
		padding = nopPadding(int(padEnd - padStart))
	}
	bytes := make([]byte, 0, len(interp)+len(padding)+len(jit))
	bytes = append(bytes, interp...)
	bytes = append(bytes, padding...)
	bytes = append(bytes, jit...)
	return Image{
		InterpreterStartAddress: g.cfg.InterpreterStartAddress,
		JitStartAddress:         g.cfg.JitStartAddress,
		Bytes:                   bytes,
		Data:                    g.GenerateDataBytes(),
	}
}

// Elements exposes the top-level JIT elements this generator produced,
// in address order.
func (g *Generator) Elements() []Callable { return g.elements }

// Trampolines exposes the call/ret trampolines this generator laid down,
// empty when Config.UseTrampolines is false.
func (g *Generator) Trampolines() map[string]*Trampoline { return g.trampolines }

// Interpreter exposes the interpretation-loop method built by
// FillInterpretationLoop.
func (g *Generator) Interpreter() *Method { return g.interpreter }
