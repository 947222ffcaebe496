package wasmgen

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wazeroHarness holds the two instantiated modules a test drives apply
// through: the allocator (the shared memory owner) and the generated
// inner core module that imports it.
type wazeroHarness struct {
	ctx   context.Context
	alloc api.Module
	core  api.Module
}

// newWazeroHarness compiles and instantiates the allocator and the given
// core module, the same way a canonical-ABI host embeds this system's output.
func newWazeroHarness(t *testing.T, core *CoreModule) *wazeroHarness {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	allocCompiled, err := rt.CompileModule(ctx, BuildAllocatorModule())
	if err != nil {
		t.Fatalf("compile allocator module: %v", err)
	}
	allocInstance, err := rt.InstantiateModule(ctx, allocCompiled, wazero.NewModuleConfig().WithName("allocator"))
	if err != nil {
		t.Fatalf("instantiate allocator module: %v", err)
	}

	coreCompiled, err := rt.CompileModule(ctx, core.Bytes)
	if err != nil {
		t.Fatalf("compile core module: %v", err)
	}
	coreInstance, err := rt.InstantiateModule(ctx, coreCompiled, wazero.NewModuleConfig().WithName("core"))
	if err != nil {
		t.Fatalf("instantiate core module: %v", err)
	}

	return &wazeroHarness{ctx: ctx, alloc: allocInstance, core: coreInstance}
}

// callApply invokes the core module's apply export with the given flat or
// spilled arguments and returns the rendered string, decoded through the
// return area the way a canonical lift would.
func (h *wazeroHarness) callApply(t *testing.T, args ...uint64) string {
	t.Helper()
	apply := h.core.ExportedFunction("apply")
	if apply == nil {
		t.Fatal("core module does not export apply")
	}
	results, err := apply.Call(h.ctx, args...)
	if err != nil {
		t.Fatalf("apply.Call: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("apply returned %d results, want 1", len(results))
	}

	returnArea := uint32(results[0])
	header, ok := h.core.Memory().Read(returnArea, 8)
	if !ok {
		t.Fatalf("failed to read return area at %d", returnArea)
	}
	resultPtr := binary.LittleEndian.Uint32(header[0:4])
	resultLen := binary.LittleEndian.Uint32(header[4:8])

	resultBytes, ok := h.core.Memory().Read(resultPtr, resultLen)
	if !ok {
		t.Fatalf("failed to read result bytes at %d len %d", resultPtr, resultLen)
	}
	return string(resultBytes)
}

// TestApply_RendersThroughWazero instantiates the generated allocator and
// inner core modules directly with wazero — bypassing the component
// envelope, which wazero does not itself execute — and drives the apply
// function the way a canonical-ABI host would: writing the text
// parameter into the shared linear memory, calling apply with its flat
// (ptr, len) arguments, then dereferencing the returned return-area
// pointer to recover the rendered (ptr, len) pair.
func TestApply_RendersThroughWazero(t *testing.T) {
	file, p := buildFile(t, "Hello, {{name}}!")
	core := BuildCoreModule(file, p, "apply", "memory", "test-build")

	layout := newParamLayout(p)
	if layout.spill {
		t.Fatal("single-parameter template unexpectedly spilled")
	}

	h := newWazeroHarness(t, core)

	const namePtr = 1024
	nameBytes := []byte("world")
	if !h.alloc.Memory().Write(namePtr, nameBytes) {
		t.Fatal("failed to write name argument into memory")
	}

	want := "Hello, world!"
	if got := h.callApply(t, uint64(namePtr), uint64(len(nameBytes))); got != want {
		t.Errorf("apply result = %q, want %q", got, want)
	}
}

// TestApply_ConditionalGating drives a single condition parameter both
// ways through wazero, asserting the "Conditional gating" property
// (spec §8): true includes the guarded body byte-for-byte, false
// contributes zero bytes, with no other change to the surrounding text.
func TestApply_ConditionalGating(t *testing.T) {
	file, p := buildFile(t, "X{% if ok %}Y{% endif %}Z")
	core := BuildCoreModule(file, p, "apply", "memory", "test-build")

	layout := newParamLayout(p)
	if layout.spill {
		t.Fatal("single condition parameter unexpectedly spilled")
	}
	if layout.argCount() != 1 {
		t.Fatalf("argCount = %d, want 1", layout.argCount())
	}

	h := newWazeroHarness(t, core)

	if got, want := h.callApply(t, 1), "XYZ"; got != want {
		t.Errorf("ok=true: apply result = %q, want %q", got, want)
	}
	if got, want := h.callApply(t, 0), "XZ"; got != want {
		t.Errorf("ok=false: apply result = %q, want %q", got, want)
	}
}

// TestApply_NestedConditionalGating exercises composition of nested
// conditionals (spec §8: "Nested conditionals compose").
func TestApply_NestedConditionalGating(t *testing.T) {
	file, p := buildFile(t, "A{% if outer %}B{% if inner %}C{% endif %}D{% endif %}E")
	core := BuildCoreModule(file, p, "apply", "memory", "test-build")

	outerIdx := p.CondIndex("outer")
	innerIdx := p.CondIndex("inner")

	// Flat args are ordered by p.Cond (sorted), one i32 per condition.
	argFor := func(outer, inner uint64) []uint64 {
		args := make([]uint64, 2)
		args[outerIdx] = outer
		args[innerIdx] = inner
		return args
	}

	h := newWazeroHarness(t, core)

	cases := []struct {
		outer, inner uint64
		want         string
	}{
		{1, 1, "ABCDE"},
		{1, 0, "ABDE"},
		{0, 0, "AE"},
		{0, 1, "AE"}, // inner=true is irrelevant when outer=false
	}
	for _, c := range cases {
		if got := h.callApply(t, argFor(c.outer, c.inner)...); got != c.want {
			t.Errorf("outer=%d inner=%d: apply result = %q, want %q", c.outer, c.inner, got, c.want)
		}
	}
}

// TestApply_SpilledNineParams drives a 9-text-parameter template (stack
// length 18 > MaxFlatArgs) through wazero, asserting the "Flat/spill
// parity" property (spec §8): rendered output is correct under the
// spilled calling convention, not just the boolean spill decision.
func TestApply_SpilledNineParams(t *testing.T) {
	src := "A{{p0}}B{{p1}}C{{p2}}D{{p3}}E{{p4}}F{{p5}}G{{p6}}H{{p7}}I{{p8}}J"
	file, p := buildFile(t, src)

	layout := newParamLayout(p)
	if !layout.spill {
		t.Fatal("9 text parameters (stack_len=18) should spill")
	}
	if layout.argCount() != 1 {
		t.Fatalf("spilled argCount = %d, want 1", layout.argCount())
	}

	core := BuildCoreModule(file, p, "apply", "memory", "test-build")
	h := newWazeroHarness(t, core)

	valueByName := map[string]string{
		"p0": "v0", "p1": "v1", "p2": "v2", "p3": "v3", "p4": "v4",
		"p5": "v5", "p6": "v6", "p7": "v7", "p8": "v8",
	}
	const valueBase = 2048
	const valueStride = 64
	const recordPtr = 4096

	// Write each value's bytes at a fixed offset, then build the spilled
	// record: 9 (ptr,len) pairs, one per text parameter in p.Text's
	// index order — the same order pushTextField's offset arithmetic uses.
	for i, name := range p.Text {
		value := valueByName[name]
		offset := uint32(valueBase + i*valueStride)
		if !h.alloc.Memory().Write(offset, []byte(value)) {
			t.Fatalf("failed to write value for %q into memory", name)
		}
		recordFieldPtr := uint32(recordPtr + 8*i)
		if !h.alloc.Memory().WriteUint32Le(recordFieldPtr, offset) {
			t.Fatalf("failed to write record ptr field for %q", name)
		}
		if !h.alloc.Memory().WriteUint32Le(recordFieldPtr+4, uint32(len(value))) {
			t.Fatalf("failed to write record len field for %q", name)
		}
	}

	want := "A" + valueByName["p0"] + "B" + valueByName["p1"] + "C" + valueByName["p2"] +
		"D" + valueByName["p3"] + "E" + valueByName["p4"] + "F" + valueByName["p5"] +
		"G" + valueByName["p6"] + "H" + valueByName["p7"] + "I" + valueByName["p8"] + "J"

	got := h.callApply(t, uint64(recordPtr))
	if got != want {
		t.Errorf("spilled apply result = %q, want %q", got, want)
	}
}
