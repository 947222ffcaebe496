package wasmgen

import (
	"github.com/lhaig/tmplc/internal/ast"
	"github.com/lhaig/tmplc/internal/params"
)

// Inner-module index assignments (spec §4.2). These are fixed across every
// compilation: three types, three imports satisfying the first two, one
// defined function satisfying the third.
const (
	reallocTypeIdx = 0
	clearTypeIdx   = 1
	applyTypeIdxBase = 2 // the apply function's type, shape depends on params

	reallocFuncIdx = 0 // imported
	clearFuncIdx   = 1 // imported
	applyFuncIdx   = 2 // defined

	allocatorMemIdx = 0 // imported
)

// compilerName/compilerVersion identify this compiler in the core
// module's producers section (spec §4.2) — distinct from the per-build
// "build-id" custom section the component envelope stamps separately
// (spec §4.5), which records provenance for a single compilation rather
// than the tool's identity.
const (
	compilerName    = "tmplc"
	compilerVersion = "0.1.0"
)

// CoreModule holds the bytes of the assembled inner core module together
// with the number of passive text segments it lays out, the same count its
// data-count section declares.
type CoreModule struct {
	Bytes         []byte
	TextNodeCount int
}

// BuildCoreModule assembles the inner module described in spec §4.2: it
// imports its allocator (memory, realloc, clear) and exports a single
// apply function of the shape paramLayout derives from p. buildID is
// accepted for signature symmetry with BuildComponent (backend.Generate
// threads the same Config through both) but isn't written here — the
// core module's own custom section records compiler identity
// (encodeProducersSection), while the per-compilation build ID is
// stamped once, on the component envelope, by BuildComponent.
func BuildCoreModule(file *ast.File, p *params.Params, exportName, exportMemName, buildID string) *CoreModule {
	layout := newParamLayout(p)
	textNodes := collectTextNodesInOrder(file.Nodes)

	types := encodeTypeSection(layout)
	imports := encodeImportSection()
	functions := encodeSection(sectionFunction, encodeVector(1, encodeLEB128U(applyTypeIdxBase)))
	exports := encodeExportSection(exportName, exportMemName)
	dataCount := encodeSection(sectionDataCount, encodeLEB128U(uint64(len(textNodes))))
	code := encodeCodeSection(file, p, layout)
	data := encodeDataSection(textNodes)
	producers := encodeProducersSection()

	var out []byte
	out = append(out, wasmMagic...)
	out = append(out, wasmCoreVersion...)
	out = append(out, types...)
	out = append(out, imports...)
	out = append(out, functions...)
	out = append(out, exports...)
	out = append(out, dataCount...)
	out = append(out, code...)
	out = append(out, data...)
	out = append(out, producers...)

	return &CoreModule{Bytes: out, TextNodeCount: len(textNodes)}
}

// encodeTypeSection emits the three function types: realloc, clear, apply.
func encodeTypeSection(layout paramLayout) []byte {
	reallocType := encodeFuncType([]byte{valI32, valI32, valI32, valI32}, []byte{valI32})
	clearType := encodeFuncType(nil, nil)
	applyType := encodeFuncType(layout.paramValTypes(), []byte{valI32})

	body := encodeVector(3, concat(reallocType, clearType, applyType))
	return encodeSection(sectionType, body)
}

func encodeFuncType(params_, results []byte) []byte {
	body := []byte{funcTypeTag}
	body = append(body, encodeVector(len(params_), params_)...)
	body = append(body, encodeVector(len(results), results)...)
	return body
}

// encodeImportSection imports the allocator's memory, realloc, and clear
// under the "allocator" module name (spec §4.2).
func encodeImportSection() []byte {
	mem := append(encodeString("allocator"), encodeString("memory")...)
	mem = append(mem, exportMemory, 0x00 /* limits: flags=no-max */, 0x01 /* min pages */)

	realloc := append(encodeString("allocator"), encodeString("realloc")...)
	realloc = append(realloc, exportFunc, encodeLEB128U(reallocTypeIdx)...)

	clear := append(encodeString("allocator"), encodeString("clear")...)
	clear = append(clear, exportFunc, encodeLEB128U(clearTypeIdx)...)

	body := encodeVector(3, concat(mem, realloc, clear))
	return encodeSection(sectionImport, body)
}

func encodeExportSection(exportName, exportMemName string) []byte {
	memExport := append(encodeString(exportMemName), exportMemory, 0x00)
	reallocExport := append(encodeString("realloc"), exportFunc)
	reallocExport = append(reallocExport, encodeLEB128U(reallocFuncIdx)...)
	clearExport := append(encodeString("clear"), exportFunc)
	clearExport = append(clearExport, encodeLEB128U(clearFuncIdx)...)
	applyExport := append(encodeString(exportName), exportFunc)
	applyExport = append(applyExport, encodeLEB128U(applyFuncIdx)...)

	body := encodeVector(4, concat(memExport, reallocExport, clearExport, applyExport))
	return encodeSection(sectionExport, body)
}

func encodeCodeSection(file *ast.File, p *params.Params, layout paramLayout) []byte {
	body := genApplyFunc(file, p, layout)
	entry := encodeVector(1, append(encodeLEB128U(uint64(len(body))), body...))
	return encodeSection(sectionCode, entry)
}

// encodeDataSection lays out one passive segment per text run, in the
// same order genApplyFunc assigns them data indices (spec §4.3 phase D).
func encodeDataSection(textNodes []*ast.TextNode) []byte {
	var segments []byte
	for _, t := range textNodes {
		seg := []byte{0x01} // passive segment flag
		seg = append(seg, encodeVector(len(t.Bytes), t.Bytes)...)
		segments = append(segments, seg...)
	}
	return encodeSection(sectionData, encodeVector(len(textNodes), segments))
}

// encodeProducersSection emits the standard "producers" custom section:
// name, then a vector of (field-name, vector of (value, version)) —
// here a single "processed-by" field naming this compiler, the way
// wasm-tools-produced binaries record their toolchain.
func encodeProducersSection() []byte {
	value := append(encodeString(compilerName), encodeString(compilerVersion)...)
	field := append(encodeString("processed-by"), encodeVector(1, value)...)

	contents := append(encodeString("producers"), encodeVector(1, field)...)
	return encodeSection(sectionCustom, contents)
}

const sectionCustom byte = 0

// collectTextNodesInOrder flattens the tree into the pre-order sequence
// genApplyFunc's Phase D walk will encounter, which is what fixes each
// TextNode's place in the data section.
func collectTextNodesInOrder(nodes []ast.Node) []*ast.TextNode {
	var out []*ast.TextNode
	var walk func([]ast.Node)
	walk = func(ns []ast.Node) {
		for _, n := range ns {
			switch v := n.(type) {
			case *ast.TextNode:
				out = append(out, v)
			case *ast.ConditionalNode:
				walk(v.Body)
			}
		}
	}
	walk(nodes)
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
