package wasmgen

import (
	"github.com/lhaig/tmplc/internal/ast"
	"github.com/lhaig/tmplc/internal/params"
)

// Component-level index assignments (spec §4.5). Two core modules are
// embedded (allocator, inner) and instantiated in order, giving two core
// instances; three core exports are then aliased into the component's
// own index space in a fixed order so that the canonical options
// Memory(0) and Realloc(0) resolve to literal index 0 while the apply
// function being lifted keeps a distinct index.
const (
	allocatorModuleIdx = 0
	innerModuleIdx     = 1

	allocatorInstanceIdx = 0
	innerInstanceIdx     = 1

	aliasedReallocFuncIdx = 0 // core-func space
	aliasedMemoryIdx      = 0 // core-memory space
	aliasedApplyFuncIdx   = 1 // core-func space

	paramsRecordTypeIdx = 0
	applyFuncTypeIdx    = 1

	componentApplyFuncIdx = 0
)

// BuildComponent assembles the full Component binary from the already
// generated inner module bytes, per spec §4.5's nine-step procedure.
func BuildComponent(file *ast.File, p *params.Params, core *CoreModule, exportName, exportMemName, buildID string) []byte {
	layout := newParamLayout(p)

	var out []byte
	out = append(out, wasmMagic...)
	out = append(out, componentVersion...)

	out = append(out, encodeSection(csCustom, append(encodeString("build-id"), []byte(buildID)...))...)
	out = append(out, encodeSection(csCoreModule, BuildAllocatorModule())...)
	out = append(out, encodeSection(csCoreModule, core.Bytes)...)
	out = append(out, encodeCoreInstanceSection()...)
	out = append(out, encodeAliasSection(exportMemName, exportName)...)
	out = append(out, encodeTypeSection2(p, layout)...)
	out = append(out, encodeCanonSection()...)
	out = append(out, encodeExportSection2(exportName)...)

	return out
}

// encodeCoreInstanceSection instantiates the allocator module with no
// arguments, then the inner module with its single "allocator" import
// satisfied by the allocator instance (spec §4.5 step 3).
func encodeCoreInstanceSection() []byte {
	allocatorInst := []byte{0x00} // instantiate tag
	allocatorInst = append(allocatorInst, encodeLEB128U(allocatorModuleIdx)...)
	allocatorInst = append(allocatorInst, encodeLEB128U(0)...) // no args

	innerArg := encodeString("allocator")
	innerArg = append(innerArg, sortTagCore, coreSortInstance)
	innerArg = append(innerArg, encodeLEB128U(allocatorInstanceIdx)...)

	innerInst := []byte{0x00}
	innerInst = append(innerInst, encodeLEB128U(innerModuleIdx)...)
	innerInst = append(innerInst, encodeLEB128U(1)...)
	innerInst = append(innerInst, innerArg...)

	body := encodeVector(2, concat(allocatorInst, innerInst))
	return encodeSection(csCoreInstance, body)
}

// encodeAliasSection reaches into the two core instances' exports and
// brings realloc, memory, and apply into the component's core-level
// index spaces, in the order that fixes their final indices (spec §4.5
// step 4).
func encodeAliasSection(exportMemName, innerExportName string) []byte {
	realloc := encodeAliasCoreExport(coreSortFunc, allocatorInstanceIdx, "realloc")
	memory := encodeAliasCoreExport(coreSortMemoryAlias, innerInstanceIdx, exportMemName)
	apply := encodeAliasCoreExport(coreSortFunc, innerInstanceIdx, innerExportName)

	body := encodeVector(3, concat(realloc, memory, apply))
	return encodeSection(csAlias, body)
}

// coreSortMemoryAlias is an alias for coreSortMemory, named to make the
// alias call sites read as "which core sort", matching the grammar's own
// phrasing.
const coreSortMemoryAlias = coreSortMemory

// encodeAliasCoreExport encodes `alias core export {instance, name}`.
func encodeAliasCoreExport(coreSort byte, instanceIdx int, name string) []byte {
	entry := []byte{sortTagCore, coreSort}
	entry = append(entry, aliasTargetExport)
	entry = append(entry, encodeLEB128U(uint64(instanceIdx))...)
	entry = append(entry, encodeString(name)...)
	return entry
}

// encodeTypeSection2 declares the params record type and the apply
// function type that takes it, per spec §4.1/§4.5 step 5.
func encodeTypeSection2(p *params.Params, layout paramLayout) []byte {
	record := encodeParamsRecordType(p)
	funcType := encodeApplyFuncType()

	body := encodeVector(2, concat(record, funcType))
	return encodeSection(csType, body)
}

func encodeParamsRecordType(p *params.Params) []byte {
	var fields []byte
	count := 0
	for _, name := range p.Text {
		fields = append(fields, encodeString(params.ToKebabCase(name))...)
		fields = append(fields, cvString)
		count++
	}
	for _, name := range p.Cond {
		fields = append(fields, encodeString(params.ToKebabCase(name))...)
		fields = append(fields, cvBool)
		count++
	}

	body := []byte{ctRecord}
	body = append(body, encodeVector(count, fields)...)
	return body
}

// encodeApplyFuncType declares `func(params: paramsRecordTypeIdx) -> string`.
// The parameter's valtype is encoded as a type-index reference into the
// just-declared record type, rather than as a primitive valtype byte.
func encodeApplyFuncType() []byte {
	paramEntry := append(encodeString("params"), encodeLEB128U(paramsRecordTypeIdx)...)

	body := []byte{ctFunc}
	body = append(body, encodeVector(1, paramEntry)...)
	body = append(body, 0x00 /* single unnamed result */, cvString)
	return body
}

// encodeCanonSection lifts the aliased apply core function into a
// component-level function of type applyFuncTypeIdx, using the aliased
// memory and realloc as its canonical-ABI options (spec §4.5 step 8).
func encodeCanonSection() []byte {
	entry := []byte{0x00, 0x00} // canon lift, no async flag
	entry = append(entry, encodeLEB128U(aliasedApplyFuncIdx)...)
	opts := concat(
		[]byte{canonOptStringUTF8},
		append([]byte{canonOptMemory}, encodeLEB128U(aliasedMemoryIdx)...),
		append([]byte{canonOptRealloc}, encodeLEB128U(aliasedReallocFuncIdx)...),
	)
	entry = append(entry, encodeVector(3, opts)...)
	entry = append(entry, encodeLEB128U(applyFuncTypeIdx)...)

	return encodeSection(csCanon, encodeVector(1, entry))
}

// encodeExportSection2 exports the lifted apply function under the
// configured name, and the params record type under the fixed name
// "params" so host consumers can introspect the record shape without
// decoding the function type (spec §4.5 steps 6 and 9, spec §6).
func encodeExportSection2(exportName string) []byte {
	funcEntry := encodeString(exportName)
	funcEntry = append(funcEntry, sortTagFunc)
	funcEntry = append(funcEntry, encodeLEB128U(componentApplyFuncIdx)...)
	funcEntry = append(funcEntry, 0x00 /* no export-level type ascription */)

	typeEntry := encodeString("params")
	typeEntry = append(typeEntry, sortTagType)
	typeEntry = append(typeEntry, encodeLEB128U(paramsRecordTypeIdx)...)
	typeEntry = append(typeEntry, 0x00 /* no export-level type ascription */)

	return encodeSection(csExport, encodeVector(2, concat(funcEntry, typeEntry)))
}
