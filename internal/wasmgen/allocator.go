package wasmgen

// allocBase is the first address the allocator hands out; the first 8
// bytes of memory are left alone so that no allocation returns the null
// pointer.
const allocBase = 8

// Allocator local/global index assignments within the standalone
// allocator module (spec §4.5 step 1): no imports, a single mutable i32
// global holding the bump pointer.
const (
	allocReallocFuncIdx = 0
	allocClearFuncIdx   = 1
	allocBumpGlobalIdx  = 0
)

// realloc(old_ptr, old_size, align, new_size) locals, appended after the
// four i32 arguments.
const (
	allocArgOldPtr  = 0
	allocArgOldSize = 1
	allocArgAlign   = 2
	allocArgNewSize = 3

	allocLocalAligned = 4
	allocLocalNewBump = 5
)

// BuildAllocatorModule assembles the standalone bump allocator that the
// inner module imports its memory, realloc, and clear from. It never
// reclaims old_ptr's region: every call site in this system passes
// old_ptr=0, old_size=0, so freeing is unnecessary, and clear resets the
// whole arena between invocations of apply.
func BuildAllocatorModule() []byte {
	types := encodeAllocatorTypes()
	memory := encodeSection(sectionMemory, encodeVector(1, []byte{0x00, 0x01}))
	global := encodeAllocatorGlobal()
	functions := encodeSection(sectionFunction, encodeVector(2, concat(
		encodeLEB128U(reallocTypeIdx),
		encodeLEB128U(clearTypeIdx),
	)))
	exports := encodeAllocatorExports()
	code := encodeAllocatorCode()

	var out []byte
	out = append(out, wasmMagic...)
	out = append(out, wasmCoreVersion...)
	out = append(out, types...)
	out = append(out, functions...)
	out = append(out, memory...)
	out = append(out, global...)
	out = append(out, exports...)
	out = append(out, code...)
	return out
}

func encodeAllocatorTypes() []byte {
	reallocType := encodeFuncType([]byte{valI32, valI32, valI32, valI32}, []byte{valI32})
	clearType := encodeFuncType(nil, nil)
	return encodeSection(sectionType, encodeVector(2, concat(reallocType, clearType)))
}

func encodeAllocatorGlobal() []byte {
	// (global (mut i32) (i32.const allocBase))
	init := append([]byte{opI32Const}, encodeLEB128S(allocBase)...)
	init = append(init, opEnd)
	entry := append([]byte{valI32, 0x01 /* mutable */}, init...)
	return encodeSection(sectionGlobal, encodeVector(1, entry))
}

func encodeAllocatorExports() []byte {
	mem := append(encodeString("memory"), exportMemory, 0x00)
	realloc := append(encodeString("realloc"), exportFunc)
	realloc = append(realloc, encodeLEB128U(allocReallocFuncIdx)...)
	clear := append(encodeString("clear"), exportFunc)
	clear = append(clear, encodeLEB128U(allocClearFuncIdx)...)
	return encodeSection(sectionExport, encodeVector(3, concat(mem, realloc, clear)))
}

func encodeAllocatorCode() []byte {
	realloc := encodeReallocBody()
	clear := encodeClearBody()

	entries := concat(
		append(encodeLEB128U(uint64(len(realloc))), realloc...),
		append(encodeLEB128U(uint64(len(clear))), clear...),
	)
	return encodeSection(sectionCode, encodeVector(2, entries))
}

// encodeReallocBody implements bump allocation with page growth:
//
//	aligned = (bump + (align - 1)) & -align
//	new_bump = aligned + new_size
//	while new_bump > memory.size() * 65536: memory.grow(1)
//	bump = new_bump
//	return aligned
func encodeReallocBody() []byte {
	var code []byte

	// aligned = (bump + (align - 1)) & -align
	code = append(code, opGlobalGet)
	code = append(code, encodeLEB128U(allocBumpGlobalIdx)...)
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(allocArgAlign)...)
	code = append(code, pushI32Const(1)...)
	code = append(code, opI32Sub)
	code = append(code, opI32Add)
	code = append(code, pushI32Const(0)...)
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(allocArgAlign)...)
	code = append(code, opI32Sub)
	code = append(code, opI32And)
	code = append(code, opLocalSet)
	code = append(code, encodeLEB128U(allocLocalAligned)...)

	// new_bump = aligned + new_size
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(allocLocalAligned)...)
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(allocArgNewSize)...)
	code = append(code, opI32Add)
	code = append(code, opLocalSet)
	code = append(code, encodeLEB128U(allocLocalNewBump)...)

	// growth loop: block { loop { new_bump <= mem.size*65536 -> br block;
	// memory.grow(1); br loop } }
	var loopBody []byte
	loopBody = append(loopBody, opLocalGet)
	loopBody = append(loopBody, encodeLEB128U(allocLocalNewBump)...)
	loopBody = append(loopBody, opMemorySize, 0x00)
	loopBody = append(loopBody, pushI32Const(65536)...)
	loopBody = append(loopBody, opI32Mul)
	loopBody = append(loopBody, opI32GtS)
	loopBody = append(loopBody, opI32Eqz)
	loopBody = append(loopBody, opBrIf)
	loopBody = append(loopBody, encodeLEB128U(1)...) // break out of the enclosing block
	loopBody = append(loopBody, pushI32Const(1)...)
	loopBody = append(loopBody, opMemoryGrow, 0x00)
	loopBody = append(loopBody, opDrop)
	loopBody = append(loopBody, opBr)
	loopBody = append(loopBody, encodeLEB128U(0)...) // loop again
	loopBody = append(loopBody, opEnd)

	var block []byte
	block = append(block, opBlock, blockVoid)
	block = append(block, opLoop, blockVoid)
	block = append(block, loopBody...)
	block = append(block, opEnd)

	code = append(code, block...)

	// bump = new_bump
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(allocLocalNewBump)...)
	code = append(code, opGlobalSet)
	code = append(code, encodeLEB128U(allocBumpGlobalIdx)...)

	// return aligned
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(allocLocalAligned)...)
	code = append(code, opEnd)

	locals := encodeLocalsDecl(2, valI32)
	return append(locals, code...)
}

// encodeClearBody resets the bump pointer, letting the host instance
// reuse the arena across successive calls to apply.
func encodeClearBody() []byte {
	var code []byte
	code = append(code, pushI32Const(allocBase)...)
	code = append(code, opGlobalSet)
	code = append(code, encodeLEB128U(allocBumpGlobalIdx)...)
	code = append(code, opEnd)
	return append([]byte{0x00}, code...) // no locals
}
