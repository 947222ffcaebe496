package wasmgen

import (
	"github.com/lhaig/tmplc/internal/ast"
	"github.com/lhaig/tmplc/internal/params"
)

// paramLayout derives the apply function's argument shape from a
// collected Params: whether the canonical ABI flattens the parameters
// into scalar locals or spills them behind a single pointer (spec §4.1).
type paramLayout struct {
	textCount int
	condCount int
	spill     bool
}

func newParamLayout(p *params.Params) paramLayout {
	return paramLayout{
		textCount: len(p.Text),
		condCount: len(p.Cond),
		spill:     p.Spill(),
	}
}

// argCount is the number of locals the apply function receives as
// arguments: one pointer when spilled, otherwise one (ptr,len) pair per
// text parameter plus one i32 per condition parameter.
func (l paramLayout) argCount() int {
	if l.spill {
		return 1
	}
	return 2*l.textCount + l.condCount
}

// paramValTypes is the apply function type's parameter list.
func (l paramLayout) paramValTypes() []byte {
	if l.spill {
		return []byte{valI32}
	}
	out := make([]byte, 0, l.argCount())
	for i := 0; i < l.textCount; i++ {
		out = append(out, valI32, valI32) // ptr, len
	}
	for i := 0; i < l.condCount; i++ {
		out = append(out, valI32) // bool, widened to i32
	}
	return out
}

// Apply-function local layout: arguments first (argCount of them), then
// four scratch locals.
func (l paramLayout) resultLenLocal() uint32    { return uint32(l.argCount()) }
func (l paramLayout) resultAddrLocal() uint32   { return uint32(l.argCount()) + 1 }
func (l paramLayout) returnAreaLocal() uint32   { return uint32(l.argCount()) + 2 }
func (l paramLayout) resultCursorLocal() uint32 { return uint32(l.argCount()) + 3 }

// genApplyFunc assembles the full function body: locals declaration,
// Phase A (length), Phase B (allocate), Phase C (cursor init), Phase D
// (write), per spec §4.3.
func genApplyFunc(file *ast.File, p *params.Params, layout paramLayout) []byte {
	pr := newFieldResolver(p, layout)

	var code []byte
	code = append(code, genLengthExpr(file.Nodes, pr)...)
	code = append(code, opLocalSet)
	code = append(code, encodeLEB128U(uint64(layout.resultLenLocal()))...)

	code = append(code, genAllocate(layout)...)

	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(layout.resultAddrLocal()))...)
	code = append(code, opLocalSet)
	code = append(code, encodeLEB128U(uint64(layout.resultCursorLocal()))...)

	code = append(code, genWrite(file.Nodes, pr, layout.resultCursorLocal())...)

	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(layout.returnAreaLocal()))...)
	code = append(code, opEnd)

	locals := encodeLocalsDecl(4, valI32)
	return append(locals, code...)
}

func encodeLocalsDecl(count int, typ byte) []byte {
	group := append(encodeLEB128U(uint64(count)), typ)
	return encodeVector(1, group)
}

// fieldResolver knows how to push a parameter's value onto the stack,
// whether the record arrived flat or spilled behind a pointer.
type fieldResolver struct {
	p      *params.Params
	layout paramLayout
}

func newFieldResolver(p *params.Params, layout paramLayout) *fieldResolver {
	return &fieldResolver{p: p, layout: layout}
}

const (
	fieldPtr byte = 0
	fieldLen byte = 1
)

// pushTextPtr/pushTextLen push a text parameter's string pointer/length.
func (r *fieldResolver) pushTextPtr(i int) []byte  { return r.pushTextField(i, fieldPtr) }
func (r *fieldResolver) pushTextLen(i int) []byte  { return r.pushTextField(i, fieldLen) }

func (r *fieldResolver) pushTextField(i int, field byte) []byte {
	if !r.layout.spill {
		localIdx := uint32(2*i) + uint32(field)
		return append([]byte{opLocalGet}, encodeLEB128U(uint64(localIdx))...)
	}
	// Spilled: the record pointer is local 0; each text parameter occupies
	// an 8-byte (ptr:i32, len:i32) slot, ordered by its index in the sorted
	// p.Text list.
	var code []byte
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(0)...)
	offset := uint64(8*i + 4*int(field))
	code = append(code, opI32Const)
	code = append(code, encodeLEB128S(int64(offset))...)
	code = append(code, opI32Add)
	code = append(code, opI32Load)
	code = append(code, memarg(2, 0)...)
	return code
}

// pushCond pushes a condition parameter's boolean (as i32 0/1).
func (r *fieldResolver) pushCond(j int) []byte {
	if !r.layout.spill {
		localIdx := uint32(2*r.layout.textCount + j)
		return append([]byte{opLocalGet}, encodeLEB128U(uint64(localIdx))...)
	}
	var code []byte
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(0)...)
	offset := uint64(8*r.layout.textCount + j)
	code = append(code, opI32Const)
	code = append(code, encodeLEB128S(int64(offset))...)
	code = append(code, opI32Add)
	code = append(code, opI32Load8U)
	code = append(code, memarg(0, 0)...)
	return code
}

// genAllocate implements Phase B: realloc the result buffer and the
// two-i32 return area, writing (ptr,len) into the return area (spec §4.3).
func genAllocate(layout paramLayout) []byte {
	var code []byte

	// result_addr = realloc(0, 0, 1, result_len)
	code = append(code, pushI32Const(0)...)
	code = append(code, pushI32Const(0)...)
	code = append(code, pushI32Const(1)...)
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(layout.resultLenLocal()))...)
	code = append(code, opCall)
	code = append(code, encodeLEB128U(reallocFuncIdx)...)
	code = append(code, opLocalSet)
	code = append(code, encodeLEB128U(uint64(layout.resultAddrLocal()))...)

	// return_area = realloc(0, 0, 4, 8)
	code = append(code, pushI32Const(0)...)
	code = append(code, pushI32Const(0)...)
	code = append(code, pushI32Const(4)...)
	code = append(code, pushI32Const(8)...)
	code = append(code, opCall)
	code = append(code, encodeLEB128U(reallocFuncIdx)...)
	code = append(code, opLocalSet)
	code = append(code, encodeLEB128U(uint64(layout.returnAreaLocal()))...)

	// return_area[0] = result_addr
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(layout.returnAreaLocal()))...)
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(layout.resultAddrLocal()))...)
	code = append(code, opI32Store)
	code = append(code, memarg(2, 0)...)

	// return_area[4] = result_len
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(layout.returnAreaLocal()))...)
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(layout.resultLenLocal()))...)
	code = append(code, opI32Store)
	code = append(code, memarg(2, 4)...)

	return code
}

func pushI32Const(v int64) []byte {
	return append([]byte{opI32Const}, encodeLEB128S(v)...)
}

// genLengthExpr implements Phase A (spec §4.3): for the given sequence,
// sum the conditionals' own (recursively computed) lengths, the fixed
// text owned directly by this sequence, and each referenced text
// parameter's length times its occurrence count in this sequence.
func genLengthExpr(nodes []ast.Node, pr *fieldResolver) []byte {
	var conditionals []*ast.ConditionalNode
	baseConstant := 0
	paramCounts := map[string]int{}
	var paramOrder []string

	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.TextNode:
			baseConstant += len(v.Bytes)
		case *ast.ParameterNode:
			if _, seen := paramCounts[v.Name]; !seen {
				paramOrder = append(paramOrder, v.Name)
			}
			paramCounts[v.Name]++
		case *ast.ConditionalNode:
			conditionals = append(conditionals, v)
		}
	}

	var code []byte
	wroteAny := false

	for _, c := range conditionals {
		body := genLengthExpr(c.Body, pr)
		branch := append([]byte{}, pr.pushCond(pr.p.CondIndex(c.CondName))...)
		branch = append(branch, opIf, blockI32)
		branch = append(branch, body...)
		branch = append(branch, opElse)
		branch = append(branch, pushI32Const(0)...)
		branch = append(branch, opEnd)

		if wroteAny {
			code = append(code, branch...)
			code = append(code, opI32Add)
		} else {
			code = append(code, branch...)
			wroteAny = true
		}
	}

	if wroteAny {
		code = append(code, pushI32Const(int64(baseConstant))...)
		code = append(code, opI32Add)
	} else {
		code = append(code, pushI32Const(int64(baseConstant))...)
	}

	for _, name := range paramOrder {
		idx := pr.p.TextIndex(name)
		code = append(code, pr.pushTextLen(idx)...)
		count := paramCounts[name]
		if count != 1 {
			code = append(code, pushI32Const(int64(count))...)
			code = append(code, opI32Mul)
		}
		code = append(code, opI32Add)
	}

	return code
}

// genWrite implements Phase D (spec §4.3): walk the same sequence in
// source order, copying each Text segment from its passive data segment
// and each Parameter's bytes from its (ptr,len) argument, advancing the
// cursor local after every emitted segment; a Conditional re-checks its
// guard and recurses without its own cursor-advance trailer.
func genWrite(nodes []ast.Node, pr *fieldResolver, cursor uint32) []byte {
	var code []byte

	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.TextNode:
			length := len(v.Bytes)
			code = append(code, opLocalGet)
			code = append(code, encodeLEB128U(uint64(cursor))...)
			code = append(code, pushI32Const(0)...)
			code = append(code, pushI32Const(int64(length))...)
			code = append(code, opMiscPrefix, opMiscMemInit)
			code = append(code, encodeLEB128U(uint64(v.Index))...)
			code = append(code, encodeLEB128U(0)...) // dest memory index
			code = append(code, advanceCursor(cursor, pushI32Const(int64(length)))...)

		case *ast.ParameterNode:
			idx := pr.p.TextIndex(v.Name)
			code = append(code, opLocalGet)
			code = append(code, encodeLEB128U(uint64(cursor))...)
			code = append(code, pr.pushTextPtr(idx)...)
			code = append(code, pr.pushTextLen(idx)...)
			code = append(code, opMiscPrefix, opMiscMemCopy)
			code = append(code, encodeLEB128U(0)...) // dest memory index
			code = append(code, encodeLEB128U(0)...) // src memory index
			code = append(code, advanceCursor(cursor, pr.pushTextLen(idx))...)

		case *ast.ConditionalNode:
			code = append(code, pr.pushCond(pr.p.CondIndex(v.CondName))...)
			code = append(code, opIf, blockVoid)
			code = append(code, genWrite(v.Body, pr, cursor)...)
			code = append(code, opEnd)
		}
	}

	return code
}

// advanceCursor emits `cursor = cursor + lengthExpr`.
func advanceCursor(cursor uint32, lengthExpr []byte) []byte {
	var code []byte
	code = append(code, opLocalGet)
	code = append(code, encodeLEB128U(uint64(cursor))...)
	code = append(code, lengthExpr...)
	code = append(code, opI32Add)
	code = append(code, opLocalSet)
	code = append(code, encodeLEB128U(uint64(cursor))...)
	return code
}
