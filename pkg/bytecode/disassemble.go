package bytecode

import (
	"fmt"
	"strings"

	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
)

// Disassemble renders every instruction in c as human-readable text, one
// line per instruction, prefixed with the chunk name. h resolves a CLOSURE
// instruction's function constant to its UpvalueCount so the trailing
// (is_local, index) operand pairs can be printed and skipped correctly; pass
// nil only when c is known to contain no OpClosure instructions, since a nil
// h makes every CLOSURE's upvalue count unknowable and the walk falls back
// to treating it as having none.
func Disassemble(c *Chunk, h *heap.Heap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", chunkName(c.Name))
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(&b, c, h, offset)
	}
	return b.String()
}

func chunkName(name string) string {
	if name == "" {
		return "<script>"
	}
	return name
}

// DisassembleInstruction writes one instruction at offset to b and returns
// the offset of the next instruction. h is used only to resolve a CLOSURE
// instruction's upvalue count; see Disassemble.
func DisassembleInstruction(b *strings.Builder, c *Chunk, h *heap.Heap, offset int) int {
	fmt.Fprintf(b, "%04d ", offset)
	line := c.GetLine(offset)
	if offset > 0 && line == c.GetLine(offset-1) {
		fmt.Fprintf(b, "   | ")
	} else {
		fmt.Fprintf(b, "%4d ", line)
	}

	op := Op(c.Code[offset])
	switch op {
	case OpNil, OpTrue, OpFalse, OpPop, OpDup, OpAdd, OpSub, OpMul, OpDiv, OpNeg, OpNot,
		OpEqual, OpGreater, OpLess, OpPrint, OpReturn, OpCloseUpvalue, OpInherit:
		return simpleInstruction(b, op, offset)

	case OpConstant, OpGetGlobal, OpSetGlobal, OpDefineGlobal, OpDefineGlobalConst,
		OpClass, OpMethod, OpGetProperty, OpSetProperty, OpGetSuper:
		return constantInstruction(b, c, op, offset, 1)
	case OpConstantLong, OpGetGlobalLong, OpSetGlobalLong, OpDefineGlobalLong,
		OpDefineGlobalConstLong, OpClassLong, OpMethodLong, OpGetPropertyLong, OpSetPropertyLong:
		return constantInstruction(b, c, op, offset, 3)

	case OpGetLocal, OpSetLocal, OpCall, OpGetUpvalue, OpSetUpvalue:
		return byteInstruction(b, c, op, offset)
	case OpGetLocalLong, OpSetLocalLong:
		return longIndexInstruction(b, c, op, offset)

	case OpJump, OpJumpIfFalse:
		return jumpInstruction(b, c, op, offset, 1)
	case OpLoop:
		return jumpInstruction(b, c, op, offset, -1)

	case OpClosure:
		return closureInstruction(b, c, h, offset)

	case OpInvoke, OpSuperInvoke:
		return invokeInstruction(b, c, op, offset)

	default:
		fmt.Fprintf(b, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(b *strings.Builder, op Op, offset int) int {
	fmt.Fprintf(b, "%s\n", op)
	return offset + 1
}

func byteInstruction(b *strings.Builder, c *Chunk, op Op, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(b, "%-18s %4d\n", op, slot)
	return offset + 2
}

func longIndexInstruction(b *strings.Builder, c *Chunk, op Op, offset int) int {
	idx := int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
	fmt.Fprintf(b, "%-18s %4d\n", op, idx)
	return offset + 4
}

func constantInstruction(b *strings.Builder, c *Chunk, op Op, offset int, width int) int {
	var idx int
	if width == 1 {
		idx = int(c.Code[offset+1])
	} else {
		idx = int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
	}
	rendered := renderConstant(c, idx)
	fmt.Fprintf(b, "%-18s %4d '%s'\n", op, idx, rendered)
	return offset + 1 + width
}

// renderConstant stringifies a constant-pool entry for disassembly without
// consulting the heap: Nil/Bool/Number render directly, everything
// heap-backed (a string, function, or nested object) renders as its kind
// tag.
func renderConstant(c *Chunk, idx int) string {
	if idx >= len(c.Constants) {
		return ""
	}
	v := c.Constants[idx]
	switch v.Kind {
	case value.KindNil, value.KindBool, value.KindNumber:
		return value.Stringify(nil, v, nil)
	default:
		return fmt.Sprintf("<%s>", v.Ref.Kind)
	}
}

func jumpInstruction(b *strings.Builder, c *Chunk, op Op, offset int, sign int) int {
	dist := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	target := offset + 3 + sign*dist
	fmt.Fprintf(b, "%-18s %4d -> %d\n", op, offset, target)
	return offset + 3
}

// closureInstruction prints the CLOSURE opcode and its constant-index
// operand, then resolves the function constant's UpvalueCount via h (when
// given) and delegates to DisassembleClosureUpvalues to print and skip the
// trailing (is_local, index) pairs. Without a usable h, those trailing
// bytes can't be located, so the walk has to assume there are none —
// desyncing the rest of the instruction stream if c does carry upvalues.
func closureInstruction(b *strings.Builder, c *Chunk, h *heap.Heap, offset int) int {
	idx := int(c.Code[offset+1])
	rendered := renderConstant(c, idx)
	fmt.Fprintf(b, "%-18s %4d '%s'\n", OpClosure, idx, rendered)
	next := offset + 2

	if h == nil || idx >= len(c.Constants) {
		return next
	}
	obj, ok := h.Function(c.Constants[idx].Ref)
	if !ok {
		return next
	}
	fn, ok := obj.(*FunctionObj)
	if !ok {
		return next
	}
	return DisassembleClosureUpvalues(b, c, next, int(fn.UpvalueCount))
}

// DisassembleClosureUpvalues appends the (is_local, index) operand pairs
// that follow a CLOSURE instruction's constant index, given the function's
// upvalue count.
func DisassembleClosureUpvalues(b *strings.Builder, c *Chunk, offset int, upvalueCount int) int {
	for i := 0; i < upvalueCount; i++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(b, "%04d      |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}

func invokeInstruction(b *strings.Builder, c *Chunk, op Op, offset int) int {
	idx := int(c.Code[offset+1])
	argc := int(c.Code[offset+2])
	rendered := renderConstant(c, idx)
	fmt.Fprintf(b, "%-18s (%d args) %4d '%s'\n", op, argc, idx, rendered)
	return offset + 3
}
