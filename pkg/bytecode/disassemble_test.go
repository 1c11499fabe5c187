package bytecode_test

import (
	"strings"
	"testing"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildClosureChunk mirrors pkg/compiler's OpClosure emission (compiler.go's
// function(), around the enclosing.chunk().WriteOp(bytecode.OpClosure, ...)
// call): a constant-pool entry holding the inner *bytecode.FunctionObj,
// followed by one (is_local, index) pair per captured upvalue, followed by
// an instruction that only parses correctly if the disassembler skipped
// those trailing bytes rather than treating them as the next opcode.
func buildClosureChunk(h *heap.Heap) *bytecode.Chunk {
	inner := &bytecode.FunctionObj{
		Chunk:        &bytecode.Chunk{Name: "inner"},
		UpvalueCount: 1,
	}
	inner.Chunk.WriteOp(bytecode.OpReturn, 1)

	outer := &bytecode.Chunk{Name: "outer"}
	idx, err := outer.AddConstant(value.Obj(h.NewFunction(inner)))
	if err != nil {
		panic(err)
	}
	outer.WriteOp(bytecode.OpClosure, 2)
	outer.Write(byte(idx), 2)
	outer.Write(1, 2) // is_local
	outer.Write(0, 2) // index
	outer.WriteOp(bytecode.OpReturn, 3)
	return outer
}

func TestDisassembleSkipsClosureUpvalueBytes(t *testing.T) {
	h := heap.New()
	c := buildClosureChunk(h)

	out := bytecode.Disassemble(c, h)

	assert.NotContains(t, out, "Unknown opcode")
	assert.Contains(t, out, "CLOSURE")
	assert.Contains(t, out, "local 0")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "RETURN")
}

func TestDisassembleInstructionAdvancesPastUpvalueBytes(t *testing.T) {
	h := heap.New()
	c := buildClosureChunk(h)

	var b strings.Builder
	next := bytecode.DisassembleInstruction(&b, c, h, 0)
	require.Equal(t, 4, next) // OP_CLOSURE + idx byte + one (is_local, index) pair

	b.Reset()
	finalOffset := bytecode.DisassembleInstruction(&b, c, h, next)
	assert.Equal(t, len(c.Code), finalOffset)
	assert.Contains(t, b.String(), "RETURN")
}

func TestDisassembleWithoutHeapDoesNotDesyncSingleInstruction(t *testing.T) {
	h := heap.New()
	c := buildClosureChunk(h)

	var b strings.Builder
	next := bytecode.DisassembleInstruction(&b, c, nil, 0)
	assert.Equal(t, 2, next) // no heap: can't resolve UpvalueCount, assumes none
}
