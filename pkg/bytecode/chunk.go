package bytecode

import (
	"fmt"

	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
)

// lineRun run-length-encodes one source line's span of instruction bytes, so
// a Chunk doesn't pay one int per byte for debug info (spec §4.2).
type lineRun struct {
	line  int
	count int
}

// MaxConstants bounds the long-form constant pool: the 3-byte big-endian
// operand can address up to 2^24 entries, but a Chunk is also addressed by
// the compiler's own int, so this is the practical ceiling Ember enforces.
const MaxConstants = 1 << 24

// MaxJump is the largest forward/backward distance JUMP, JUMP_IF_FALSE, and
// LOOP can encode in their 2-byte operand (spec §8: 65535 succeeds, 65536
// must fail to compile).
const MaxJump = 1<<16 - 1

// Chunk is one compiled function's code: a flat byte stream, the constant
// pool it indexes into, and a run-length line table mapping code offsets
// back to source lines for error reporting and disassembly.
type Chunk struct {
	Code      []byte
	Constants []value.Value
	Name      string
	lines     []lineRun
}

// Write appends a single instruction byte and records its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	if n := len(c.lines); n > 0 && c.lines[n-1].line == line {
		c.lines[n-1].count++
		return
	}
	c.lines = append(c.lines, lineRun{line: line, count: 1})
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op Op, line int) {
	c.Write(byte(op), line)
}

// writeUint24 appends a 3-byte big-endian operand.
func (c *Chunk) writeUint24(n int, line int) {
	c.Write(byte(n>>16), line)
	c.Write(byte(n>>8), line)
	c.Write(byte(n), line)
}

// writeUint16 appends a 2-byte big-endian operand.
func (c *Chunk) writeUint16(n int, line int) {
	c.Write(byte(n>>8), line)
	c.Write(byte(n), line)
}

// AddConstant appends v to the constant pool and returns its index. Callers
// choose the short or long opcode form based on the returned index.
func (c *Chunk) AddConstant(v value.Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("too many constants in one chunk")
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}

// WriteConstant emits a CONSTANT or CONSTANT_LONG instruction for the given
// pool index, picking the narrowest encoding that fits.
func (c *Chunk) WriteConstant(index int, line int) {
	c.emitIndexed(OpConstant, index, line)
}

// emitIndexed emits op (or its long counterpart, looked up via
// LongCounterpart) with a 1- or 3-byte operand depending on whether index
// fits in a single byte.
func (c *Chunk) emitIndexed(op Op, index int, line int) {
	if index <= 0xFF {
		c.WriteOp(op, line)
		c.Write(byte(index), line)
		return
	}
	long, ok := LongCounterpart[op]
	if !ok {
		panic(fmt.Sprintf("bytecode: %s has no long counterpart", op))
	}
	c.WriteOp(long, line)
	c.writeUint24(index, line)
}

// EmitIndexed is the exported form of emitIndexed, used by the compiler for
// every opcode that addresses the constant pool or the local-slot array by
// index (GET_LOCAL, GET_GLOBAL, CLASS, METHOD, GET_PROPERTY, ...).
func (c *Chunk) EmitIndexed(op Op, index int, line int) {
	c.emitIndexed(op, index, line)
}

// EmitJump writes a jump opcode followed by a 2-byte placeholder operand and
// returns the offset of the first placeholder byte, to be passed to
// PatchJump once the target address is known.
func (c *Chunk) EmitJump(op Op, line int) int {
	c.WriteOp(op, line)
	c.Write(0xFF, line)
	c.Write(0xFF, line)
	return len(c.Code) - 2
}

// PatchJump backfills the placeholder at offset with the distance from the
// end of the jump instruction to the current end of the chunk. It fails if
// that distance exceeds MaxJump (spec §8).
func (c *Chunk) PatchJump(offset int) error {
	dist := len(c.Code) - offset - 2
	if dist > MaxJump {
		return fmt.Errorf("jump distance %d exceeds maximum of %d", dist, MaxJump)
	}
	c.Code[offset] = byte(dist >> 8)
	c.Code[offset+1] = byte(dist)
	return nil
}

// EmitLoop writes a LOOP instruction jumping back to loopStart. It fails if
// the backward distance exceeds MaxJump.
func (c *Chunk) EmitLoop(loopStart int, line int) error {
	c.WriteOp(OpLoop, line)
	dist := len(c.Code) - loopStart + 2
	if dist > MaxJump {
		return fmt.Errorf("loop body too large to jump over (%d bytes)", dist)
	}
	c.writeUint16(dist, line)
	return nil
}

// GetLine returns the source line recorded for the instruction at byte
// offset, walking the run-length table.
func (c *Chunk) GetLine(offset int) int {
	remaining := offset
	for _, run := range c.lines {
		if remaining < run.count {
			return run.line
		}
		remaining -= run.count
	}
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[len(c.lines)-1].line
}

// FunctionObj is a compiled function or method body, the heap's function-
// arena payload. The top-level script itself is a FunctionObj with an empty
// Name and zero Arity, matching spec §4.3's "implicit top-level function."
type FunctionObj struct {
	Arity         byte
	UpvalueCount  byte
	IsInitializer bool
	Name          heap.Ref // RefString; zero value for the top-level script
	Chunk         *Chunk
}

// Trace marks the function's name and any heap-allocated constants (nested
// function objects, interned strings) its own constant pool holds.
func (f *FunctionObj) Trace(mark func(heap.Ref)) {
	if f.Name.Valid() {
		mark(f.Name)
	}
	for _, k := range f.Chunk.Constants {
		if k.Kind == value.KindObj {
			mark(k.Ref)
		}
	}
}
