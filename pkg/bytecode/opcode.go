// Package bytecode defines Ember's instruction encoding: a byte-addressed
// opcode stream, a run-length-encoded line table, and the Chunk that ties
// both to a constant pool. It also owns FunctionObj, the compiled-function
// shape the heap stores — Function sits here rather than in pkg/value so
// that a Chunk's constant pool (which holds value.Value, including nested
// function constants) can reference it without an import cycle.
package bytecode

// Op is a single-byte instruction opcode.
type Op byte

// Opcodes, grouped as in spec §4.2. Each comment notes its operand width.
const (
	// --- simple: no operand ---
	OpNil Op = iota
	OpTrue
	OpFalse
	OpPop
	OpDup
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpNot
	OpEqual
	OpGreater
	OpLess
	OpPrint
	OpReturn
	OpCloseUpvalue

	// --- byte operand (1 byte) ---
	OpConstant
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpDefineGlobalConst
	OpCall
	OpGetUpvalue
	OpSetUpvalue
	OpClass
	OpMethod
	OpGetProperty
	OpSetProperty
	OpInherit // no operand

	// --- long operand (3 bytes, big-endian) ---
	OpConstantLong
	OpGetLocalLong
	OpSetLocalLong
	OpGetGlobalLong
	OpSetGlobalLong
	OpDefineGlobalLong
	OpDefineGlobalConstLong
	OpClassLong
	OpMethodLong
	OpGetPropertyLong
	OpSetPropertyLong

	// --- jump (2 bytes, big-endian) ---
	OpJump
	OpJumpIfFalse
	OpLoop

	// --- variadic: constant index + upvalue_count * (is_local, index) ---
	OpClosure

	// --- invoke: name-constant index (1 byte) + argument count (1 byte) ---
	OpInvoke
	OpSuperInvoke
	OpGetSuper // name-constant index (1 byte) only
)

var names = map[Op]string{
	OpNil: "NIL", OpTrue: "TRUE", OpFalse: "FALSE", OpPop: "POP", OpDup: "DUP",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpNeg: "NEG", OpNot: "NOT",
	OpEqual: "EQUAL", OpGreater: "GREATER", OpLess: "LESS", OpPrint: "PRINT",
	OpReturn: "RETURN", OpCloseUpvalue: "CLOSE_UPVALUE",
	OpConstant: "CONSTANT", OpGetLocal: "GET_LOCAL", OpSetLocal: "SET_LOCAL",
	OpGetGlobal: "GET_GLOBAL", OpSetGlobal: "SET_GLOBAL",
	OpDefineGlobal: "DEFINE_GLOBAL", OpDefineGlobalConst: "DEFINE_GLOBAL_CONST",
	OpCall: "CALL", OpGetUpvalue: "GET_UPVALUE", OpSetUpvalue: "SET_UPVALUE",
	OpClass: "CLASS", OpMethod: "METHOD", OpGetProperty: "GET_PROPERTY",
	OpSetProperty: "SET_PROPERTY", OpInherit: "INHERIT",
	OpConstantLong: "CONSTANT_LONG", OpGetLocalLong: "GET_LOCAL_LONG",
	OpSetLocalLong: "SET_LOCAL_LONG", OpGetGlobalLong: "GET_GLOBAL_LONG",
	OpSetGlobalLong: "SET_GLOBAL_LONG", OpDefineGlobalLong: "DEFINE_GLOBAL_LONG",
	OpDefineGlobalConstLong: "DEFINE_GLOBAL_CONST_LONG", OpClassLong: "CLASS_LONG",
	OpMethodLong: "METHOD_LONG", OpGetPropertyLong: "GET_PROPERTY_LONG",
	OpSetPropertyLong: "SET_PROPERTY_LONG",
	OpJump:            "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpLoop: "LOOP",
	OpClosure: "CLOSURE", OpInvoke: "INVOKE", OpSuperInvoke: "SUPER_INVOKE",
	OpGetSuper: "GET_SUPER",
}

func (op Op) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "UNKNOWN"
}

// LongCounterpart maps a short constant/local opcode to its 3-byte-operand
// counterpart, used by the compiler when an index no longer fits one byte.
var LongCounterpart = map[Op]Op{
	OpConstant:           OpConstantLong,
	OpGetLocal:           OpGetLocalLong,
	OpSetLocal:           OpSetLocalLong,
	OpGetGlobal:          OpGetGlobalLong,
	OpSetGlobal:          OpSetGlobalLong,
	OpDefineGlobal:       OpDefineGlobalLong,
	OpDefineGlobalConst:  OpDefineGlobalConstLong,
	OpClass:              OpClassLong,
	OpMethod:             OpMethodLong,
	OpGetProperty:        OpGetPropertyLong,
	OpSetProperty:        OpSetPropertyLong,
}

// IsLong reports whether op is one of the 3-byte-operand long forms.
func IsLong(op Op) bool {
	switch op {
	case OpConstantLong, OpGetLocalLong, OpSetLocalLong, OpGetGlobalLong, OpSetGlobalLong,
		OpDefineGlobalLong, OpDefineGlobalConstLong, OpClassLong, OpMethodLong,
		OpGetPropertyLong, OpSetPropertyLong:
		return true
	}
	return false
}
