// Package compiler implements Ember's single-pass Pratt compiler: it pulls
// tokens from a pkg/scanner.Scanner and emits pkg/bytecode instructions
// directly, never building an intermediate AST. A nested stack of compile
// states — one per function currently being compiled — tracks locals,
// upvalues, and scope depth; a parallel stack of classCompiler frames tracks
// superclass state while compiling a class body.
package compiler

import (
	"strconv"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/scanner"
	"github.com/kristofer/ember/pkg/value"
)

// FunctionType distinguishes the top-level script, a plain function, a
// method, and a class's init method — the last two see an implicit `this`
// in local slot 0, and an initializer's bare `return` yields `this` instead
// of Nil (spec §4.3).
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

// maxLocals bounds how many locals (and temporaries) a single function may
// declare — GET_LOCAL/SET_LOCAL address the locals vector by index, so it
// must fit the byte/long index split pkg/bytecode encodes.
const maxLocals = 1 << 24

// maxUpvalues is spec §4.3's "maximum 256 upvalues per function".
const maxUpvalues = 256

// maxArity is spec §8's "function arity 255 must succeed, 256 must fail".
const maxArity = 255

// local is one entry of a compile state's locals vector. depth == -1 means
// "declared but not yet initialized" (spec §4.3 variable-resolution rule 1).
type local struct {
	name       string
	depth      int
	isCaptured bool
	isConst    bool
}

// upvalueRef is one entry of a compile state's upvalue table.
type upvalueRef struct {
	index   byte
	isLocal bool
}

// loopState tracks the innermost enclosing loop so `continue` knows where to
// jump back to and how many locals to pop first.
type loopState struct {
	enclosing  *loopState
	start      int // LOOP target: the increment clause for `for`, the top for `while`
	scopeDepth int
	breaks     []int // offsets of JUMP placeholders emitted by `break`, patched at loop end
}

// classCompiler tracks nested class-compilation state; only its
// hasSuperclass flag is consulted, by `super` resolution.
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// state is one nested compile frame: the function under construction plus
// everything scoped to it. Top-level code compiles into an implicit
// TypeScript function with an empty name (spec §4.3).
type state struct {
	enclosing *state

	function     *bytecode.FunctionObj
	functionType FunctionType

	locals     []local
	scopeDepth int
	upvalues   []upvalueRef

	loop *loopState
}

func (s *state) chunk() *bytecode.Chunk { return s.function.Chunk }

// Compiler drives the whole compilation: token stream, error accumulation,
// and the current nested state/class stacks.
type Compiler struct {
	scan *scanner.Scanner
	heap *heap.Heap

	current  scanner.Token
	previous scanner.Token

	hadError  bool
	panicMode bool
	errors    []*CompileError

	cur   *state
	class *classCompiler

	// Lenient records whether the session runs in "lenient" property-access
	// mode. The compiler emits the same code either way; the miss handling
	// (Nil instead of "Undefined property 'X'.") is done by the VM's own
	// Lenient field.
	Lenient bool

	// Strict disables the long (3-byte) constant/local operand forms; an
	// over-sized constant pool or locals vector fails compilation instead
	// of silently switching encodings (spec §4.2's "strict standards"
	// mode).
	Strict bool
}

// Compile compiles source into a top-level FunctionObj, along with the
// accumulated errors (nil on success); callers must check len(errs)
// == 0 before handing the function to the VM (spec §7: a CompileError means
// nothing executes).
func Compile(source string, h *heap.Heap, lenient bool, strict bool) (*bytecode.FunctionObj, []*CompileError) {
	c := &Compiler{scan: scanner.New(source), heap: h, Lenient: lenient, Strict: strict}
	c.cur = c.newState(nil, TypeScript, "")
	c.advance()

	for !c.check(scanner.Eof) {
		c.declaration()
	}
	c.consume(scanner.Eof, "Expect end of expression.")

	fn := c.endFunction()
	return fn, c.errors
}

func (c *Compiler) newState(enclosing *state, ft FunctionType, name string) *state {
	var nameRef heap.Ref
	if name != "" {
		nameRef = c.heap.NewString(name)
	}
	fn := &bytecode.FunctionObj{Name: nameRef, Chunk: &bytecode.Chunk{Name: name}}
	s := &state{enclosing: enclosing, function: fn, functionType: ft}

	// Slot 0 is reserved: `this` for methods/initializers, the callee
	// closure itself (unnamed, unreadable) for plain functions and script.
	slotName := ""
	if ft == TypeMethod || ft == TypeInitializer {
		slotName = "this"
	}
	s.locals = append(s.locals, local{name: slotName, depth: 0})
	return s
}

// --- token plumbing -------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scan.Next()
		if c.current.Kind != scanner.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k scanner.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k scanner.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k scanner.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok scanner.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	lexeme := tok.Lexeme
	if tok.Kind == scanner.Eof {
		lexeme = "end"
	}
	c.errors = append(c.errors, &CompileError{Message: msg, Line: tok.Line, Lexeme: lexeme})
}

// synchronize skips tokens until a plausible statement boundary, per spec
// §4.3's panic/synchronize protocol.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != scanner.Eof {
		if c.previous.Kind == scanner.Semicolon {
			return
		}
		switch c.current.Kind {
		case scanner.Class, scanner.Fun, scanner.Var, scanner.Const, scanner.For,
			scanner.If, scanner.While, scanner.Print, scanner.Return, scanner.Switch:
			return
		}
		c.advance()
	}
}

// --- emission helpers ------------------------------------------------------

func (c *Compiler) line() int { return c.previous.Line }

func (c *Compiler) emit(op bytecode.Op) { c.cur.chunk().WriteOp(op, c.line()) }

func (c *Compiler) emitByte(b byte) { c.cur.chunk().Write(b, c.line()) }

func (c *Compiler) emitConstantValue(v value.Value) {
	idx, err := c.cur.chunk().AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return
	}
	if idx > 0xFF && c.Strict {
		c.error("Too many constants in one chunk.")
		return
	}
	c.cur.chunk().WriteConstant(idx, c.line())
}

func (c *Compiler) identifierConstant(name string) int {
	idx, err := c.cur.chunk().AddConstant(value.Obj(c.heap.NewString(name)))
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return idx
}

func (c *Compiler) emitIndexed(op bytecode.Op, idx int) {
	if idx > 0xFF && c.Strict {
		c.error("Too many constants in one chunk.")
		return
	}
	c.cur.chunk().EmitIndexed(op, idx, c.line())
}

func (c *Compiler) emitJump(op bytecode.Op) int {
	return c.cur.chunk().EmitJump(op, c.line())
}

func (c *Compiler) patchJump(offset int) {
	if err := c.cur.chunk().PatchJump(offset); err != nil {
		c.error("Too much code to jump over.")
	}
}

func (c *Compiler) emitLoop(start int) {
	if err := c.cur.chunk().EmitLoop(start, c.line()); err != nil {
		c.error("Loop body too large.")
	}
}

func (c *Compiler) emitReturn() {
	if c.cur.functionType == TypeInitializer {
		c.cur.chunk().EmitIndexed(bytecode.OpGetLocal, 0, c.line())
	} else {
		c.emit(bytecode.OpNil)
	}
	c.emit(bytecode.OpReturn)
}

// endFunction closes off the current compile state and pops back to its
// enclosing one, returning the finished function.
func (c *Compiler) endFunction() *bytecode.FunctionObj {
	c.emitReturn()
	fn := c.cur.function
	fn.UpvalueCount = byte(len(c.cur.upvalues))
	c.cur = c.cur.enclosing
	return fn
}

// --- scope & locals ---------------------------------------------------------

func (c *Compiler) beginScope() { c.cur.scopeDepth++ }

func (c *Compiler) endScope() {
	c.cur.scopeDepth--
	locals := c.cur.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.cur.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			c.emit(bytecode.OpCloseUpvalue)
		} else {
			c.emit(bytecode.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	c.cur.locals = locals
}

func (c *Compiler) addLocal(name string, isConst bool) {
	if len(c.cur.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.cur.locals = append(c.cur.locals, local{name: name, depth: -1, isConst: isConst})
}

func (c *Compiler) declareVariable(isConst bool) {
	if c.cur.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := len(c.cur.locals) - 1; i >= 0; i-- {
		l := c.cur.locals[i]
		if l.depth != -1 && l.depth < c.cur.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name, isConst)
}

func (c *Compiler) markInitialized() {
	if c.cur.scopeDepth == 0 {
		return
	}
	c.cur.locals[len(c.cur.locals)-1].depth = c.cur.scopeDepth
}

// resolveLocal implements spec §4.3 rule 1.
func (c *Compiler) resolveLocal(s *state, name string) (int, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			if s.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue implements spec §4.3 rule 2, recursing into enclosing
// compile states and deduplicating by (index, isLocal).
func (c *Compiler) resolveUpvalue(s *state, name string) (int, bool) {
	if s.enclosing == nil {
		return 0, false
	}
	if idx, ok := c.resolveLocal(s.enclosing, name); ok {
		s.enclosing.locals[idx].isCaptured = true
		return c.addUpvalue(s, byte(idx), true), true
	}
	if idx, ok := c.resolveUpvalue(s.enclosing, name); ok {
		return c.addUpvalue(s, byte(idx), false), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(s *state, index byte, isLocal bool) int {
	for i, u := range s.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(s.upvalues) >= maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	s.upvalues = append(s.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(s.upvalues) - 1
}

// --- declarations & statements ---------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(scanner.Class):
		c.classDeclaration()
	case c.match(scanner.Fun):
		c.funDeclaration()
	case c.match(scanner.Var):
		c.varDeclaration(false)
	case c.match(scanner.Const):
		c.varDeclaration(true)
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) parseVariable(msg string, isConst bool) int {
	c.consume(scanner.Identifier, msg)
	c.declareVariable(isConst)
	if c.cur.scopeDepth > 0 {
		return -1
	}
	return c.identifierConstant(c.previous.Lexeme)
}

func (c *Compiler) defineVariable(global int, isConst bool) {
	if c.cur.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	op := bytecode.OpDefineGlobal
	if isConst {
		op = bytecode.OpDefineGlobalConst
	}
	c.emitIndexed(op, global)
}

func (c *Compiler) varDeclaration(isConst bool) {
	global := c.parseVariable("Expect variable name.", isConst)
	if c.match(scanner.Equal) {
		c.expression()
	} else {
		c.emit(bytecode.OpNil)
	}
	c.consume(scanner.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global, isConst)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.", false)
	c.markInitialized()
	c.function(TypeFunction)
	c.defineVariable(global, false)
}

func (c *Compiler) function(ft FunctionType) {
	name := c.previous.Lexeme
	enclosing := c.cur
	c.cur = c.newState(enclosing, ft, name)
	c.beginScope()

	c.consume(scanner.LeftParen, "Expect '(' after function name.")
	arity := 0
	if !c.check(scanner.RightParen) {
		for {
			arity++
			if arity > maxArity {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := c.parseVariable("Expect parameter name.", false)
			c.defineVariable(paramConst, false)
			if !c.match(scanner.Comma) {
				break
			}
		}
	}
	c.consume(scanner.RightParen, "Expect ')' after parameters.")
	c.consume(scanner.LeftBrace, "Expect '{' before function body.")
	c.block()

	inner := c.cur
	fn := c.endFunction()
	fn.Arity = byte(arity)
	fn.IsInitializer = ft == TypeInitializer

	idx, err := enclosing.chunk().AddConstant(value.Obj(c.heap.NewFunction(fn)))
	if err != nil {
		c.error(err.Error())
		return
	}
	enclosing.chunk().WriteOp(bytecode.OpClosure, c.line())
	if idx > 0xFF {
		c.error("Too many constants in one chunk.")
		return
	}
	enclosing.chunk().Write(byte(idx), c.line())
	for _, u := range inner.upvalues {
		isLocal := byte(0)
		if u.isLocal {
			isLocal = 1
		}
		enclosing.chunk().Write(isLocal, c.line())
		enclosing.chunk().Write(u.index, c.line())
	}
}

func (c *Compiler) classDeclaration() {
	c.consume(scanner.Identifier, "Expect class name.")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok.Lexeme)
	c.declareVariable(false)

	c.emitIndexed(bytecode.OpClass, nameConst)
	c.defineVariable(nameConst, false)

	cc := &classCompiler{enclosing: c.class}
	c.class = cc

	if c.match(scanner.Less) {
		c.consume(scanner.Identifier, "Expect superclass name.")
		c.namedVariable(c.previous, false)
		if c.previous.Lexeme == nameTok.Lexeme {
			c.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super", true)
		c.markInitialized()

		c.namedVariable(nameTok, false)
		c.emit(bytecode.OpInherit)
		cc.hasSuperclass = true
	}

	c.namedVariable(nameTok, false)
	c.consume(scanner.LeftBrace, "Expect '{' before class body.")
	for !c.check(scanner.RightBrace) && !c.check(scanner.Eof) {
		c.method()
	}
	c.consume(scanner.RightBrace, "Expect '}' after class body.")
	c.emit(bytecode.OpPop)

	if cc.hasSuperclass {
		c.endScope()
	}
	c.class = cc.enclosing
}

func (c *Compiler) method() {
	c.consume(scanner.Identifier, "Expect method name.")
	name := c.previous.Lexeme
	nameConst := c.identifierConstant(name)

	ft := TypeMethod
	if name == "init" {
		ft = TypeInitializer
	}
	c.function(ft)
	c.emitIndexed(bytecode.OpMethod, nameConst)
}

func (c *Compiler) statement() {
	switch {
	case c.match(scanner.Print):
		c.printStatement()
	case c.match(scanner.If):
		c.ifStatement()
	case c.match(scanner.Return):
		c.returnStatement()
	case c.match(scanner.While):
		c.whileStatement()
	case c.match(scanner.For):
		c.forStatement()
	case c.match(scanner.Switch):
		c.switchStatement()
	case c.match(scanner.Continue):
		c.continueStatement()
	case c.match(scanner.Break):
		c.breakStatement()
	case c.match(scanner.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(scanner.RightBrace) && !c.check(scanner.Eof) {
		c.declaration()
	}
	c.consume(scanner.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after value.")
	c.emit(bytecode.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after expression.")
	c.emit(bytecode.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(scanner.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emit(bytecode.OpPop)

	if c.match(scanner.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) returnStatement() {
	if c.cur.functionType == TypeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(scanner.Semicolon) {
		c.emitReturn()
		return
	}
	if c.cur.functionType == TypeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after return value.")
	c.emit(bytecode.OpReturn)
}

func (c *Compiler) whileStatement() {
	loop := &loopState{enclosing: c.cur.loop, start: len(c.cur.chunk().Code), scopeDepth: c.cur.scopeDepth}
	c.cur.loop = loop

	c.consume(scanner.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emit(bytecode.OpPop)
	c.statement()
	c.emitLoop(loop.start)

	c.patchJump(exitJump)
	c.emit(bytecode.OpPop)
	c.patchLoopBreaks(loop)
	c.cur.loop = loop.enclosing
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(scanner.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(scanner.Semicolon):
		// no initializer
	case c.match(scanner.Var):
		c.varDeclaration(false)
	default:
		c.expressionStatement()
	}

	loopStart := len(c.cur.chunk().Code)
	loop := &loopState{enclosing: c.cur.loop, start: loopStart, scopeDepth: c.cur.scopeDepth}
	c.cur.loop = loop

	exitJump := -1
	if !c.match(scanner.Semicolon) {
		c.expression()
		c.consume(scanner.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emit(bytecode.OpPop)
	}

	if !c.match(scanner.RightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.cur.chunk().Code)
		c.expression()
		c.emit(bytecode.OpPop)
		c.consume(scanner.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		loop.start = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(bytecode.OpPop)
	}
	c.patchLoopBreaks(loop)
	c.cur.loop = loop.enclosing
	c.endScope()
}

// switchStatement implements spec §4.3: dup the subject, compare each case
// with EQUAL, JUMP_IF_FALSE past its body; a single trailing POP removes
// the subject after whichever arm (or none) ran. A matched case's body
// jumps past every remaining arm and `default` once it finishes — cases
// don't fall into one another, matching the original implementation's
// per-arm bodies (§4, supplemented by the `break`/`continue` keywords for
// loops, not needed here since each arm is already self-contained).
func (c *Compiler) switchStatement() {
	c.consume(scanner.LeftParen, "Expect '(' after 'switch'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after switch subject.")
	c.consume(scanner.LeftBrace, "Expect '{' before switch body.")

	var endJumps []int
	sawDefault := false
	for c.match(scanner.Case) {
		if sawDefault {
			c.error("'case' cannot follow 'default'.")
		}
		c.emit(bytecode.OpDup)
		c.expression()
		c.consume(scanner.Colon, "Expect ':' after case value.")
		c.emit(bytecode.OpEqual)
		bodyJump := c.emitJump(bytecode.OpJumpIfFalse)
		c.emit(bytecode.OpPop)

		c.beginScope()
		for !c.check(scanner.Case) && !c.check(scanner.Default) && !c.check(scanner.RightBrace) && !c.check(scanner.Eof) {
			c.declaration()
		}
		c.endScope()
		endJumps = append(endJumps, c.emitJump(bytecode.OpJump))
		c.patchJump(bodyJump)
		c.emit(bytecode.OpPop)
	}

	if c.match(scanner.Default) {
		sawDefault = true
		c.consume(scanner.Colon, "Expect ':' after 'default'.")
		c.beginScope()
		for !c.check(scanner.RightBrace) && !c.check(scanner.Eof) {
			c.declaration()
		}
		c.endScope()
	}

	c.consume(scanner.RightBrace, "Expect '}' after switch body.")
	for _, j := range endJumps {
		c.patchJump(j)
	}
	c.emit(bytecode.OpPop) // the subject
}

func (c *Compiler) continueStatement() {
	if c.cur.loop == nil {
		c.error("Can't use 'continue' outside of a loop.")
		c.consume(scanner.Semicolon, "Expect ';' after 'continue'.")
		return
	}
	c.popLocalsToDepth(c.cur.loop.scopeDepth)
	c.emitLoop(c.cur.loop.start)
	c.consume(scanner.Semicolon, "Expect ';' after 'continue'.")
}

func (c *Compiler) breakStatement() {
	if c.cur.loop == nil {
		c.error("Can't use 'break' outside of a loop.")
		c.consume(scanner.Semicolon, "Expect ';' after 'break'.")
		return
	}
	c.popLocalsToDepth(c.cur.loop.scopeDepth)
	j := c.emitJump(bytecode.OpJump)
	c.cur.loop.breaks = append(c.cur.loop.breaks, j)
	c.consume(scanner.Semicolon, "Expect ';' after 'break'.")
}

func (c *Compiler) patchLoopBreaks(loop *loopState) {
	for _, j := range loop.breaks {
		c.patchJump(j)
	}
}

// popLocalsToDepth emits POP/CLOSE_UPVALUE for every local declared at a
// scope deeper than target, without mutating the locals vector — used by
// `continue`/`break`, which jump out of scopes the compiler must otherwise
// unwind normally when control simply falls through.
func (c *Compiler) popLocalsToDepth(target int) {
	for i := len(c.cur.locals) - 1; i >= 0; i-- {
		if c.cur.locals[i].depth <= target {
			break
		}
		if c.cur.locals[i].isCaptured {
			c.emit(bytecode.OpCloseUpvalue)
		} else {
			c.emit(bytecode.OpPop)
		}
	}
}

// --- named-variable helper shared by expressions and class compilation ----

func (c *Compiler) namedVariable(tok scanner.Token, canAssign bool) {
	name := tok.Lexeme
	getOp, setOp := bytecode.OpGetLocal, bytecode.OpSetLocal
	idx, ok := c.resolveLocal(c.cur, name)
	isConst := ok && c.cur.locals[idx].isConst
	if !ok {
		if uidx, uok := c.resolveUpvalue(c.cur, name); uok {
			idx, ok = uidx, true
			getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
		}
	}
	if !ok {
		idx = c.identifierConstant(name)
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(scanner.Equal) {
		if isConst {
			c.error("Reassignment to local 'const'.")
		}
		c.expression()
		c.emitIndexed(setOp, idx)
	} else {
		c.emitIndexed(getOp, idx)
	}
}

// numberLiteral parses the previous token (a Number) into a float64.
func numberLiteral(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}
