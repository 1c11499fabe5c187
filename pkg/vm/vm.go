// Package vm implements Ember's stack-based bytecode virtual machine: the
// dispatch loop, the call-frame stack, upvalue capture/close, method
// dispatch across closures/classes/bound methods/natives, and the trigger
// point for pkg/heap's collector.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
)

// StackMax is spec §4.4's operand stack capacity (64 frames * 256 locals).
const StackMax = 64 * 256

// FramesMax is spec §4.4's call-frame stack capacity; spec §8 requires
// depth 64 to fail with "Stack overflow."
const FramesMax = 64

// global is one globals-table entry: its current value and whether it was
// declared with `const` (spec §4.4's DEFINE_GLOBAL_CONST).
type global struct {
	value   value.Value
	mutable bool
}

// frame is one active call: its closure, program counter, and the base
// index into the VM's operand stack where its locals begin.
type frame struct {
	closure heap.Ref // RefObject -> *value.ClosureObj
	ip      int
	base    int
}

// VM is one interpreter session: its heap, operand stack, call-frame stack,
// globals table, and the list of open upvalues (descending by stack index,
// per spec §3's invariant).
type VM struct {
	Heap *heap.Heap

	stack []value.Value
	frames []frame

	globals map[string]global

	// openUpvalues is sorted descending by StackIndex; capture_upvalue and
	// close_upvalues (spec §4.4.2) both depend on that ordering.
	openUpvalues []heap.Ref

	// Stdout/Stderr route PRINT output and trace diagnostics; New sets
	// them to os.Stdout/os.Stderr, and callers may replace them.
	Stdout io.Writer
	Stderr io.Writer

	TraceExecution bool
	Lenient        bool
	StressGC       bool

	natives map[string]*value.NativeObj
}

// New constructs a VM with an empty heap and no natives registered; callers
// wire natives in with DefineNative before the first Interpret (spec §6's
// embedding API).
func New() *VM {
	h := heap.New()
	vm := &VM{
		Heap:    h,
		stack:   make([]value.Value, 0, StackMax),
		frames:  make([]frame, 0, FramesMax),
		globals: make(map[string]global),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		natives: make(map[string]*value.NativeObj),
	}
	return vm
}

// DefineNative registers a native function under name, reachable from
// Ember source as a global (spec §6's define_native).
func (vm *VM) DefineNative(name string, arity int, fn value.NativeFunc) {
	native := &value.NativeObj{Name: name, Arity: arity, Fn: fn}
	ref := vm.Heap.NewObject(native)
	vm.globals[name] = global{value: value.Obj(ref), mutable: true}
	vm.natives[name] = native
}

// Outcome is Interpret's result tag (spec §6).
type Outcome int

const (
	Ok Outcome = iota
	CompileErrorOutcome
	RuntimeErrorOutcome
)

// Interpret runs one compiled top-level function to completion. The VM's
// stack and frames are reset before each call, so the same VM (and its
// heap, globals) may be reused across REPL inputs (spec §7).
func (vm *VM) Interpret(script *bytecode.FunctionObj) (Outcome, *RuntimeError) {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil

	closure := &value.ClosureObj{Function: vm.Heap.NewFunction(script)}
	closureRef := vm.Heap.NewObject(closure)
	vm.push(value.Obj(closureRef))
	if err := vm.callValue(value.Obj(closureRef), 0); err != nil {
		return RuntimeErrorOutcome, err
	}

	if err := vm.run(); err != nil {
		return RuntimeErrorOutcome, err
	}
	return Ok, nil
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	n := len(vm.stack)
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) currentFrame() *frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) closureOf(f *frame) *value.ClosureObj {
	obj, _ := vm.Heap.Object(f.closure)
	c, _ := obj.(*value.ClosureObj)
	return c
}

func (vm *VM) functionOf(c *value.ClosureObj) *bytecode.FunctionObj {
	obj, _ := vm.Heap.Function(c.Function)
	fn, _ := obj.(*bytecode.FunctionObj)
	return fn
}

func (vm *VM) funcName(r heap.Ref) (string, bool) {
	obj, ok := vm.Heap.Function(r)
	if !ok {
		return "", false
	}
	fn, ok := obj.(*bytecode.FunctionObj)
	if !ok {
		return "", false
	}
	if !fn.Name.Valid() {
		return "", true
	}
	name, _ := vm.Heap.String(fn.Name)
	return name, true
}

func (vm *VM) stringify(v value.Value) string {
	return value.Stringify(vm.Heap, v, vm.funcName)
}

// runtimeError builds a RuntimeError whose trace walks the frame stack
// innermost-first, per spec §4.4.3.
func (vm *VM) runtimeError(format string, args ...interface{}) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	var frames []Frame
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		closure := vm.closureOf(f)
		fn := vm.functionOf(closure)
		name := ""
		if fn.Name.Valid() {
			name, _ = vm.Heap.String(fn.Name)
		}
		// the instruction that faulted is the one just executed, i.e. the
		// byte before the current (already-advanced) ip.
		line := fn.Chunk.GetLine(f.ip - 1)
		if f.ip-1 < 0 {
			line = fn.Chunk.GetLine(0)
		}
		frames = append(frames, Frame{FunctionName: name, Line: line})
	}
	return newRuntimeError(msg, frames)
}
