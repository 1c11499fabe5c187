// Package interp provides Ember's embedding API (spec §6): a single type
// that owns a *vm.VM and its heap, and drives a source string through
// pkg/scanner/pkg/compiler/pkg/vm end to end, surfacing the Outcome/error
// split spec §7 requires without making callers wire the three packages
// together themselves.
package interp

import (
	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/native"
	"github.com/kristofer/ember/pkg/value"
	"github.com/kristofer/ember/pkg/vm"
)

// Interpreter is one embedding session: a VM plus the last run's compile
// diagnostics, if any.
type Interpreter struct {
	VM *vm.VM

	// Lenient, when true, is copied to the VM (and passed to Compile) so a
	// GET_PROPERTY that finds neither a field nor a method on an instance
	// yields nil instead of a runtime error (cmd/ember's --std flag).
	// Property access on a non-instance still fails.
	Lenient bool

	// Strict, when true, is threaded into Compile and disables the long
	// (3-byte) constant/local operand forms: an over-sized constant pool
	// or locals vector fails compilation instead of silently switching
	// encodings (spec §4.2's "strict standards" mode).
	Strict bool

	lastErrors []*compiler.CompileError
}

// New constructs an Interpreter with an empty heap and the native library
// (spec §3's DOMAIN STACK) already registered.
func New() *Interpreter {
	v := vm.New()
	native.Register(v)
	return &Interpreter{VM: v}
}

// DefineNative registers an additional native under name (spec §6's
// define_native), beyond pkg/native's defaults.
func (i *Interpreter) DefineNative(name string, arity int, fn value.NativeFunc) {
	i.VM.DefineNative(name, arity, fn)
}

// Interpret compiles and runs source against the Interpreter's VM. A
// CompileError outcome means nothing executed; call Errors for the
// accumulated diagnostics. A RuntimeError outcome comes with the fault as
// the second return value.
func (i *Interpreter) Interpret(source []byte) (vm.Outcome, *vm.RuntimeError) {
	i.VM.Lenient = i.Lenient
	fn, errs := compiler.Compile(string(source), i.VM.Heap, i.Lenient, i.Strict)
	i.lastErrors = errs
	if len(errs) > 0 {
		return vm.CompileErrorOutcome, nil
	}
	return i.VM.Interpret(fn)
}

// Errors returns the compile diagnostics from the most recent Interpret
// call, or nil if it compiled cleanly.
func (i *Interpreter) Errors() []*compiler.CompileError {
	return i.lastErrors
}
