package vm_test

import (
	"bytes"
	"testing"

	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run compiles and interprets source against a fresh VM, returning stdout.
func run(t *testing.T, source string) (string, vm.Outcome, *vm.RuntimeError) {
	t.Helper()
	v := vm.New()
	fn, errs := compiler.Compile(source, v.Heap, false, false)
	require.Empty(t, errs, "unexpected compile errors")

	var out bytes.Buffer
	v.Stdout = &out
	outcome, rerr := v.Interpret(fn)
	return out.String(), outcome, rerr
}

func TestArithmeticPrecedence(t *testing.T) {
	out, outcome, err := run(t, `print 1 + 2 * 3;`)
	require.Nil(t, err)
	assert.Equal(t, vm.Ok, outcome)
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, _, err := run(t, `var a = "foo"; var b = "bar"; print a + b;`)
	require.Nil(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestRecursiveFibonacci(t *testing.T) {
	src := `fun fib(n){ if (n<2) return n; return fib(n-1)+fib(n-2); } print fib(10);`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "55\n", out)
}

func TestClosureCapturesOuterLocalAcrossCalls(t *testing.T) {
	src := `
		fun outer() {
			var x = 1;
			fun inner() { x = x + 1; print x; }
			return inner;
		}
		var f = outer();
		f();
		f();
	`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "2\n3\n", out)
}

func TestSuperclassMethodDispatch(t *testing.T) {
	src := `
		class A { greet() { print "hi"; } }
		class B < A { greet() { super.greet(); print "bye"; } }
		B().greet();
	`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "hi\nbye\n", out)
}

func TestForLoopAccumulation(t *testing.T) {
	src := `var s = 0; for (var i = 1; i <= 10; i = i + 1) s = s + i; print s;`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "55\n", out)
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, outcome, err := run(t, `print undefined_var;`)
	assert.Equal(t, vm.RuntimeErrorOutcome, outcome)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'undefined_var'.")
}

func TestConstReassignmentAtGlobalScopeIsRuntimeError(t *testing.T) {
	v := vm.New()
	fn, errs := compiler.Compile(`const c = 1; c = 2;`, v.Heap, false, false)
	require.Empty(t, errs)
	var out bytes.Buffer
	v.Stdout = &out
	outcome, err := v.Interpret(fn)
	assert.Equal(t, vm.RuntimeErrorOutcome, outcome)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Reassignment to global 'const'.")
}

func TestStringMinusStringIsRuntimeError(t *testing.T) {
	_, outcome, err := run(t, `"a" - "b";`)
	assert.Equal(t, vm.RuntimeErrorOutcome, outcome)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Operands must be numbers.")
}

func TestDeepRecursionOverflowsStack(t *testing.T) {
	src := `
		fun f(n) { if (n == 0) return 0; return 1 + f(n - 1); }
		print f(100);
	`
	_, outcome, err := run(t, src)
	assert.Equal(t, vm.RuntimeErrorOutcome, outcome)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Stack overflow.")
}

func TestClassFieldsAndMethods(t *testing.T) {
	src := `
		class Counter {
			init() { this.n = 0; }
			increment() { this.n = this.n + 1; return this.n; }
		}
		var c = Counter();
		print c.increment();
		print c.increment();
	`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "1\n2\n", out)
}

func TestGCStressDoesNotCorruptRunningProgram(t *testing.T) {
	v := vm.New()
	v.Heap.SetStressGC(true)
	src := `
		fun makeAdder(n) {
			fun add(x) { return x + n; }
			return add;
		}
		var add5 = makeAdder(5);
		print add5(10);
	`
	fn, errs := compiler.Compile(src, v.Heap, false, false)
	require.Empty(t, errs)
	var out bytes.Buffer
	v.Stdout = &out
	outcome, err := v.Interpret(fn)
	require.Nil(t, err)
	assert.Equal(t, vm.Ok, outcome)
	assert.Equal(t, "15\n", out.String())
}

func TestSwitchStatementMatchesSingleArm(t *testing.T) {
	src := `
		var n = 2;
		switch (n) {
			case 1: print "one";
			case 2: print "two";
			case 3: print "three";
			default: print "other";
		}
	`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "two\n", out)
}

func TestSwitchStatementFallsToDefault(t *testing.T) {
	src := `
		var n = 99;
		switch (n) {
			case 1: print "one";
			default: print "other";
		}
	`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "other\n", out)
}
