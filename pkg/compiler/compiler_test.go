package compiler_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paramList returns n distinct parameter names, comma-separated.
func paramList(n int) string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("p%d", i)
	}
	return strings.Join(names, ", ")
}

func TestCompileSimpleArithmeticHasNoErrors(t *testing.T) {
	h := heap.New()
	_, errs := compiler.Compile(`print 1 + 2 * 3;`, h, false, false)
	assert.Empty(t, errs)
}

func TestCompileReportsSyntaxError(t *testing.T) {
	h := heap.New()
	_, errs := compiler.Compile(`var x = ;`, h, false, false)
	require.NotEmpty(t, errs)
}

func TestCompileRejectsSelfReferencingInitializer(t *testing.T) {
	h := heap.New()
	_, errs := compiler.Compile(`{ var a = a; }`, h, false, false)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "own initializer")
}

func TestCompileRejectsReturnOutsideFunction(t *testing.T) {
	h := heap.New()
	_, errs := compiler.Compile(`return 1;`, h, false, false)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "top-level")
}

func TestCompileAcceptsClassWithSuperclass(t *testing.T) {
	h := heap.New()
	src := `
		class A { greet() { print "hi"; } }
		class B < A { greet() { super.greet(); print "bye"; } }
		B().greet();
	`
	_, errs := compiler.Compile(src, h, false, false)
	assert.Empty(t, errs)
}

func TestCompileRejectsSuperOutsideClass(t *testing.T) {
	h := heap.New()
	_, errs := compiler.Compile(`super.greet();`, h, false, false)
	require.NotEmpty(t, errs)
}

func TestCompileRejectsConstReassignment(t *testing.T) {
	h := heap.New()
	_, errs := compiler.Compile(`{ const c = 1; c = 2; }`, h, false, false)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "const")
}

func TestCompileFunctionEmitsClosureWithUpvalue(t *testing.T) {
	h := heap.New()
	src := `
		fun outer() {
			var x = 1;
			fun inner() { x = x + 1; print x; }
			return inner;
		}
	`
	fn, errs := compiler.Compile(src, h, false, false)
	require.Empty(t, errs)
	require.NotNil(t, fn)
}

func TestCompileSwitchStatement(t *testing.T) {
	h := heap.New()
	src := `
		var n = 2;
		switch (n) {
			case 1: print "one";
			case 2: print "two";
			default: print "other";
		}
	`
	_, errs := compiler.Compile(src, h, false, false)
	assert.Empty(t, errs)
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	h := heap.New()
	_, errs := compiler.Compile(`break;`, h, false, false)
	require.NotEmpty(t, errs)
}

func TestCompileFunctionArity255Succeeds(t *testing.T) {
	h := heap.New()
	src := fmt.Sprintf(`fun f(%s) { return 0; }`, paramList(255))
	fn, errs := compiler.Compile(src, h, false, false)
	require.Empty(t, errs)
	require.NotNil(t, fn)
	require.Len(t, fn.Chunk.Constants, 2)
	obj, ok := h.Function(fn.Chunk.Constants[1].Ref)
	require.True(t, ok)
	inner, ok := obj.(*bytecode.FunctionObj)
	require.True(t, ok)
	assert.EqualValues(t, 255, inner.Arity)
}

func TestCompileFunctionArity256Fails(t *testing.T) {
	h := heap.New()
	src := fmt.Sprintf(`fun f(%s) { return 0; }`, paramList(256))
	_, errs := compiler.Compile(src, h, false, false)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "Can't have more than 255 parameters.")
}

func TestCompileForLoopWithContinue(t *testing.T) {
	h := heap.New()
	src := `
		var s = 0;
		for (var i = 1; i <= 10; i = i + 1) {
			if (i == 5) continue;
			s = s + i;
		}
		print s;
	`
	_, errs := compiler.Compile(src, h, false, false)
	assert.Empty(t, errs)
}
