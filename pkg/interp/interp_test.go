package interp_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/interp"
	"github.com/kristofer/ember/pkg/vm"
)

func TestInterpretRunsSource(t *testing.T) {
	i := interp.New()
	var out bytes.Buffer
	i.VM.Stdout = &out

	outcome, err := i.Interpret([]byte(`print 1 + 2 * 3;`))
	require.Nil(t, err)
	assert.Equal(t, vm.Ok, outcome)
	assert.Equal(t, "7\n", out.String())
}

func TestInterpretReportsCompileErrorsWithoutRunning(t *testing.T) {
	i := interp.New()
	var out bytes.Buffer
	i.VM.Stdout = &out

	outcome, err := i.Interpret([]byte(`print ;`))
	assert.Equal(t, vm.CompileErrorOutcome, outcome)
	assert.Nil(t, err)
	assert.Equal(t, "", out.String())
	require.NotEmpty(t, i.Errors())
}

func TestInterpretReportsRuntimeErrors(t *testing.T) {
	i := interp.New()
	var out bytes.Buffer
	i.VM.Stdout = &out

	outcome, err := i.Interpret([]byte(`print undefined_var;`))
	assert.Equal(t, vm.RuntimeErrorOutcome, outcome)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'undefined_var'.")
}

func TestInterpretReusesGlobalsAcrossCallsForREPL(t *testing.T) {
	i := interp.New()
	var out bytes.Buffer
	i.VM.Stdout = &out

	outcome, err := i.Interpret([]byte(`var x = 10;`))
	require.Nil(t, err)
	require.Equal(t, vm.Ok, outcome)

	outcome, err = i.Interpret([]byte(`print x + 1;`))
	require.Nil(t, err)
	require.Equal(t, vm.Ok, outcome)
	assert.Equal(t, "11\n", out.String())
}

func TestInterpretNativesAreAvailable(t *testing.T) {
	i := interp.New()
	var out bytes.Buffer
	i.VM.Stdout = &out

	outcome, err := i.Interpret([]byte(`print type(sqrt(4));`))
	require.Nil(t, err)
	assert.Equal(t, vm.Ok, outcome)
	assert.Equal(t, "number\n", out.String())
}
