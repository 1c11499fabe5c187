package native_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/native"
	"github.com/kristofer/ember/pkg/vm"
)

func run(t *testing.T, source string) (string, vm.Outcome, *vm.RuntimeError) {
	t.Helper()
	v := vm.New()
	native.Register(v)
	fn, errs := compiler.Compile(source, v.Heap, false, false)
	require.Empty(t, errs, "unexpected compile errors")

	var out bytes.Buffer
	v.Stdout = &out
	outcome, rerr := v.Interpret(fn)
	return out.String(), outcome, rerr
}

func TestSqrtComputesRoot(t *testing.T) {
	out, _, err := run(t, `print sqrt(16);`)
	require.Nil(t, err)
	assert.Equal(t, "4\n", out)
}

func TestTypeReportsKind(t *testing.T) {
	out, _, err := run(t, `print type(1); print type("s"); print type(nil); print type(true);`)
	require.Nil(t, err)
	assert.Equal(t, "number\nstring\nnil\nbool\n", out)
}

func TestStrStringifiesAnyValue(t *testing.T) {
	out, _, err := run(t, `print str(1) + "!";`)
	require.Nil(t, err)
	assert.Equal(t, "1!\n", out)
}

func TestLenOnStringCountsRunes(t *testing.T) {
	out, _, err := run(t, `print len("hello");`)
	require.Nil(t, err)
	assert.Equal(t, "5\n", out)
}

func TestLenOnInstanceCountsFields(t *testing.T) {
	src := `
		class Point { init(x, y) { this.x = x; this.y = y; } }
		print len(Point(1, 2));
	`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "2\n", out)
}

func TestLenRejectsNumbers(t *testing.T) {
	_, outcome, err := run(t, `print len(1);`)
	assert.Equal(t, vm.RuntimeErrorOutcome, outcome)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "len() expects a string or instance")
}

func TestUUIDProducesDistinctStrings(t *testing.T) {
	out, _, err := run(t, `var a = uuid(); var b = uuid(); print a == b; print len(a);`)
	require.Nil(t, err)
	assert.Equal(t, "false\n36\n", out)
}

func TestHumanBytesFormatsSize(t *testing.T) {
	out, _, err := run(t, `print humanBytes(1000000);`)
	require.Nil(t, err)
	assert.Equal(t, "1.0 MB\n", out)
}

func TestClockReturnsANumber(t *testing.T) {
	out, _, err := run(t, `print type(clock());`)
	require.Nil(t, err)
	assert.Equal(t, "number\n", out)
}

func TestGCStatsReturnsAnInstanceWithFields(t *testing.T) {
	src := `
		var s = gcStats();
		print type(s);
		print type(s.bytesAllocated);
		print type(s.nextGC);
	`
	out, _, err := run(t, src)
	require.Nil(t, err)
	assert.Equal(t, "instance\nnumber\nnumber\n", out)
}

func TestSqrtRejectsNonNumberArgument(t *testing.T) {
	_, outcome, err := run(t, `sqrt("nope");`)
	assert.Equal(t, vm.RuntimeErrorOutcome, outcome)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "sqrt() expects a number")
}
