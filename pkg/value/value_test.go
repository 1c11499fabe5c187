package value_test

import (
	"math"
	"testing"

	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
	"github.com/stretchr/testify/assert"
)

func TestIsFalsey(t *testing.T) {
	assert.True(t, value.Nil.IsFalsey())
	assert.True(t, value.False.IsFalsey())
	assert.False(t, value.True.IsFalsey())
	assert.False(t, value.Number(0).IsFalsey())
	assert.False(t, value.Number(1).IsFalsey())
}

func TestEqualNilAndNaN(t *testing.T) {
	h := heap.New()
	assert.True(t, value.Equal(value.Nil, value.Nil, h))
	nan := value.Number(math.NaN())
	assert.False(t, value.Equal(nan, nan, h))
}

func TestEqualStringsByContent(t *testing.T) {
	h := heap.New()
	a := value.Obj(h.NewString("hi"))
	b := value.Obj(h.NewString("hi"))
	assert.True(t, value.Equal(a, b, h))

	c := value.Obj(h.NewString("bye"))
	assert.False(t, value.Equal(a, c, h))
}

func TestEqualObjectsByReference(t *testing.T) {
	h := heap.New()
	inst1 := &value.InstanceObj{Fields: map[string]value.Value{}}
	inst2 := &value.InstanceObj{Fields: map[string]value.Value{}}
	a := value.Obj(h.NewObject(inst1))
	b := value.Obj(h.NewObject(inst2))
	assert.False(t, value.Equal(a, b, h))
	assert.True(t, value.Equal(a, a, h))
}

func TestTypeName(t *testing.T) {
	h := heap.New()
	assert.Equal(t, "nil", value.TypeName(h, value.Nil))
	assert.Equal(t, "bool", value.TypeName(h, value.True))
	assert.Equal(t, "number", value.TypeName(h, value.Number(1)))
	assert.Equal(t, "string", value.TypeName(h, value.Obj(h.NewString("x"))))
}

func TestStringifyNumbers(t *testing.T) {
	h := heap.New()
	assert.Equal(t, "7", value.Stringify(h, value.Number(7), nil))
	assert.Equal(t, "3.5", value.Stringify(h, value.Number(3.5), nil))
	assert.Equal(t, "nil", value.Stringify(h, value.Nil, nil))
	assert.Equal(t, "true", value.Stringify(h, value.True, nil))
}
