package heap_test

import (
	"testing"

	"github.com/kristofer/ember/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObj struct {
	children []heap.Ref
}

func (f *fakeObj) Trace(mark func(heap.Ref)) {
	for _, c := range f.children {
		mark(c)
	}
}

func TestStringRoundTrip(t *testing.T) {
	h := heap.New()
	ref := h.NewString("hello")
	got, ok := h.String(ref)
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestStaleRefAfterSweep(t *testing.T) {
	h := heap.New()
	garbage := h.NewString("garbage")
	h.Collect(func(mark func(heap.Ref)) {})

	_, ok := h.String(garbage)
	assert.False(t, ok, "unreached string should be freed by sweep")
}

func TestReachableSurvivesCollect(t *testing.T) {
	h := heap.New()
	kept := h.NewString("kept")
	h.Collect(func(mark func(heap.Ref)) { mark(kept) })

	got, ok := h.String(kept)
	require.True(t, ok)
	assert.Equal(t, "kept", got)
}

func TestTraceReachesChildren(t *testing.T) {
	h := heap.New()
	leaf := h.NewString("leaf")
	parent := h.NewObject(&fakeObj{children: []heap.Ref{leaf}})

	h.Collect(func(mark func(heap.Ref)) { mark(parent) })

	_, ok := h.Object(parent)
	require.True(t, ok)
	_, ok = h.String(leaf)
	assert.True(t, ok, "child reachable only via Trace must survive")
}

func TestCyclicObjectsCollectTogetherWhenUnreachable(t *testing.T) {
	h := heap.New()
	a := &fakeObj{}
	b := &fakeObj{}
	refA := h.NewObject(a)
	refB := h.NewObject(b)
	a.children = []heap.Ref{refB}
	b.children = []heap.Ref{refA}

	h.Collect(func(mark func(heap.Ref)) {})

	_, okA := h.Object(refA)
	_, okB := h.Object(refB)
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestGenerationPreventsUseAfterReuse(t *testing.T) {
	h := heap.New()
	first := h.NewString("first")
	h.Collect(func(mark func(heap.Ref)) {}) // frees "first", recycles its slot
	second := h.NewString("second")

	_, ok := h.String(first)
	assert.False(t, ok, "stale ref into a recycled slot must not resolve")
	got, ok := h.String(second)
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestNextGCGrowsByGrowFactor(t *testing.T) {
	h := heap.New()
	kept := h.NewString("0123456789")
	h.Collect(func(mark func(heap.Ref)) { mark(kept) })
	assert.GreaterOrEqual(t, h.NextGC(), h.BytesAllocated())
}

func TestStressGCForcesNeedsGC(t *testing.T) {
	h := heap.New()
	assert.False(t, h.NeedsGC())
	h.SetStressGC(true)
	assert.True(t, h.NeedsGC())
}
