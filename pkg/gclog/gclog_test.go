package gclog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/gclog"
	"github.com/kristofer/ember/pkg/heap"
)

func TestLoggerWritesOneLinePerCollection(t *testing.T) {
	var out bytes.Buffer
	l := gclog.NewLogger(&out)
	h := heap.New()
	l.Attach(h)

	h.SetStressGC(true)
	h.NewString("trigger")
	h.Collect(func(mark func(heap.Ref)) {})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[gc ")
	assert.Contains(t, lines[0], "#1]")
	assert.Contains(t, lines[0], "next at")
}

func TestLoggerTagsDistinctSessions(t *testing.T) {
	var a, b bytes.Buffer
	la := gclog.NewLogger(&a)
	lb := gclog.NewLogger(&b)
	ha, hb := heap.New(), heap.New()
	la.Attach(ha)
	lb.Attach(hb)

	ha.Collect(func(mark func(heap.Ref)) {})
	hb.Collect(func(mark func(heap.Ref)) {})

	assert.NotEqual(t, a.String(), b.String())
}
