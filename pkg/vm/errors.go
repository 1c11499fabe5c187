package vm

import (
	"fmt"
	"strings"
)

// Frame is one entry of a RuntimeError's trace: the source line of the
// instruction that was executing (or about to resume) in that call, and the
// enclosing function's name (empty for the top-level frame, which Error
// renders as "script").
type Frame struct {
	FunctionName string
	Line         int
}

// RuntimeError is returned by Interpret when a running program hits a
// failure described in spec §4.4.3/§7: one message plus a stack trace from
// the innermost frame outward. There is no recovery; the VM's call state
// must not be reused afterward, though the heap may be (REPL mode).
type RuntimeError struct {
	Message string
	Frames  []Frame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Frames {
		name := f.FunctionName
		if name == "" {
			name = "script"
		}
		fmt.Fprintf(&b, "\n[line %d] in %s", f.Line, name)
	}
	return b.String()
}

func newRuntimeError(message string, frames []Frame) *RuntimeError {
	return &RuntimeError{Message: message, Frames: frames}
}
