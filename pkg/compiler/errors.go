package compiler

import "fmt"

// CompileError is one diagnostic accumulated during compilation. The
// compiler never stops at the first error (spec §7): it enters panic mode,
// suppresses further noise until a synchronization point, and keeps
// collecting.
type CompileError struct {
	Message string
	Line    int
	Lexeme  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Lexeme, e.Message)
}
