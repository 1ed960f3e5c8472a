package disasm

import (
	"fmt"

	"github.com/chazu/pexkit/pex"
)

// StructureError reports a conditional jump sequence that matches no IF or
// WHILE shape. Lines holds everything rendered before the failure, with
// the enclosing blocks' headers already in place. Consumed is the index of
// the first instruction that was not rendered.
type StructureError struct {
	Lines    []string
	Consumed int
	Reason   string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("disasm: cannot structure code at instruction %d: %s", e.Consumed, e.Reason)
}

// wrap returns a copy of e with prefix placed before its lines.
func (e *StructureError) wrap(prefix []string) *StructureError {
	lines := make([]string, 0, len(prefix)+len(e.Lines))
	lines = append(lines, prefix...)
	lines = append(lines, e.Lines...)
	return &StructureError{Lines: lines, Consumed: e.Consumed, Reason: e.Reason}
}

// LookupError reports an instruction whose rendering needs the declared
// type of a variable the function does not declare.
type LookupError struct {
	Name   string
	Opcode pex.Opcode
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("disasm: %s needs the type of undeclared variable %q", e.Opcode, e.Name)
}
