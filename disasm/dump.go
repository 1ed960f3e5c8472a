package disasm

import (
	"strings"

	"github.com/chazu/pexkit/pex"
)

// Dump renders one instruction as its mnemonic followed by its operands.
// A nil instruction, as left behind by the fold pass, renders as DELETED.
func Dump(ins *pex.Instruction) string {
	if ins == nil {
		return "DELETED"
	}
	var sb strings.Builder
	sb.WriteString(ins.Op.String())
	for _, a := range ins.Args {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	return sb.String()
}
