package disasm

import (
	"errors"
	"strings"

	"github.com/chazu/pexkit/pex"
)

// Disassembler holds the working state for one function.
type Disassembler struct {
	code     []*pex.Instruction // working copy; nil marks a folded instruction
	orig     []*pex.Instruction
	types    map[string]pex.VariableType
	declared map[string]bool
	temps    map[string]pex.Operand
	folded   bool
}

// New prepares code for disassembly. types lists the parameters and locals
// of the function, optionally followed by the object's variables; it is
// used to resolve CAST and constructor target types and to emit local
// declarations. The instructions themselves are never modified.
func New(code []*pex.Instruction, types []pex.VariableType) *Disassembler {
	d := &Disassembler{
		code:     make([]*pex.Instruction, len(code)),
		orig:     code,
		types:    make(map[string]pex.VariableType, len(types)),
		declared: make(map[string]bool),
		temps:    make(map[string]pex.Operand),
	}
	for i, ins := range code {
		if ins != nil {
			d.code[i] = ins.Clone()
		}
	}
	for _, v := range types {
		key := strings.ToLower(v.Name.String())
		// parameters and locals shadow object variables
		if _, ok := d.types[key]; ok && v.Role == pex.RoleVariable {
			continue
		}
		d.types[key] = v
	}
	return d
}

// Disassemble renders code at the given level. On a *StructureError the
// returned lines are still usable: they end with raw dumps of the
// instructions that could not be structured.
func Disassemble(code []*pex.Instruction, types []pex.VariableType, level Level) ([]string, error) {
	return New(code, types).Lines(level)
}

// Function disassembles f. objectVars are consulted for variable types
// after f's own parameters and locals.
func Function(f *pex.Function, level Level, objectVars ...pex.VariableType) ([]string, error) {
	types := f.Types()
	types = append(types, objectVars...)
	return Disassemble(f.Code, types, level)
}

// Code returns the working copy. Folded instructions are nil.
func (d *Disassembler) Code() []*pex.Instruction {
	return d.code
}

// Lines runs the fold pass, if it has not run yet, and renders the code.
func (d *Disassembler) Lines(level Level) ([]string, error) {
	if !d.folded {
		if _, err := d.Fold(); err != nil {
			return nil, err
		}
	}

	switch level {
	case Stripped:
		return nil, nil
	case Raw:
		var lines []string
		for _, ins := range d.code {
			if ins != nil {
				lines = append(lines, Dump(ins))
			}
		}
		return lines, nil
	}

	d.declared = make(map[string]bool)
	lines, err := d.block(0, len(d.code), 0)
	if err == nil {
		return lines, nil
	}
	var se *StructureError
	if !errors.As(err, &se) {
		return nil, err
	}
	lines = append([]string(nil), se.Lines...)
	for _, ins := range d.code[se.Consumed:] {
		lines = append(lines, Dump(ins))
	}
	return lines, se
}

// ---------------------------------------------------------------------------
// Fold pass
// ---------------------------------------------------------------------------

// Fold inlines temporaries and returns the number of instructions it
// deleted. Running it again deletes nothing further.
func (d *Disassembler) Fold() (int, error) {
	d.folded = true
	d.temps = make(map[string]pex.Operand)
	deleted := 0
	for i, ins := range d.code {
		if ins == nil {
			continue
		}
		info := ins.Op.Info()
		for k := range ins.Args {
			if k == info.Dest || k < info.Callee || k == info.Member {
				continue
			}
			a := ins.Args[k]
			if !a.IsIdentifier() {
				continue
			}
			if term, ok := d.temps[strings.ToLower(a.Name())]; ok {
				ins.Args[k] = term
			}
		}

		dest, ok := ins.Dest()
		if !ok || !isFoldable(dest) {
			continue
		}
		term, err := d.replacement(ins)
		if err != nil {
			return deleted, err
		}
		d.temps[strings.ToLower(dest.Name())] = term
		d.code[i] = nil
		deleted++
	}
	return deleted, nil
}

// isFoldable reports whether writes to op can be inlined into its readers.
func isFoldable(op pex.Operand) bool {
	if !op.IsIdentifier() {
		return false
	}
	name := op.Name()
	return pex.IsTempName(name) && !pex.IsAutoVarName(name) && !pex.IsNoneVarName(name)
}

// replacement is the operand substituted for a temporary defined by ins.
// Plain copies pass their source through so that literals stay bare.
func (d *Disassembler) replacement(ins *pex.Instruction) (pex.Operand, error) {
	if ins.Op == pex.OpAssign {
		src := ins.Args[1]
		if src.Kind.Synthetic() {
			return src, nil
		}
		return pex.Literal(src.String()), nil
	}
	expr, err := d.expression(ins)
	if err != nil {
		return pex.Operand{}, err
	}
	return pex.Term(expr), nil
}

// typeOf returns the declared type of the variable named by op.
func (d *Disassembler) typeOf(op pex.Operand, opcode pex.Opcode) (string, error) {
	if op.IsIdentifier() {
		if v, ok := d.types[strings.ToLower(op.Name())]; ok {
			return v.Type.String(), nil
		}
	}
	return "", &LookupError{Name: op.String(), Opcode: opcode}
}
