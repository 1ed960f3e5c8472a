package disasm

import (
	"fmt"
	"strings"

	"github.com/chazu/pexkit/pex"
)

// bare renders an operand in a position that needs no grouping: the
// right-hand side of an assignment, a call argument or an index.
func bare(op pex.Operand) string {
	if op.Kind == pex.KindTerm {
		return op.Text
	}
	return op.String()
}

func joinArgs(args []pex.Operand) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = bare(a)
	}
	return strings.Join(parts, ", ")
}

// expression renders the value an instruction computes into its
// destination.
func (d *Disassembler) expression(ins *pex.Instruction) (string, error) {
	info := ins.Op.Info()
	a := ins.Args
	switch info.Category {
	case pex.CatBinary:
		return fmt.Sprintf("%s %s %s", a[1], info.Symbol, a[2]), nil
	case pex.CatUnary:
		return info.Symbol + a[1].String(), nil
	case pex.CatAssign:
		return bare(a[1]), nil
	case pex.CatCast:
		typ, err := d.typeOf(a[0], ins.Op)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s as %s", a[1], typ), nil
	case pex.CatCall:
		args := joinArgs(ins.Tail())
		switch ins.Op {
		case pex.OpCallMethod:
			return fmt.Sprintf("%s.%s(%s)", a[1], a[0], args), nil
		case pex.OpCallParent:
			return fmt.Sprintf("parent.%s(%s)", a[0], args), nil
		default:
			return fmt.Sprintf("%s.%s(%s)", a[0], a[1], args), nil
		}
	case pex.CatPropGet:
		return fmt.Sprintf("%s.%s", a[1], a[0]), nil
	case pex.CatArrayCreate:
		typ, err := d.typeOf(a[0], ins.Op)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("new %s[%s]", strings.TrimSuffix(typ, "[]"), bare(a[1])), nil
	case pex.CatArrayLength:
		return a[1].String() + ".Length", nil
	case pex.CatArrayGet:
		return fmt.Sprintf("%s[%s]", a[1], bare(a[2])), nil
	case pex.CatArrayFind:
		switch ins.Op {
		case pex.OpArrayFind:
			return fmt.Sprintf("%s.Find(%s, %s)", a[0], bare(a[2]), bare(a[3])), nil
		case pex.OpArrayRFind:
			return fmt.Sprintf("%s.RFind(%s, %s)", a[0], bare(a[2]), bare(a[3])), nil
		case pex.OpArrayFindStruct:
			return fmt.Sprintf("%s.FindStruct(%q, %s, %s)", a[0], a[2].Name(), bare(a[3]), bare(a[4])), nil
		default:
			return fmt.Sprintf("%s.RFindStruct(%q, %s, %s)", a[0], a[2].Name(), bare(a[3]), bare(a[4])), nil
		}
	case pex.CatIs:
		return fmt.Sprintf("%s is %s", a[1], a[2]), nil
	case pex.CatStructCreate:
		typ, err := d.typeOf(a[0], ins.Op)
		if err != nil {
			return "", err
		}
		return "new " + typ, nil
	case pex.CatStructGet:
		return fmt.Sprintf("%s.%s", a[1], a[2]), nil
	}
	return "", fmt.Errorf("disasm: %s has no value", ins.Op)
}

// statement renders a non-branching instruction as one source line.
// Instructions with nothing to show return "".
func (d *Disassembler) statement(ins *pex.Instruction) (string, error) {
	a := ins.Args
	switch ins.Op.Info().Category {
	case pex.CatNop, pex.CatJump, pex.CatCondJump:
		return "", nil
	case pex.CatReturn:
		if a[0].Kind == pex.KindNone {
			return "RETURN", nil
		}
		return "RETURN " + bare(a[0]), nil
	case pex.CatPropSet:
		return fmt.Sprintf("%s.%s = %s", a[1], a[0], bare(a[2])), nil
	case pex.CatArraySet:
		return fmt.Sprintf("%s[%s] = %s", a[0], bare(a[1]), bare(a[2])), nil
	case pex.CatStructSet:
		return fmt.Sprintf("%s.%s = %s", a[0], a[1], bare(a[2])), nil
	case pex.CatArrayMutate:
		switch ins.Op {
		case pex.OpArrayAdd:
			return fmt.Sprintf("%s.Add(%s, %s)", a[0], bare(a[1]), bare(a[2])), nil
		case pex.OpArrayInsert:
			return fmt.Sprintf("%s.Insert(%s, %s)", a[0], bare(a[1]), bare(a[2])), nil
		case pex.OpArrayRemoveLast:
			return a[0].String() + ".RemoveLast()", nil
		case pex.OpArrayRemove:
			return fmt.Sprintf("%s.Remove(%s, %s)", a[0], bare(a[1]), bare(a[2])), nil
		default:
			return a[0].String() + ".Clear()", nil
		}
	}

	expr, err := d.expression(ins)
	if err != nil {
		return "", err
	}
	dest, _ := ins.Dest()
	if pex.IsNoneVarName(dest.Name()) {
		return expr, nil
	}
	return d.declare(dest) + dest.String() + " = " + expr, nil
}

// declare returns "Type " the first time a local is assigned, "" otherwise.
func (d *Disassembler) declare(dest pex.Operand) string {
	if !dest.IsIdentifier() || pex.IsTempName(dest.Name()) {
		return ""
	}
	key := strings.ToLower(dest.Name())
	v, ok := d.types[key]
	if !ok || v.Role != pex.RoleLocal || d.declared[key] {
		return ""
	}
	d.declared[key] = true
	return v.Type.String() + " "
}
