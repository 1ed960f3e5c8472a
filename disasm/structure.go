package disasm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/pexkit/pex"
)

// patternKind distinguishes the two recognized jump shapes.
type patternKind uint8

const (
	patternIf patternKind = iota
	patternWhile
)

// pattern is a recognized conditional block. All positions are absolute
// instruction indices.
//
//	start:     first conditional jump of the condition
//	terminal:  JMPF closing the condition; the body starts after it
//	jump:      JMP ending the body, at terminal+offset-1
//	falseEnd:  end of the ELSE range (IF only)
type pattern struct {
	kind     patternKind
	cond     string
	start    int
	terminal int
	jump     int
	falseEnd int
}

// next is the index following the whole construct.
func (p *pattern) next() int {
	if p.kind == patternWhile {
		return p.jump + 1
	}
	return p.falseEnd
}

// link is one conditional jump of a condition chain. tested is the
// lower-cased name the jump tested before folding, "" for a non-identifier.
type link struct {
	index  int
	op     pex.Opcode
	cond   pex.Operand
	target int
	tested string
}

// scan recognizes the construct whose condition starts at ptr. The chain is
// the run of conditional jumps from ptr; the condition ends at the last
// JMPF of the run that closes an IF or WHILE shape and whose preceding
// jumps all resolve inside the condition.
func (d *Disassembler) scan(ptr, end int) (*pattern, error) {
	var chain []link
	for q := ptr; q < end; q++ {
		ins := d.code[q]
		if ins == nil {
			continue
		}
		if !ins.Op.IsConditional() {
			break
		}
		off, ok := ins.JumpOffset()
		if !ok {
			return nil, &StructureError{Consumed: ptr, Reason: fmt.Sprintf("%s at %d has no integer offset", ins.Op, q)}
		}
		chain = append(chain, link{index: q, op: ins.Op, cond: ins.Args[0], target: q + off, tested: d.tested(q)})
	}

	reason := fmt.Sprintf("conditional jumps at %d do not end in an IF or WHILE shape", ptr)
	for m := len(chain) - 1; m >= 0; m-- {
		p, err := d.closing(chain[m], end)
		if err != nil {
			reason = err.Error()
			continue
		}
		cond, err := d.condition(chain[:m+1], p.jump+1)
		if err != nil {
			reason = err.Error()
			continue
		}
		if m == 0 && chain[0].cond.Kind == pex.KindTerm {
			cond = chain[0].cond.Text
		}
		p.cond = cond
		p.start = ptr
		return p, nil
	}
	return nil, &StructureError{Consumed: ptr, Reason: reason}
}

// tested returns the lower-cased identifier the original instruction at q
// tests.
func (d *Disassembler) tested(q int) string {
	ins := d.orig[q]
	if ins == nil || len(ins.Args) == 0 || !ins.Args[0].IsIdentifier() {
		return ""
	}
	return strings.ToLower(ins.Args[0].Name())
}

// closing checks whether l ends a condition: a JMPF over a body that ends
// with a JMP.
func (d *Disassembler) closing(l link, end int) (*pattern, error) {
	if l.op != pex.OpJmpF {
		return nil, fmt.Errorf("%s at %d cannot close a condition", l.op, l.index)
	}
	j := l.target - 1
	if j <= l.index || j >= end {
		return nil, fmt.Errorf("JMPF at %d targets %d, outside the block ending at %d", l.index, l.target, end)
	}
	jmp := d.code[j]
	if jmp == nil || jmp.Op != pex.OpJmp {
		return nil, fmt.Errorf("JMPF at %d is not followed by a JMP at %d", l.index, j)
	}
	o2, ok := jmp.JumpOffset()
	if !ok {
		return nil, fmt.Errorf("JMP at %d has no integer offset", j)
	}
	if o2 <= 0 {
		return &pattern{kind: patternWhile, terminal: l.index, jump: j}, nil
	}
	if j+o2 > end {
		return nil, fmt.Errorf("ELSE branch of JMPF at %d runs to %d, past the block ending at %d", l.index, j+o2, end)
	}
	return &pattern{kind: patternIf, terminal: l.index, jump: j, falseEnd: j + o2}, nil
}

// Condition recovery treats the chain as a decision graph: every link has
// a successor for a true and for a false test, each either another link or
// one of the two outcomes below. Pairs of links are then merged into &&
// and || nodes until a single node remains.
const (
	toBody = -1
	toExit = -2
)

type node struct {
	text  string
	op    string
	t, f  int
	alive bool
}

// condition renders chain as one boolean expression. exit is the false
// target of the whole condition; the body starts after the last link.
func (d *Disassembler) condition(chain []link, exit int) (string, error) {
	last := len(chain) - 1
	nodes := make([]node, len(chain))
	for k := last; k >= 0; k-- {
		l := chain[k]
		fall := k + 1
		if k == last {
			fall = toBody
		}
		to, err := d.resolve(chain, nodes, k, exit)
		if err != nil {
			return "", err
		}
		n := node{text: l.cond.String(), t: fall, f: to, alive: true}
		if l.op == pex.OpJmpT {
			n.t, n.f = to, fall
		}
		nodes[k] = n
	}

	for merged := true; merged; {
		merged = false
		for a := range nodes {
			if nodes[a].alive && merge(nodes, a) {
				merged = true
				break
			}
		}
	}

	root := nodes[0]
	for k := 1; k < len(nodes); k++ {
		if nodes[k].alive {
			return "", fmt.Errorf("conditional jumps at %d..%d do not form an && / || expression", chain[0].index, chain[last].index)
		}
	}
	if root.t != toBody || root.f != toExit {
		return "", fmt.Errorf("condition at %d does not lead to its body and exit", chain[0].index)
	}
	return root.text, nil
}

// resolve returns the successor reached when chain[k] takes its jump. A
// jump onto a later link that re-tests the same value takes that link's
// outcome for the value just tested; any other jump onto a link evaluates
// that link.
func (d *Disassembler) resolve(chain []link, nodes []node, k, exit int) (int, error) {
	l := chain[k]
	last := chain[len(chain)-1]
	switch {
	case l.target <= l.index:
		return 0, fmt.Errorf("%s at %d jumps backwards", l.op, l.index)
	case l.target > exit:
		return 0, fmt.Errorf("%s at %d jumps to %d, past the condition", l.op, l.index, l.target)
	case l.target == exit:
		return toExit, nil
	case l.target > last.index:
		for q := last.index + 1; q < l.target; q++ {
			if d.code[q] != nil {
				return 0, fmt.Errorf("%s at %d jumps into the body at %d", l.op, l.index, l.target)
			}
		}
		return toBody, nil
	}

	j := k + 1
	for chain[j].index < l.target {
		j++
	}
	if !d.retest(l, chain[j]) && j != k+1 {
		return j, nil
	}
	if l.op == pex.OpJmpT {
		return nodes[j].t, nil
	}
	return nodes[j].f, nil
}

// retest reports whether the jump from l arrives at m still holding the
// value l tested. Folded copies between the target and m carry the value
// into another temporary.
func (d *Disassembler) retest(l, m link) bool {
	name := l.tested
	if name == "" {
		return false
	}
	for q := l.target; q < m.index; q++ {
		ins := d.orig[q]
		if d.code[q] != nil || ins == nil || ins.Op != pex.OpAssign || len(ins.Args) < 2 {
			continue
		}
		if src := ins.Args[1]; src.IsIdentifier() && strings.EqualFold(src.Name(), name) {
			name = strings.ToLower(ins.Args[0].Name())
		}
	}
	return name == m.tested
}

// merge joins nodes[a] with a successor that only a reaches: a && b when a
// true leads to b and both fail the same way, a || b when a false leads to
// b and both succeed the same way.
func merge(nodes []node, a int) bool {
	n := &nodes[a]
	for _, b := range []int{n.t, n.f} {
		if b < 0 || preds(nodes, b) != 1 {
			continue
		}
		m := &nodes[b]
		var op string
		switch {
		case b == n.t && n.f == m.f:
			op = "&&"
		case b == n.f && n.t == m.t:
			op = "||"
		default:
			continue
		}
		n.text = group(n.text, n.op, op) + " " + op + " " + group(m.text, m.op, op)
		n.op = op
		n.t, n.f = m.t, m.f
		m.alive = false
		return true
	}
	return false
}

// preds counts the edges of live nodes leading to b.
func preds(nodes []node, b int) int {
	count := 0
	for _, n := range nodes {
		if !n.alive {
			continue
		}
		if n.t == b {
			count++
		}
		if n.f == b {
			count++
		}
	}
	return count
}

// group parenthesizes expr when its own operator differs from the one
// joining it.
func group(expr, exprOp, joinOp string) string {
	if exprOp != "" && exprOp != joinOp {
		return "(" + expr + ")"
	}
	return expr
}

// ---------------------------------------------------------------------------
// Block rendering
// ---------------------------------------------------------------------------

func indent(depth int) string {
	return strings.Repeat("\t", depth)
}

// block renders code[start:end] at the given depth.
func (d *Disassembler) block(start, end, depth int) ([]string, error) {
	var lines []string
	for p := start; p < end; {
		ins := d.code[p]
		switch {
		case ins == nil:
			p++
		case ins.Op.IsConditional():
			pat, err := d.scan(p, end)
			if err != nil {
				return nil, d.fail(lines, err)
			}
			sub, err := d.construct(pat, depth, false)
			if err != nil {
				return nil, d.fail(lines, err)
			}
			lines = append(lines, sub...)
			p = pat.next()
		default:
			line, err := d.statement(ins)
			if err != nil {
				return nil, err
			}
			if line != "" {
				lines = append(lines, indent(depth)+line)
			}
			p++
		}
	}
	return lines, nil
}

// fail prefixes a StructureError's lines with the lines already rendered
// at this level. Other errors pass through.
func (d *Disassembler) fail(lines []string, err error) error {
	var se *StructureError
	if errors.As(err, &se) {
		return se.wrap(lines)
	}
	return err
}

// construct renders an IF or WHILE. As an ELSEIF it omits ENDIF, which the
// outermost IF emits.
func (d *Disassembler) construct(pat *pattern, depth int, elseif bool) ([]string, error) {
	keyword := "IF "
	switch {
	case pat.kind == patternWhile:
		keyword = "WHILE "
	case elseif:
		keyword = "ELSEIF "
	}
	lines := []string{indent(depth) + keyword + pat.cond}

	body, err := d.block(pat.terminal+1, pat.jump, depth+1)
	if err != nil {
		return nil, d.fail(lines, err)
	}
	lines = append(lines, body...)

	if pat.kind == patternWhile {
		return append(lines, indent(depth)+"ENDWHILE"), nil
	}

	fs, fe := pat.jump+1, pat.falseEnd
	if inner := d.elseIf(fs, fe); inner != nil {
		sub, err := d.construct(inner, depth, true)
		if err != nil {
			return nil, d.fail(lines, err)
		}
		lines = append(lines, sub...)
	} else if d.live(fs, fe) {
		lines = append(lines, indent(depth)+"ELSE")
		body, err := d.block(fs, fe, depth+1)
		if err != nil {
			return nil, d.fail(lines, err)
		}
		lines = append(lines, body...)
	}

	if !elseif {
		lines = append(lines, indent(depth)+"ENDIF")
	}
	return lines, nil
}

// elseIf returns the IF filling the whole false branch [fs, fe), if any.
func (d *Disassembler) elseIf(fs, fe int) *pattern {
	for p := fs; p < fe; p++ {
		ins := d.code[p]
		if ins == nil {
			continue
		}
		if !ins.Op.IsConditional() {
			return nil
		}
		pat, err := d.scan(p, fe)
		if err != nil || pat.kind != patternIf || pat.next() != fe {
			return nil
		}
		return pat
	}
	return nil
}

// live reports whether code[start:end] holds anything that renders.
func (d *Disassembler) live(start, end int) bool {
	for _, ins := range d.code[start:end] {
		if ins != nil && ins.Op != pex.OpNop && ins.Op != pex.OpJmp {
			return true
		}
	}
	return false
}
