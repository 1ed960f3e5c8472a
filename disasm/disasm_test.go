package disasm

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/pexkit/pex"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixture struct {
	tab   *pex.StringTable
	types []pex.VariableType
}

func newFixture() *fixture {
	return &fixture{tab: pex.NewStringTable()}
}

func (f *fixture) id(name string) pex.Operand {
	return pex.Ident(f.tab.Intern(name))
}

func (f *fixture) str(v string) pex.Operand {
	return pex.StrValue(f.tab.Intern(v))
}

func (f *fixture) local(name, typ string) *fixture {
	f.types = append(f.types, pex.VariableType{Name: f.tab.Intern(name), Type: f.tab.Intern(typ), Role: pex.RoleLocal})
	return f
}

func (f *fixture) param(name, typ string) *fixture {
	f.types = append(f.types, pex.VariableType{Name: f.tab.Intern(name), Type: f.tab.Intern(typ), Role: pex.RoleParam})
	return f
}

func ins(op pex.Opcode, args ...pex.Operand) *pex.Instruction {
	return pex.NewInstruction(op, args...)
}

func (f *fixture) jmpf(cond string, off int32) *pex.Instruction {
	return ins(pex.OpJmpF, f.id(cond), pex.Int(off))
}

func (f *fixture) jmpt(cond string, off int32) *pex.Instruction {
	return ins(pex.OpJmpT, f.id(cond), pex.Int(off))
}

func jmp(off int32) *pex.Instruction {
	return ins(pex.OpJmp, pex.Int(off))
}

func (f *fixture) assign(dest string, v pex.Operand) *pex.Instruction {
	return ins(pex.OpAssign, f.id(dest), v)
}

func ret() *pex.Instruction {
	return ins(pex.OpReturn, pex.None())
}

func (f *fixture) structured(t *testing.T, code ...*pex.Instruction) []string {
	t.Helper()
	lines, err := Disassemble(code, f.types, Structured)
	if err != nil {
		t.Fatalf("Disassemble failed: %v\n%s", err, strings.Join(lines, "\n"))
	}
	return lines
}

func expectLines(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func TestIfElse(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.jmpf("cond", 3),
		f.assign("b", pex.Int(2)),
		jmp(2),
		f.assign("b", pex.Int(3)),
	)
	expectLines(t, got, "IF cond", "\tb = 2", "ELSE", "\tb = 3", "ENDIF")
}

func TestWhile(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.jmpf("cond", 3),
		f.assign("b", pex.Int(2)),
		jmp(-3),
	)
	expectLines(t, got, "WHILE cond", "\tb = 2", "ENDWHILE")
}

func TestIfWithoutElse(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.jmpf("cond", 3),
		f.assign("b", pex.Int(2)),
		jmp(1),
		ret(),
	)
	expectLines(t, got, "IF cond", "\tb = 2", "ENDIF", "RETURN")
}

func TestElseIf(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.jmpf("a", 3),
		f.assign("x", pex.Int(1)),
		jmp(5),
		f.jmpf("b", 3),
		f.assign("x", pex.Int(2)),
		jmp(2),
		f.assign("x", pex.Int(3)),
		ret(),
	)
	expectLines(t, got,
		"IF a", "\tx = 1",
		"ELSEIF b", "\tx = 2",
		"ELSE", "\tx = 3",
		"ENDIF",
		"RETURN")
}

func TestElseContainingMoreThanIf(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.jmpf("a", 3),
		f.assign("x", pex.Int(1)),
		jmp(5),
		f.jmpf("b", 3),
		f.assign("x", pex.Int(2)),
		jmp(1),
		f.assign("y", pex.Int(3)),
	)
	expectLines(t, got,
		"IF a", "\tx = 1",
		"ELSE",
		"\tIF b", "\t\tx = 2", "\tENDIF",
		"\ty = 3",
		"ENDIF")
}

func TestNestedIf(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.jmpf("a", 5),
		f.jmpf("b", 3),
		f.assign("x", pex.Int(1)),
		jmp(1),
		jmp(1),
		ret(),
	)
	expectLines(t, got, "IF a", "\tIF b", "\t\tx = 1", "\tENDIF", "ENDIF", "RETURN")
}

func TestWhileInsideIf(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.jmpf("a", 5),
		f.jmpf("b", 3),
		f.assign("x", pex.Int(1)),
		jmp(-2),
		jmp(1),
	)
	expectLines(t, got, "IF a", "\tWHILE b", "\t\tx = 1", "\tENDWHILE", "ENDIF")
}

func TestConditionChains(t *testing.T) {
	tests := []struct {
		name string
		code func(f *fixture) []*pex.Instruction
		want string
	}{
		{"and", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpf("a", 4), f.jmpf("b", 3)}
		}, "IF a && b"},
		{"or", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpt("a", 2), f.jmpf("b", 3)}
		}, "IF a || b"},
		{"three ands", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpf("a", 5), f.jmpf("b", 4), f.jmpf("c", 3)}
		}, "IF a && b && c"},
		{"and of or", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpt("a", 2), f.jmpf("b", 4), f.jmpf("c", 3)}
		}, "IF (a || b) && c"},
		{"or of and", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpf("a", 2), f.jmpt("b", 2), f.jmpf("c", 3)}
		}, "IF (a && b) || c"},
		{"and then or", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpf("a", 5), f.jmpt("b", 2), f.jmpf("c", 3)}
		}, "IF a && (b || c)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			code := append(tt.code(f), f.assign("x", pex.Int(1)), jmp(1), ret())
			got := f.structured(t, code...)
			expectLines(t, got, tt.want, "\tx = 1", "ENDIF", "RETURN")
		})
	}
}

func TestCompiledConditionChains(t *testing.T) {
	tests := []struct {
		name string
		code func(f *fixture) []*pex.Instruction
		want string
	}{
		{"and", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{
				f.assign("::temp0", f.id("a")),
				f.jmpf("::temp0", 2),
				f.assign("::temp0", f.id("b")),
				f.jmpf("::temp0", 3),
			}
		}, "IF a && b"},
		{"or", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{
				f.assign("::temp0", f.id("a")),
				f.jmpt("::temp0", 2),
				f.assign("::temp0", f.id("b")),
				f.jmpf("::temp0", 3),
			}
		}, "IF a || b"},
		{"or then and", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{
				f.assign("::temp0", f.id("a")),
				f.jmpt("::temp0", 2),
				f.assign("::temp0", f.id("b")),
				f.jmpf("::temp0", 2),
				f.assign("::temp0", f.id("c")),
				f.jmpf("::temp0", 3),
			}
		}, "IF (a || b) && c"},
		{"or of and", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{
				f.assign("::temp0", f.id("a")),
				f.jmpt("::temp0", 4),
				f.assign("::temp0", f.id("b")),
				f.jmpf("::temp0", 2),
				f.assign("::temp0", f.id("c")),
				f.jmpf("::temp0", 3),
			}
		}, "IF a || (b && c)"},
		{"and of or through a copy", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{
				f.assign("::temp0", f.id("a")),
				f.jmpf("::temp0", 5),
				f.assign("::temp1", f.id("b")),
				f.jmpt("::temp1", 2),
				f.assign("::temp1", f.id("c")),
				f.assign("::temp0", f.id("::temp1")),
				f.jmpf("::temp0", 3),
			}
		}, "IF a && (b || c)"},
		{"bare and", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpf("a", 1), f.jmpf("b", 3)}
		}, "IF a && b"},
		{"bare or", func(f *fixture) []*pex.Instruction {
			return []*pex.Instruction{f.jmpt("a", 1), f.jmpf("b", 3)}
		}, "IF a || b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			code := append(tt.code(f), f.assign("x", pex.Int(1)), jmp(1), ret())
			got := f.structured(t, code...)
			expectLines(t, got, tt.want, "\tx = 1", "ENDIF", "RETURN")
		})
	}
}

func TestCompiledWhileCondition(t *testing.T) {
	f := newFixture()
	got := f.structured(t,
		f.assign("::temp0", f.id("a")),
		f.jmpf("::temp0", 2),
		f.assign("::temp0", f.id("b")),
		f.jmpf("::temp0", 3),
		f.assign("x", pex.Int(1)),
		jmp(-5),
		ret(),
	)
	expectLines(t, got, "WHILE a && b", "\tx = 1", "ENDWHILE", "RETURN")
}

func TestConditionJumpingIntoBody(t *testing.T) {
	f := newFixture()
	code := []*pex.Instruction{
		f.jmpt("a", 3),
		f.jmpf("b", 4),
		f.assign("x", pex.Int(1)),
		f.assign("y", pex.Int(2)),
		jmp(1),
		ret(),
	}
	if _, err := Disassemble(code, nil, Structured); err == nil {
		t.Error("expected a StructureError for a jump into the body")
	}
}

func TestFoldedCondition(t *testing.T) {
	f := newFixture().local("::temp1", "Bool").local("::temp2", "Bool")
	got := f.structured(t,
		ins(pex.OpCmpGt, f.id("::temp1"), f.id("x"), pex.Int(10)),
		ins(pex.OpNot, f.id("::temp2"), f.id("done")),
		f.jmpf("::temp1", 4),
		f.jmpf("::temp2", 3),
		f.assign("y", pex.Float(1)),
		jmp(1),
		ret(),
	)
	expectLines(t, got, "IF (x > 10) && (!done)", "\ty = 1.0", "ENDIF", "RETURN")
}

// ---------------------------------------------------------------------------
// Partial failure
// ---------------------------------------------------------------------------

func TestPartialFailure(t *testing.T) {
	f := newFixture()
	code := []*pex.Instruction{
		f.jmpf("cond", 4),
		f.assign("b", pex.Int(1)),
		f.jmpt("other", 2),
		jmp(2),
		f.assign("b", pex.Int(3)),
	}
	lines, err := Disassemble(code, nil, Structured)

	var se *StructureError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *StructureError", err)
	}
	if se.Consumed != 2 {
		t.Errorf("Consumed = %d, want 2", se.Consumed)
	}
	expectLines(t, se.Lines, "IF cond", "\tb = 1")
	expectLines(t, lines, "IF cond", "\tb = 1", "JMPT other 2", "JMP 2", "ASSIGN b 3")
}

func TestPartialFailureInElse(t *testing.T) {
	f := newFixture()
	code := []*pex.Instruction{
		f.assign("x", pex.Int(0)),
		f.jmpf("a", 3),
		f.assign("x", pex.Int(1)),
		jmp(3),
		f.assign("x", pex.Int(2)),
		f.jmpf("b", 1),
	}
	lines, err := Disassemble(code, nil, Structured)
	var se *StructureError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *StructureError", err)
	}
	if se.Consumed != 5 {
		t.Errorf("Consumed = %d, want 5", se.Consumed)
	}
	expectLines(t, lines, "x = 0", "IF a", "\tx = 1", "ELSE", "\tx = 2", "JMPF b 1")
}

func TestPartialFailureShowsFoldedInstructions(t *testing.T) {
	f := newFixture().local("::temp0", "Bool")
	code := []*pex.Instruction{
		f.jmpt("a", 3),
		ins(pex.OpCmpEq, f.id("::temp0"), f.id("x"), pex.Int(1)),
		ins(pex.OpReturn, f.id("::temp0")),
	}
	lines, err := Disassemble(code, f.types, Structured)
	var se *StructureError
	if !errors.As(err, &se) || se.Consumed != 0 {
		t.Fatalf("got %v, want *StructureError at 0", err)
	}
	expectLines(t, lines, "JMPT a 3", "DELETED", "RETURN (x == 1)")
}

// ---------------------------------------------------------------------------
// Fold pass
// ---------------------------------------------------------------------------

func TestFoldIdempotent(t *testing.T) {
	f := newFixture().local("::temp0", "Int").local("::temp1", "Int")
	code := []*pex.Instruction{
		ins(pex.OpIAdd, f.id("::temp0"), f.id("a"), f.id("b")),
		ins(pex.OpIMul, f.id("::temp1"), f.id("::temp0"), pex.Int(2)),
		ins(pex.OpReturn, f.id("::temp1")),
	}
	d := New(code, f.types)
	n, err := d.Fold()
	if err != nil || n != 2 {
		t.Fatalf("first Fold() = %d, %v, want 2", n, err)
	}
	n, err = d.Fold()
	if err != nil || n != 0 {
		t.Errorf("second Fold() = %d, %v, want 0", n, err)
	}
	if got := Dump(d.Code()[2]); got != "RETURN ((a + b) * 2)" {
		t.Errorf("folded return: %s", got)
	}
	if code[2].Args[0].Kind != pex.KindIdentifier {
		t.Error("Fold modified the caller's instructions")
	}
}

func TestFoldKeepsSpecialTemps(t *testing.T) {
	f := newFixture()
	code := []*pex.Instruction{
		f.assign("::Count_var", pex.Int(1)),
		ins(pex.OpCallMethod, f.id("Ping"), f.id("self"), f.id("::NoneVar"), pex.Int(0)),
	}
	d := New(code, nil)
	if n, _ := d.Fold(); n != 0 {
		t.Errorf("Fold() deleted %d instructions, want 0", n)
	}
	lines, err := d.Lines(Structured)
	if err != nil {
		t.Fatalf("Lines failed: %v", err)
	}
	expectLines(t, lines, "::Count_var = 1", "self.Ping()")
}

func TestAssignPropagatesLiterals(t *testing.T) {
	f := newFixture().local("::temp0", "Int")
	got := f.structured(t,
		f.assign("::temp0", pex.Int(5)),
		ins(pex.OpIAdd, f.id("x"), f.id("::temp0"), pex.Int(1)),
	)
	expectLines(t, got, "x = 5 + 1")
}

func TestLevels(t *testing.T) {
	f := newFixture().local("::temp0", "Int")
	code := []*pex.Instruction{
		ins(pex.OpIAdd, f.id("::temp0"), f.id("a"), f.id("b")),
		ins(pex.OpReturn, f.id("::temp0")),
	}

	lines, err := Disassemble(code, f.types, Stripped)
	if err != nil || lines != nil {
		t.Errorf("Stripped: got %v, %v", lines, err)
	}
	lines, err = Disassemble(code, f.types, Raw)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	expectLines(t, lines, "RETURN (a + b)")
	lines, err = Disassemble(code, f.types, Structured)
	if err != nil {
		t.Fatalf("Structured failed: %v", err)
	}
	expectLines(t, lines, "RETURN a + b")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"structured", Structured, true},
		{"RAW", Raw, true},
		{"stripped", Stripped, true},
		{"", Structured, true},
		{"verbose", Structured, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("ParseLevel(%q) = %s, %v", tt.in, got, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func TestDeclarations(t *testing.T) {
	f := newFixture().param("a", "Int").local("::temp0", "Int").local("total", "Int")
	got := f.structured(t,
		ins(pex.OpIAdd, f.id("::temp0"), f.id("a"), pex.Int(1)),
		f.assign("total", f.id("::temp0")),
		f.assign("total", pex.Int(0)),
		f.assign("a", pex.Int(2)),
		ins(pex.OpReturn, f.id("total")),
	)
	expectLines(t, got, "Int total = a + 1", "total = 0", "a = 2", "RETURN total")
}

func TestCalls(t *testing.T) {
	f := newFixture().local("::temp0", "Float").local("::temp1", "Float").local("result", "Float")
	got := f.structured(t,
		pex.NewCall(pex.OpCallStatic, []pex.Operand{f.id("Math"), f.id("Abs"), f.id("::temp0")}, f.id("x")),
		ins(pex.OpFMul, f.id("::temp1"), f.id("::temp0"), pex.Float(2)),
		f.assign("result", f.id("::temp1")),
		pex.NewCall(pex.OpCallMethod, []pex.Operand{f.id("GotoState"), f.id("self"), f.id("::NoneVar")}, f.str("Done")),
		pex.NewCall(pex.OpCallParent, []pex.Operand{f.id("OnInit"), f.id("::NoneVar")}),
		ins(pex.OpReturn, f.id("result")),
	)
	expectLines(t, got,
		"Float result = (Math.Abs(x)) * 2.0",
		`self.GotoState("Done")`,
		"parent.OnInit()",
		"RETURN result")
}

func TestArraysAndProperties(t *testing.T) {
	f := newFixture().
		local("::temp0", "Int[]").local("::temp1", "Int").local("::temp2", "Int").local("::temp3", "Int").
		local("arr", "Int[]").local("n", "Int")
	got := f.structured(t,
		ins(pex.OpArrayCreate, f.id("::temp0"), pex.Int(5)),
		f.assign("arr", f.id("::temp0")),
		ins(pex.OpArraySet, f.id("arr"), pex.Int(0), pex.Int(7)),
		ins(pex.OpArrayLength, f.id("::temp1"), f.id("arr")),
		ins(pex.OpArrayFind, f.id("arr"), f.id("::temp2"), pex.Int(7), pex.Int(0)),
		ins(pex.OpIAdd, f.id("n"), f.id("::temp1"), f.id("::temp2")),
		ins(pex.OpPropSet, f.id("Value"), f.id("target"), f.id("n")),
		ins(pex.OpPropGet, f.id("Value"), f.id("target"), f.id("::temp3")),
		ins(pex.OpArrayGet, f.id("n"), f.id("arr"), f.id("::temp3")),
		ins(pex.OpReturn, f.id("n")),
	)
	expectLines(t, got,
		"Int[] arr = new Int[5]",
		"arr[0] = 7",
		"Int n = (arr.Length) + (arr.Find(7, 0))",
		"target.Value = n",
		"n = arr[target.Value]",
		"RETURN n")
}

func TestStructsAndArrayMutators(t *testing.T) {
	f := newFixture().local("::temp0", "Point").local("::temp1", "Bool").local("pt", "Point").local("::temp2", "Int")
	got := f.structured(t,
		ins(pex.OpStructCreate, f.id("::temp0")),
		f.assign("pt", f.id("::temp0")),
		ins(pex.OpStructSet, f.id("pt"), f.id("X"), pex.Float(1.5)),
		ins(pex.OpArrayAdd, f.id("pts"), f.id("pt"), pex.Int(1)),
		ins(pex.OpArrayFindStruct, f.id("pts"), f.id("::temp2"), f.id("X"), pex.Float(1.5), pex.Int(0)),
		ins(pex.OpArrayRemove, f.id("pts"), f.id("::temp2"), pex.Int(1)),
		ins(pex.OpIs, f.id("::temp1"), f.id("target"), f.id("Actor")),
		ins(pex.OpStructGet, f.id("y"), f.id("pt"), f.id("X")),
		ins(pex.OpArrayClear, f.id("pts")),
		ins(pex.OpReturn, f.id("::temp1")),
	)
	expectLines(t, got,
		"Point pt = new Point",
		"pt.X = 1.5",
		"pts.Add(pt, 1)",
		`pts.Remove(pts.FindStruct("X", 1.5, 0), 1)`,
		"y = pt.X",
		"pts.Clear()",
		"RETURN target is Actor")
}

func TestCast(t *testing.T) {
	f := newFixture().local("::temp0", "Actor")
	got := f.structured(t,
		ins(pex.OpCast, f.id("::temp0"), f.id("akTarget")),
		f.assign("target", f.id("::temp0")),
	)
	expectLines(t, got, "target = akTarget as Actor")
}

func TestCastUndeclaredVariable(t *testing.T) {
	f := newFixture()
	code := []*pex.Instruction{
		ins(pex.OpCast, f.id("::temp0"), f.id("akTarget")),
		ins(pex.OpReturn, f.id("::temp0")),
	}
	lines, err := Disassemble(code, nil, Structured)
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("got %v, want *LookupError", err)
	}
	if le.Name != "::temp0" || le.Opcode != pex.OpCast {
		t.Errorf("got %+v", le)
	}
	if lines != nil {
		t.Errorf("expected no lines, got %v", lines)
	}
}

func TestCastToObjectVariable(t *testing.T) {
	f := newFixture()
	fn := &pex.Function{
		Code: []*pex.Instruction{ins(pex.OpCast, f.id("::Target_var"), f.id("akActor"))},
	}
	objectVars := []pex.VariableType{{Name: f.tab.Intern("::Target_var"), Type: f.tab.Intern("Actor"), Role: pex.RoleVariable}}
	lines, err := Function(fn, Structured, objectVars...)
	if err != nil {
		t.Fatalf("Function failed: %v", err)
	}
	expectLines(t, lines, "::Target_var = akActor as Actor")
}
