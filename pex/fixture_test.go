package pex

import "testing"

// buildSample assembles a container exercising every entity kind the game
// supports: debug info, user flags, an auto property, a property with both
// handlers, a state with a branching function and, for Fallout 4, a struct.
func buildSample(t testing.TB, game Game) *Container {
	t.Helper()

	c := NewContainer(game)
	c.Header.CompileTime = 0x5F000000
	c.Header.SourceFile = "Counter.psc"
	c.Header.UserName = "builder"
	c.Header.MachineName = "WORKSHOP"
	s := c.Intern

	c.UserFlags = []UserFlag{
		{Name: s("hidden"), Bit: 0},
		{Name: s("conditional"), Bit: 1},
	}

	add := &Function{
		Name:       s("Add"),
		ReturnType: s("Int"),
		Doc:        s("Adds two numbers"),
		Flags:      FunctionGlobal,
		Params: []VariableType{
			{Name: s("a"), Type: s("Int"), Role: RoleParam},
			{Name: s("b"), Type: s("Int"), Role: RoleParam},
		},
		Locals: []VariableType{
			{Name: s("::temp0"), Type: s("Int"), Role: RoleLocal},
		},
		Code: []*Instruction{
			NewInstruction(OpIAdd, c.Ident("::temp0"), c.Ident("a"), c.Ident("b")),
			NewInstruction(OpReturn, c.Ident("::temp0")),
		},
	}
	tick := &Function{
		Name:       s("Tick"),
		ReturnType: s("None"),
		Doc:        s(""),
		Locals: []VariableType{
			{Name: s("::temp1"), Type: s("Bool"), Role: RoleLocal},
			{Name: s("::NoneVar"), Type: s("None"), Role: RoleLocal},
		},
		Code: []*Instruction{
			NewInstruction(OpCmpGt, c.Ident("::temp1"), c.Ident("::Count_var"), Int(10)),
			NewInstruction(OpJmpF, c.Ident("::temp1"), Int(3)),
			NewCall(OpCallMethod, []Operand{c.Ident("GotoState"), c.Ident("self"), c.Ident("::NoneVar")}, c.StrValue("Done")),
			NewInstruction(OpJmp, Int(2)),
			NewInstruction(OpAssign, c.Ident("::Count_var"), Float(1.5)),
			NewInstruction(OpReturn, None()),
		},
	}
	native := &Function{
		Name:       s("Log"),
		ReturnType: s("None"),
		Doc:        s(""),
		Flags:      FunctionGlobal | FunctionNative,
		Params:     []VariableType{{Name: s("msg"), Type: s("String"), Role: RoleParam}},
	}

	getter := &Function{
		ReturnType: s("Int"),
		Doc:        s(""),
		Code:       []*Instruction{NewInstruction(OpReturn, c.Ident("::Limit_var"))},
	}
	setter := &Function{
		ReturnType: s("None"),
		Doc:        s(""),
		Params:     []VariableType{{Name: s("value"), Type: s("Int"), Role: RoleParam}},
		Code:       []*Instruction{NewInstruction(OpAssign, c.Ident("::Limit_var"), c.Ident("value"))},
	}

	obj := &Script{
		Name:      s("Counter"),
		Parent:    s("ObjectReference"),
		Doc:       s("Counts ticks"),
		UserFlags: 1,
		AutoState: s(""),
		Variables: []*Variable{
			{Name: s("::Count_var"), Type: s("Float"), Value: Float(0)},
			{Name: s("::Limit_var"), Type: s("Int"), Value: Int(-4)},
			{Name: s("label"), Type: s("String"), Value: c.StrValue("ticks"), UserFlags: 2},
			{Name: s("enabled"), Type: s("Bool"), Value: Bool(true)},
			{Name: s("target"), Type: s("Actor"), Value: None()},
		},
		Properties: []*Property{
			{Name: s("Count"), Type: s("Float"), Doc: s(""), Flags: PropRead | PropWrite | PropAuto, AutoVar: s("::Count_var")},
			{Name: s("Limit"), Type: s("Int"), Doc: s("Upper bound"), Flags: PropRead | PropWrite, Read: getter, Write: setter},
		},
		States: []*State{
			{Name: s(""), Functions: []*Function{add, tick, native}},
			{Name: s("Done"), Functions: []*Function{}},
		},
	}
	if game.HasStructs() {
		obj.Const = true
		obj.Structs = []*Struct{{
			Name: s("Point"),
			Members: []*Member{
				{Name: s("X"), Type: s("Float"), Value: Float(0), Doc: s("")},
				{Name: s("Y"), Type: s("Float"), Value: Float(2), Const: true, Doc: s("vertical")},
			},
		}}
		obj.Variables[4].Const = true
	}
	c.Scripts = []*Script{obj}

	c.Debug = &DebugInfo{
		ModificationTime: 0x5F000100,
		Functions: []*DebugFunction{
			{ObjectName: s("Counter"), StateName: s(""), FunctionName: s("Add"), Kind: DebugMethod, Lines: []uint16{3, 3}},
			{ObjectName: s("Counter"), StateName: s(""), FunctionName: s("Limit"), Kind: DebugGetter, Lines: []uint16{9}},
		},
	}
	if game.HasStructs() {
		c.Debug.PropertyGroups = []*PropertyGroup{
			{ObjectName: s("Counter"), Name: s(""), Doc: s(""), Properties: []*TString{s("Count"), s("Limit")}},
		}
		c.Debug.StructOrders = []*StructOrder{
			{ObjectName: s("Counter"), Name: s("Point"), Members: []*TString{s("X"), s("Y")}},
		}
	}
	obj.LinkAutoVariables()
	return c
}

func encodeSample(t testing.TB, game Game) []byte {
	t.Helper()
	data, err := buildSample(t, game).Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}
