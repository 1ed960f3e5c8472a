package pex

import "testing"

func TestRemapIdentifiers(t *testing.T) {
	c := buildSample(t, Skyrim)
	n := c.RemapIdentifiers(map[string]string{
		"A":           "first",
		"::COUNT_VAR": "::Tally_var",
		"GotoState":   "Goto",
	})
	// IADD's "a", CMP_GT's and ASSIGN's "::Count_var"
	if n != 3 {
		t.Errorf("rewrote %d references, want 3", n)
	}

	obj := c.Scripts[0]
	add := obj.Function("", "Add")
	if got := add.Params[0].Name.String(); got != "first" {
		t.Errorf("param: got %s, want first", got)
	}
	if got := add.Code[0].Args[1].Name(); got != "first" {
		t.Errorf("IADD operand: got %s, want first", got)
	}
	if got := add.Params[1].Name.String(); got != "b" {
		t.Errorf("unrelated param renamed to %s", got)
	}

	tick := obj.Function("", "Tick")
	if got := tick.Code[2].Args[0].Name(); got != "GotoState" {
		t.Errorf("method name renamed to %s", got)
	}
	if got := tick.Code[4].Args[0].Name(); got != "::Tally_var" {
		t.Errorf("ASSIGN dest: got %s", got)
	}

	if v := obj.AutoVariable("Count"); v == nil || v.Name.String() != "::Tally_var" {
		t.Errorf("auto variable not relinked: %v", v)
	}

	data, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if back.Scripts[0].AutoVariable("count") == nil {
		t.Error("auto variable lost after re-decode")
	}
}

func TestRemapEmptyTable(t *testing.T) {
	c := buildSample(t, Fallout4)
	before := c.Strings().Len()
	if n := c.RemapIdentifiers(nil); n != 0 {
		t.Errorf("got %d, want 0", n)
	}
	if c.Strings().Len() != before {
		t.Error("empty remap grew the string table")
	}
}

func TestRemapSkipsStructMember(t *testing.T) {
	c := buildSample(t, Fallout4)
	f := c.Scripts[0].Function("", "Tick")
	f.Code = append(f.Code, NewInstruction(OpStructGet, c.Ident("::temp1"), c.Ident("pt"), c.Ident("X")))

	n := c.RemapIdentifiers(map[string]string{"x": "Horizontal", "pt": "origin"})
	if n != 1 {
		t.Errorf("rewrote %d references, want 1", n)
	}
	last := f.Code[len(f.Code)-1]
	if last.Args[1].Name() != "origin" || last.Args[2].Name() != "X" {
		t.Errorf("STRUCT_GET operands: %v", last.Args)
	}
}
