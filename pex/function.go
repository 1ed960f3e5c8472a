package pex

import (
	"fmt"
	"strings"
)

// Function flags.
const (
	FunctionGlobal uint8 = 1 << 0
	FunctionNative uint8 = 1 << 1
)

// Function is a function body. Name is nil for property handlers, which are
// stored without one.
type Function struct {
	Name       *TString
	ReturnType *TString
	Doc        *TString
	UserFlags  uint32
	Flags      uint8
	Params     []VariableType
	Locals     []VariableType
	Code       []*Instruction
}

// IsGlobal reports whether the function is static.
func (f *Function) IsGlobal() bool {
	return f.Flags&FunctionGlobal != 0
}

// IsNative reports whether the function is implemented by the engine.
func (f *Function) IsNative() bool {
	return f.Flags&FunctionNative != 0
}

// Types returns the parameters followed by the locals.
func (f *Function) Types() []VariableType {
	out := make([]VariableType, 0, len(f.Params)+len(f.Locals))
	out = append(out, f.Params...)
	out = append(out, f.Locals...)
	return out
}

// Local returns the parameter or local named name (case-insensitive).
func (f *Function) Local(name string) (VariableType, bool) {
	for _, v := range f.Types() {
		if v.Name.EqualFold(name) {
			return v, true
		}
	}
	return VariableType{}, false
}

// Signature renders the declaration line, e.g. "Int Function Add(Int a, Int b) global".
func (f *Function) Signature(name string) string {
	var sb strings.Builder
	if rt := f.ReturnType.String(); rt != "" && !strings.EqualFold(rt, "None") {
		sb.WriteString(rt)
		sb.WriteString(" ")
	}
	sb.WriteString("Function ")
	sb.WriteString(name)
	sb.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", p.Type, p.Name)
	}
	sb.WriteString(")")
	if f.IsGlobal() {
		sb.WriteString(" global")
	}
	if f.IsNative() {
		sb.WriteString(" native")
	}
	return sb.String()
}

// bodySize is the size without the leading name reference.
func (f *Function) bodySize() int {
	n := refSize*2 + flagsSize + 1
	n += countSize + len(f.Params)*refSize*2
	n += countSize + len(f.Locals)*refSize*2
	n += countSize
	for _, ins := range f.Code {
		n += ins.Size()
	}
	return n
}

func (f *Function) encodeBody(w *writer) {
	w.ref(f.ReturnType)
	w.ref(f.Doc)
	w.u32(f.UserFlags)
	w.u8(f.Flags)
	w.count(len(f.Params), "parameter")
	for _, p := range f.Params {
		p.encode(w)
	}
	w.count(len(f.Locals), "local")
	for _, l := range f.Locals {
		l.encode(w)
	}
	w.count(len(f.Code), "instruction")
	for _, ins := range f.Code {
		ins.encode(w)
	}
}

func readFunctionBody(r *reader) (*Function, error) {
	f := &Function{}
	var err error
	if f.ReturnType, err = r.ref(); err != nil {
		return nil, fmt.Errorf("return type: %w", err)
	}
	if f.Doc, err = r.ref(); err != nil {
		return nil, fmt.Errorf("doc: %w", err)
	}
	if f.UserFlags, err = r.u32(); err != nil {
		return nil, fmt.Errorf("user flags: %w", err)
	}
	if f.Flags, err = r.u8(); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if f.Params, err = readList(r, "parameter", readVariableType(RoleParam)); err != nil {
		return nil, err
	}
	if f.Locals, err = readList(r, "local", readVariableType(RoleLocal)); err != nil {
		return nil, err
	}
	if f.Code, err = readList(r, "instruction", readInstruction); err != nil {
		return nil, err
	}
	return f, nil
}

// readNamedFunction reads a state function: a name followed by the body.
func readNamedFunction(r *reader) (*Function, error) {
	name, err := r.ref()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	f, err := readFunctionBody(r)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	f.Name = name
	return f, nil
}
