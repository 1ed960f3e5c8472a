package pex

import (
	"fmt"
	"strings"
)

// Script is one script object: its declarations and states.
type Script struct {
	Name       *TString
	Parent     *TString
	Doc        *TString
	Const      bool // Fallout 4 only
	UserFlags  uint32
	AutoState  *TString
	Structs    []*Struct // Fallout 4 only
	Variables  []*Variable
	Properties []*Property
	States     []*State
}

// QualifiedFunction is a function together with the name it is listed
// under: "State.Function" for state functions ("Function" in the empty
// state) and "Property.get" / "Property.set" for handlers.
type QualifiedFunction struct {
	Name     string
	State    *State
	Property *Property
	Function *Function
}

// Variable returns the object variable named name (case-insensitive).
func (s *Script) Variable(name string) *Variable {
	for _, v := range s.Variables {
		if v.Name.EqualFold(name) {
			return v
		}
	}
	return nil
}

// Property returns the property named name (case-insensitive).
func (s *Script) Property(name string) *Property {
	for _, p := range s.Properties {
		if p.Name.EqualFold(name) {
			return p
		}
	}
	return nil
}

// State returns the state named name (case-insensitive). The empty name
// selects the default state.
func (s *Script) State(name string) *State {
	for _, st := range s.States {
		if st.Name.EqualFold(name) {
			return st
		}
	}
	return nil
}

// Struct returns the struct named name (case-insensitive).
func (s *Script) Struct(name string) *Struct {
	for _, st := range s.Structs {
		if st.Name.EqualFold(name) {
			return st
		}
	}
	return nil
}

// Function returns the function name of state, or nil.
func (s *Script) Function(state, name string) *Function {
	st := s.State(state)
	if st == nil {
		return nil
	}
	return st.Function(name)
}

// AllFunctions lists every function body of the object: property
// handlers first, then state functions in state order.
func (s *Script) AllFunctions() []QualifiedFunction {
	var out []QualifiedFunction
	for _, p := range s.Properties {
		if p.Read != nil {
			out = append(out, QualifiedFunction{Name: p.Name.String() + ".get", Property: p, Function: p.Read})
		}
		if p.Write != nil {
			out = append(out, QualifiedFunction{Name: p.Name.String() + ".set", Property: p, Function: p.Write})
		}
	}
	for _, st := range s.States {
		for _, f := range st.Functions {
			name := f.Name.String()
			if st.Name.String() != "" {
				name = st.Name.String() + "." + name
			}
			out = append(out, QualifiedFunction{Name: name, State: st, Function: f})
		}
	}
	return out
}

// LinkAutoVariables matches each auto property to the object variable its
// AutoVar names. It returns the number of auto properties left unlinked.
func (s *Script) LinkAutoVariables() int {
	missing := 0
	for _, p := range s.Properties {
		p.autoVariable = nil
		if !p.IsAuto() {
			continue
		}
		if v := s.Variable(p.AutoVar.String()); v != nil {
			p.autoVariable = v
			continue
		}
		missing++
	}
	return missing
}

// AutoVariable returns the backing variable of the named property.
func (s *Script) AutoVariable(property string) *Variable {
	if p := s.Property(property); p != nil {
		return p.AutoVariable()
	}
	return nil
}

// VariableTypes returns the object variables as type declarations, for
// resolving CAST targets that name object state.
func (s *Script) VariableTypes() []VariableType {
	out := make([]VariableType, 0, len(s.Variables))
	for _, v := range s.Variables {
		out = append(out, VariableType{Name: v.Name, Type: v.Type, Role: RoleVariable})
	}
	return out
}

// Header renders the "ScriptName X extends Y" line.
func (s *Script) Header() string {
	var sb strings.Builder
	sb.WriteString("ScriptName ")
	sb.WriteString(s.Name.String())
	if p := s.Parent.String(); p != "" {
		sb.WriteString(" extends ")
		sb.WriteString(p)
	}
	if s.Const {
		sb.WriteString(" Const")
	}
	return sb.String()
}

// bodySize is the value stored in the size field: the field itself and
// everything after it.
func (s *Script) bodySize(g Game) int {
	n := 4 + refSize*3 + flagsSize
	if g.HasStructs() {
		n += 1 + countSize
		for _, st := range s.Structs {
			n += st.size()
		}
	}
	n += countSize
	for _, v := range s.Variables {
		n += v.size(g)
	}
	n += countSize
	for _, p := range s.Properties {
		n += p.size()
	}
	n += countSize
	for _, st := range s.States {
		n += st.size()
	}
	return n
}

func (s *Script) size(g Game) int {
	return refSize + s.bodySize(g)
}

func (s *Script) encode(w *writer) {
	w.ref(s.Name)
	w.u32(uint32(s.bodySize(w.game)))
	w.ref(s.Parent)
	w.ref(s.Doc)
	if w.game.HasStructs() {
		w.bool8(s.Const)
	}
	w.u32(s.UserFlags)
	w.ref(s.AutoState)
	if w.game.HasStructs() {
		w.count(len(s.Structs), "struct")
		for _, st := range s.Structs {
			st.encode(w)
		}
	}
	w.count(len(s.Variables), "variable")
	for _, v := range s.Variables {
		v.encode(w)
	}
	w.count(len(s.Properties), "property")
	for _, p := range s.Properties {
		p.encode(w)
	}
	w.count(len(s.States), "state")
	for _, st := range s.States {
		st.encode(w)
	}
}

func readScript(r *reader) (*Script, error) {
	s := &Script{}
	var err error
	if s.Name, err = r.ref(); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	start := r.pos
	declared, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("size of %s: %w", s.Name, err)
	}
	if int64(declared) > int64(r.remaining())+4 {
		return nil, fmt.Errorf("%s declares %d bytes: %w", s.Name, declared, ErrUnexpectedEOF)
	}
	if err := s.decodeBody(r); err != nil {
		return nil, fmt.Errorf("script %s: %w", s.Name, err)
	}
	if got := r.pos - start; got != int(declared) {
		return nil, fmt.Errorf("%w: script %s declares %d bytes, read %d", ErrSizeMismatch, s.Name, declared, got)
	}
	s.LinkAutoVariables()
	return s, nil
}

func (s *Script) decodeBody(r *reader) error {
	var err error
	if s.Parent, err = r.ref(); err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	if s.Doc, err = r.ref(); err != nil {
		return fmt.Errorf("doc: %w", err)
	}
	if r.game.HasStructs() {
		if s.Const, err = r.bool8(); err != nil {
			return fmt.Errorf("const flag: %w", err)
		}
	}
	if s.UserFlags, err = r.u32(); err != nil {
		return fmt.Errorf("user flags: %w", err)
	}
	if s.AutoState, err = r.ref(); err != nil {
		return fmt.Errorf("auto state: %w", err)
	}
	if r.game.HasStructs() {
		if s.Structs, err = readList(r, "struct", readStruct); err != nil {
			return err
		}
	}
	if s.Variables, err = readList(r, "variable", readVariable); err != nil {
		return err
	}
	if s.Properties, err = readList(r, "property", readProperty); err != nil {
		return err
	}
	if s.States, err = readList(r, "state", readState); err != nil {
		return err
	}
	return nil
}
