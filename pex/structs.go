package pex

import "fmt"

// Struct is a Fallout 4 structure type declared by a script object.
type Struct struct {
	Name    *TString
	Members []*Member
}

// Member is a field of a Struct with its default value.
type Member struct {
	Name      *TString
	Type      *TString
	UserFlags uint32
	Value     Operand
	Const     bool
	Doc       *TString
}

// Member returns the member named name (case-insensitive).
func (s *Struct) Member(name string) *Member {
	for _, m := range s.Members {
		if m.Name.EqualFold(name) {
			return m
		}
	}
	return nil
}

func (s *Struct) size() int {
	n := refSize + countSize
	for _, m := range s.Members {
		n += m.size()
	}
	return n
}

func (s *Struct) encode(w *writer) {
	w.ref(s.Name)
	w.count(len(s.Members), "member")
	for _, m := range s.Members {
		m.encode(w)
	}
}

func readStruct(r *reader) (*Struct, error) {
	name, err := r.ref()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	members, err := readList(r, "member", readMember)
	if err != nil {
		return nil, fmt.Errorf("struct %s: %w", name, err)
	}
	return &Struct{Name: name, Members: members}, nil
}

// name(2) + type(2) + flags(4) + value + const(1) + doc(2)
func (m *Member) size() int {
	return refSize*3 + flagsSize + 1 + m.Value.Size()
}

func (m *Member) encode(w *writer) {
	w.ref(m.Name)
	w.ref(m.Type)
	w.u32(m.UserFlags)
	m.Value.encode(w)
	w.bool8(m.Const)
	w.ref(m.Doc)
}

func readMember(r *reader) (*Member, error) {
	m := &Member{}
	var err error
	if m.Name, err = r.ref(); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if m.Type, err = r.ref(); err != nil {
		return nil, fmt.Errorf("type of %s: %w", m.Name, err)
	}
	if m.UserFlags, err = r.u32(); err != nil {
		return nil, fmt.Errorf("user flags of %s: %w", m.Name, err)
	}
	if m.Value, err = readOperand(r); err != nil {
		return nil, fmt.Errorf("value of %s: %w", m.Name, err)
	}
	if m.Const, err = r.bool8(); err != nil {
		return nil, fmt.Errorf("const flag of %s: %w", m.Name, err)
	}
	if m.Doc, err = r.ref(); err != nil {
		return nil, fmt.Errorf("doc of %s: %w", m.Name, err)
	}
	return m, nil
}
