package pex

import (
	"fmt"
	"regexp"
)

var (
	tempPattern    = regexp.MustCompile(`^::.+$`)
	autoVarPattern = regexp.MustCompile(`(?i)^::(.+)_var$`)
	noneVarPattern = regexp.MustCompile(`(?i)^::nonevar$`)
)

// IsTempName reports whether name is compiler generated.
func IsTempName(name string) bool {
	return tempPattern.MatchString(name)
}

// IsAutoVarName reports whether name is a property's hidden backing
// variable, "::<Property>_var".
func IsAutoVarName(name string) bool {
	return autoVarPattern.MatchString(name)
}

// AutoVarProperty returns the property name of an auto variable name.
func AutoVarProperty(name string) (string, bool) {
	m := autoVarPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsNoneVarName reports whether name is the sink for discarded results.
func IsNoneVarName(name string) bool {
	return noneVarPattern.MatchString(name)
}

// ---------------------------------------------------------------------------
// VariableType: parameters and locals
// ---------------------------------------------------------------------------

// Role says where a VariableType is declared.
type Role uint8

const (
	RoleParam Role = iota
	RoleLocal
	RoleVariable // object variable, supplied to the disassembler for type lookups
)

func (r Role) String() string {
	switch r {
	case RoleParam:
		return "param"
	case RoleLocal:
		return "local"
	case RoleVariable:
		return "variable"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// VariableType is a (name, type) pair declared by a function.
type VariableType struct {
	Name *TString
	Type *TString
	Role Role
}

// IsTemp reports whether the variable is compiler generated.
func (v VariableType) IsTemp() bool {
	return IsTempName(v.Name.String())
}

func (v VariableType) size() int {
	return refSize * 2
}

func (v VariableType) encode(w *writer) {
	w.ref(v.Name)
	w.ref(v.Type)
}

func readVariableType(role Role) func(*reader) (VariableType, error) {
	return func(r *reader) (VariableType, error) {
		name, err := r.ref()
		if err != nil {
			return VariableType{}, fmt.Errorf("name: %w", err)
		}
		typ, err := r.ref()
		if err != nil {
			return VariableType{}, fmt.Errorf("type of %s: %w", name, err)
		}
		return VariableType{Name: name, Type: typ, Role: role}, nil
	}
}

// ---------------------------------------------------------------------------
// Variable: object-level variables
// ---------------------------------------------------------------------------

// Variable is a script object's variable with its initial value.
type Variable struct {
	Name      *TString
	Type      *TString
	UserFlags uint32
	Value     Operand
	Const     bool // Fallout 4 only
}

func (v *Variable) size(g Game) int {
	n := refSize*2 + flagsSize + v.Value.Size()
	if g.HasStructs() {
		n++
	}
	return n
}

func (v *Variable) encode(w *writer) {
	w.ref(v.Name)
	w.ref(v.Type)
	w.u32(v.UserFlags)
	v.Value.encode(w)
	if w.game.HasStructs() {
		w.bool8(v.Const)
	}
}

func readVariable(r *reader) (*Variable, error) {
	v := &Variable{}
	var err error
	if v.Name, err = r.ref(); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if v.Type, err = r.ref(); err != nil {
		return nil, fmt.Errorf("type of %s: %w", v.Name, err)
	}
	if v.UserFlags, err = r.u32(); err != nil {
		return nil, fmt.Errorf("user flags of %s: %w", v.Name, err)
	}
	if v.Value, err = readOperand(r); err != nil {
		return nil, fmt.Errorf("value of %s: %w", v.Name, err)
	}
	if r.game.HasStructs() {
		if v.Const, err = r.bool8(); err != nil {
			return nil, fmt.Errorf("const flag of %s: %w", v.Name, err)
		}
	}
	return v, nil
}
