package pex

import (
	"fmt"
	"strings"
)

// Property flags.
const (
	PropRead  uint8 = 1 << 0
	PropWrite uint8 = 1 << 1
	PropAuto  uint8 = 1 << 2
)

// Property is a script object property. An auto property stores the name
// of its backing variable and no handlers; otherwise each handler named by
// Flags is present.
type Property struct {
	Name      *TString
	Type      *TString
	Doc       *TString
	UserFlags uint32
	Flags     uint8
	AutoVar   *TString
	Read      *Function
	Write     *Function

	// autoVariable is the object variable AutoVar names, linked after
	// decode by Script.LinkAutoVariables.
	autoVariable *Variable
}

// IsAuto reports whether the property is backed by a variable.
func (p *Property) IsAuto() bool {
	return p.Flags&PropAuto != 0
}

// IsReadOnly reports whether the property has a getter only.
func (p *Property) IsReadOnly() bool {
	return p.Flags&PropRead != 0 && p.Flags&PropWrite == 0
}

// AutoVariable returns the linked backing variable, or nil.
func (p *Property) AutoVariable() *Variable {
	return p.autoVariable
}

// Declaration renders the property's declaration line. An auto property
// shows its backing variable's initial value.
func (p *Property) Declaration() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Property %s", p.Type, p.Name)
	if p.IsAuto() {
		if v := p.autoVariable; v != nil && v.Value.Kind != KindNone {
			sb.WriteString(" = ")
			sb.WriteString(v.Value.String())
		}
		sb.WriteString(" Auto")
		if p.IsReadOnly() {
			sb.WriteString("ReadOnly")
		}
	}
	return sb.String()
}

func (p *Property) size() int {
	n := refSize*3 + flagsSize + 1
	if p.IsAuto() {
		return n + refSize
	}
	if p.Flags&PropRead != 0 && p.Read != nil {
		n += p.Read.bodySize()
	}
	if p.Flags&PropWrite != 0 && p.Write != nil {
		n += p.Write.bodySize()
	}
	return n
}

func (p *Property) encode(w *writer) {
	w.ref(p.Name)
	w.ref(p.Type)
	w.ref(p.Doc)
	w.u32(p.UserFlags)
	w.u8(p.Flags)
	if p.IsAuto() {
		w.ref(p.AutoVar)
		return
	}
	p.encodeHandler(w, PropRead, p.Read, "read")
	p.encodeHandler(w, PropWrite, p.Write, "write")
}

func (p *Property) encodeHandler(w *writer, flag uint8, f *Function, kind string) {
	if p.Flags&flag == 0 {
		return
	}
	if f == nil {
		w.fail(fmt.Errorf("%w: %s handler of %s", ErrMissingHandler, kind, p.Name))
		return
	}
	f.encodeBody(w)
}

func readProperty(r *reader) (*Property, error) {
	p := &Property{}
	var err error
	if p.Name, err = r.ref(); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if p.Type, err = r.ref(); err != nil {
		return nil, fmt.Errorf("type of %s: %w", p.Name, err)
	}
	if p.Doc, err = r.ref(); err != nil {
		return nil, fmt.Errorf("doc of %s: %w", p.Name, err)
	}
	if p.UserFlags, err = r.u32(); err != nil {
		return nil, fmt.Errorf("user flags of %s: %w", p.Name, err)
	}
	if p.Flags, err = r.u8(); err != nil {
		return nil, fmt.Errorf("flags of %s: %w", p.Name, err)
	}
	if p.IsAuto() {
		if p.AutoVar, err = r.ref(); err != nil {
			return nil, fmt.Errorf("auto variable of %s: %w", p.Name, err)
		}
		return p, nil
	}
	if p.Flags&PropRead != 0 {
		if p.Read, err = readFunctionBody(r); err != nil {
			return nil, fmt.Errorf("read handler of %s: %w", p.Name, err)
		}
	}
	if p.Flags&PropWrite != 0 {
		if p.Write, err = readFunctionBody(r); err != nil {
			return nil, fmt.Errorf("write handler of %s: %w", p.Name, err)
		}
	}
	return p, nil
}
