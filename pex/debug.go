package pex

import "fmt"

// DebugFunction kinds.
const (
	DebugMethod   uint8 = 0
	DebugGetter   uint8 = 1
	DebugSetter   uint8 = 2
	DebugAutoProp uint8 = 3
)

// DebugInfo is the optional line-number table and, for Fallout 4, the
// editor's property grouping and struct member order.
type DebugInfo struct {
	ModificationTime uint64
	Functions        []*DebugFunction
	PropertyGroups   []*PropertyGroup
	StructOrders     []*StructOrder
}

// DebugFunction maps each instruction of a function to a source line.
type DebugFunction struct {
	ObjectName   *TString
	StateName    *TString
	FunctionName *TString
	Kind         uint8
	Lines        []uint16
}

// PropertyGroup is a named group of properties as shown in the editor.
type PropertyGroup struct {
	ObjectName *TString
	Name       *TString
	Doc        *TString
	UserFlags  uint32
	Properties []*TString
}

// StructOrder records the declaration order of a struct's members.
type StructOrder struct {
	ObjectName *TString
	Name       *TString
	Members    []*TString
}

func (d *DebugInfo) size(g Game) int {
	n := 8 + countSize
	for _, f := range d.Functions {
		n += refSize*3 + 1 + countSize + 2*len(f.Lines)
	}
	if !g.HasStructs() {
		return n
	}
	n += countSize
	for _, pg := range d.PropertyGroups {
		n += refSize*3 + flagsSize + countSize + refSize*len(pg.Properties)
	}
	n += countSize
	for _, so := range d.StructOrders {
		n += refSize*2 + countSize + refSize*len(so.Members)
	}
	return n
}

func (d *DebugInfo) encode(w *writer) {
	w.u64(d.ModificationTime)
	w.count(len(d.Functions), "debug function")
	for _, f := range d.Functions {
		w.ref(f.ObjectName)
		w.ref(f.StateName)
		w.ref(f.FunctionName)
		w.u8(f.Kind)
		w.count(len(f.Lines), "line number")
		for _, l := range f.Lines {
			w.u16(l)
		}
	}
	if !w.game.HasStructs() {
		return
	}
	w.count(len(d.PropertyGroups), "property group")
	for _, pg := range d.PropertyGroups {
		w.ref(pg.ObjectName)
		w.ref(pg.Name)
		w.ref(pg.Doc)
		w.u32(pg.UserFlags)
		w.count(len(pg.Properties), "property name")
		for _, s := range pg.Properties {
			w.ref(s)
		}
	}
	w.count(len(d.StructOrders), "struct order")
	for _, so := range d.StructOrders {
		w.ref(so.ObjectName)
		w.ref(so.Name)
		w.count(len(so.Members), "member name")
		for _, s := range so.Members {
			w.ref(s)
		}
	}
}

func readU16(r *reader) (uint16, error) { return r.u16() }
func readRef(r *reader) (*TString, error) { return r.ref() }

func readDebugInfo(r *reader) (*DebugInfo, error) {
	d := &DebugInfo{}
	var err error
	if d.ModificationTime, err = r.u64(); err != nil {
		return nil, fmt.Errorf("modification time: %w", err)
	}
	if d.Functions, err = readList(r, "debug function", readDebugFunction); err != nil {
		return nil, err
	}
	if !r.game.HasStructs() {
		return d, nil
	}
	if d.PropertyGroups, err = readList(r, "property group", readPropertyGroup); err != nil {
		return nil, err
	}
	if d.StructOrders, err = readList(r, "struct order", readStructOrder); err != nil {
		return nil, err
	}
	return d, nil
}

func readDebugFunction(r *reader) (*DebugFunction, error) {
	f := &DebugFunction{}
	var err error
	if f.ObjectName, err = r.ref(); err != nil {
		return nil, fmt.Errorf("object name: %w", err)
	}
	if f.StateName, err = r.ref(); err != nil {
		return nil, fmt.Errorf("state name: %w", err)
	}
	if f.FunctionName, err = r.ref(); err != nil {
		return nil, fmt.Errorf("function name: %w", err)
	}
	if f.Kind, err = r.u8(); err != nil {
		return nil, fmt.Errorf("kind of %s: %w", f.FunctionName, err)
	}
	if f.Lines, err = readList(r, "line number", readU16); err != nil {
		return nil, fmt.Errorf("%s: %w", f.FunctionName, err)
	}
	return f, nil
}

func readPropertyGroup(r *reader) (*PropertyGroup, error) {
	pg := &PropertyGroup{}
	var err error
	if pg.ObjectName, err = r.ref(); err != nil {
		return nil, fmt.Errorf("object name: %w", err)
	}
	if pg.Name, err = r.ref(); err != nil {
		return nil, fmt.Errorf("group name: %w", err)
	}
	if pg.Doc, err = r.ref(); err != nil {
		return nil, fmt.Errorf("doc of %s: %w", pg.Name, err)
	}
	if pg.UserFlags, err = r.u32(); err != nil {
		return nil, fmt.Errorf("user flags of %s: %w", pg.Name, err)
	}
	if pg.Properties, err = readList(r, "property name", readRef); err != nil {
		return nil, fmt.Errorf("group %s: %w", pg.Name, err)
	}
	return pg, nil
}

func readStructOrder(r *reader) (*StructOrder, error) {
	so := &StructOrder{}
	var err error
	if so.ObjectName, err = r.ref(); err != nil {
		return nil, fmt.Errorf("object name: %w", err)
	}
	if so.Name, err = r.ref(); err != nil {
		return nil, fmt.Errorf("struct name: %w", err)
	}
	if so.Members, err = readList(r, "member name", readRef); err != nil {
		return nil, fmt.Errorf("struct %s: %w", so.Name, err)
	}
	return so, nil
}
