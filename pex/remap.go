package pex

import "strings"

// RemapIdentifiers renames identifiers container-wide. Keys match
// case-insensitively. Operands that name a callee, class, property or
// struct member are left alone so that renaming a variable never renames
// a method of the same name. Declarations of parameters, locals, object
// variables and auto property backing variables follow the rename.
//
// It returns the number of instruction operands rewritten.
func (c *Container) RemapIdentifiers(table map[string]string) int {
	if len(table) == 0 {
		return 0
	}
	folded := make(map[string]*TString, len(table))
	for from, to := range table {
		folded[strings.ToLower(from)] = c.strings.Intern(to)
	}
	rename := func(s *TString) (*TString, bool) {
		if s == nil {
			return s, false
		}
		to, ok := folded[strings.ToLower(s.value)]
		if !ok || to == s {
			return s, false
		}
		return to, true
	}

	n := 0
	for _, s := range c.Scripts {
		for _, v := range s.Variables {
			v.Name, _ = rename(v.Name)
		}
		for _, p := range s.Properties {
			if p.IsAuto() {
				p.AutoVar, _ = rename(p.AutoVar)
			}
		}
		for _, qf := range s.AllFunctions() {
			n += remapFunction(qf.Function, rename)
		}
		s.LinkAutoVariables()
	}
	return n
}

func remapFunction(f *Function, rename func(*TString) (*TString, bool)) int {
	for i := range f.Params {
		f.Params[i].Name, _ = rename(f.Params[i].Name)
	}
	for i := range f.Locals {
		f.Locals[i].Name, _ = rename(f.Locals[i].Name)
	}
	n := 0
	for _, ins := range f.Code {
		info := ins.Op.Info()
		for i := info.Callee; i < len(ins.Args); i++ {
			if i == info.Member || !ins.Args[i].IsIdentifier() {
				continue
			}
			if to, ok := rename(ins.Args[i].Ref); ok {
				ins.Args[i].Ref = to
				n++
			}
		}
	}
	return n
}
