package disasm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/pexkit/pex"
)

// Script renders a whole script object: its header, variables, structs,
// properties and states. Functions that fail to disassemble are listed
// with whatever was recovered and a comment naming the failure; the
// failures are joined into the returned error.
func Script(c *pex.Container, s *pex.Script, level Level) ([]string, error) {
	l := &listing{c: c, s: s, level: level, objectVars: s.VariableTypes()}
	l.header()
	l.variables()
	l.structs()
	l.properties()
	l.states()
	return l.lines, errors.Join(l.errs...)
}

// Listing renders every script object of c, separated by blank lines.
func Listing(c *pex.Container, level Level) ([]string, error) {
	var lines []string
	var errs []error
	for i, s := range c.Scripts {
		if i > 0 {
			lines = append(lines, "")
		}
		sl, err := Script(c, s, level)
		lines = append(lines, sl...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return lines, errors.Join(errs...)
}

type listing struct {
	c          *pex.Container
	s          *pex.Script
	level      Level
	objectVars []pex.VariableType
	lines      []string
	errs       []error
}

func (l *listing) emit(depth int, format string, args ...any) {
	l.lines = append(l.lines, indent(depth)+fmt.Sprintf(format, args...))
}

// withFlags appends the declared names of the bits set in mask.
func (l *listing) withFlags(decl string, mask uint32) string {
	for _, name := range l.c.FlagNames(mask) {
		decl += " " + name
	}
	return decl
}

func (l *listing) doc(depth int, doc *pex.TString) {
	if d := doc.String(); d != "" {
		l.emit(depth, "{%s}", d)
	}
}

func (l *listing) header() {
	l.emit(0, "%s", l.withFlags(l.s.Header(), l.s.UserFlags))
	l.doc(0, l.s.Doc)
}

func (l *listing) variables() {
	backing := make(map[*pex.Variable]bool)
	for _, p := range l.s.Properties {
		if v := p.AutoVariable(); v != nil {
			backing[v] = true
		}
	}
	first := true
	for _, v := range l.s.Variables {
		if backing[v] {
			continue
		}
		if first {
			l.lines = append(l.lines, "")
			first = false
		}
		decl := fmt.Sprintf("%s %s", v.Type, v.Name)
		if v.Value.Kind != pex.KindNone {
			decl += " = " + v.Value.String()
		}
		if v.Const {
			decl += " Const"
		}
		l.emit(0, "%s", l.withFlags(decl, v.UserFlags))
	}
}

func (l *listing) structs() {
	for _, st := range l.s.Structs {
		l.lines = append(l.lines, "")
		l.emit(0, "Struct %s", st.Name)
		for _, m := range st.Members {
			decl := fmt.Sprintf("%s %s", m.Type, m.Name)
			if m.Value.Kind != pex.KindNone {
				decl += " = " + m.Value.String()
			}
			if m.Const {
				decl += " Const"
			}
			l.emit(1, "%s", l.withFlags(decl, m.UserFlags))
			l.doc(1, m.Doc)
		}
		l.emit(0, "EndStruct")
	}
}

func (l *listing) properties() {
	for _, p := range l.s.Properties {
		l.lines = append(l.lines, "")
		l.emit(0, "%s", l.withFlags(p.Declaration(), p.UserFlags))
		l.doc(0, p.Doc)
		if p.IsAuto() {
			continue
		}
		if p.Read != nil {
			l.function(1, p.Name.String()+".get", "get", p.Read)
		}
		if p.Write != nil {
			l.function(1, p.Name.String()+".set", "set", p.Write)
		}
		l.emit(0, "EndProperty")
	}
}

func (l *listing) states() {
	for _, st := range l.s.States {
		depth := 0
		if name := st.Name.String(); name != "" {
			l.lines = append(l.lines, "")
			keyword := "State"
			if st.Name.EqualFold(l.s.AutoState.String()) {
				keyword = "Auto State"
			}
			l.emit(0, "%s %s", keyword, name)
			depth = 1
		}
		for _, f := range st.Functions {
			qualified := f.Name.String()
			if depth > 0 {
				qualified = st.Name.String() + "." + qualified
			}
			l.lines = append(l.lines, "")
			l.function(depth, qualified, f.Name.String(), f)
		}
		if depth > 0 {
			l.emit(0, "EndState")
		}
	}
}

func (l *listing) function(depth int, qualified, name string, f *pex.Function) {
	l.emit(depth, "%s", l.withFlags(f.Signature(name), f.UserFlags))
	l.doc(depth+1, f.Doc)
	if f.IsNative() {
		return
	}

	body, err := Function(f, l.level, l.objectVars...)
	for _, line := range body {
		l.lines = append(l.lines, indent(depth+1)+line)
	}
	if err != nil {
		var se *StructureError
		if errors.As(err, &se) {
			l.emit(depth+1, "; WARNING: %s", oneLine(err))
		} else {
			l.emit(depth+1, "; ERROR: %s", oneLine(err))
		}
		l.errs = append(l.errs, fmt.Errorf("%s.%s: %w", l.s.Name, qualified, err))
	}
	l.emit(depth, "EndFunction")
}

func oneLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
