// Package summary flattens a decoded container into a small, serialisable
// description: script names, parents, states, properties and per-function
// disassembly status.
package summary

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/pexkit/disasm"
	"github.com/chazu/pexkit/pex"
)

// Status says how far a function could be disassembled.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial" // structuring stopped early
	StatusFailed  Status = "failed"
	StatusNative  Status = "native" // no body
)

// Summary describes one container.
type Summary struct {
	Source      string   `cbor:"source"`
	Game        string   `cbor:"game"`
	CompileTime uint64   `cbor:"compile_time"`
	Size        int      `cbor:"size"`
	Strings     int      `cbor:"strings"`
	Scripts     []Script `cbor:"scripts"`
}

// Script describes one script object.
type Script struct {
	Name       string     `cbor:"name"`
	Parent     string     `cbor:"parent,omitempty"`
	Doc        string     `cbor:"doc,omitempty"`
	AutoState  string     `cbor:"auto_state,omitempty"`
	Flags      []string   `cbor:"flags,omitempty"`
	States     []string   `cbor:"states"`
	Properties []string   `cbor:"properties,omitempty"`
	Variables  int        `cbor:"variables"`
	Functions  []Function `cbor:"functions"`
}

// Function describes one function body.
type Function struct {
	Name         string `cbor:"name"`
	Instructions int    `cbor:"instructions"`
	Global       bool   `cbor:"global,omitempty"`
	Native       bool   `cbor:"native,omitempty"`
	Status       Status `cbor:"status"`
	Error        string `cbor:"error,omitempty"`
}

// Of summarizes c. Every function is disassembled to determine its status.
func Of(source string, c *pex.Container) *Summary {
	s := &Summary{
		Source:      source,
		Game:        c.Header.Game.String(),
		CompileTime: c.Header.CompileTime,
		Size:        c.Size(),
		Strings:     c.Strings().Len(),
	}
	for _, obj := range c.Scripts {
		s.Scripts = append(s.Scripts, scriptOf(c, obj))
	}
	return s
}

func scriptOf(c *pex.Container, obj *pex.Script) Script {
	out := Script{
		Name:      obj.Name.String(),
		Parent:    obj.Parent.String(),
		Doc:       obj.Doc.String(),
		AutoState: obj.AutoState.String(),
		Flags:     c.FlagNames(obj.UserFlags),
		Variables: len(obj.Variables),
	}
	for _, st := range obj.States {
		out.States = append(out.States, st.Name.String())
	}
	for _, p := range obj.Properties {
		out.Properties = append(out.Properties, p.Name.String())
	}
	objectVars := obj.VariableTypes()
	for _, qf := range obj.AllFunctions() {
		out.Functions = append(out.Functions, functionOf(qf, objectVars))
	}
	return out
}

func functionOf(qf pex.QualifiedFunction, objectVars []pex.VariableType) Function {
	f := qf.Function
	out := Function{
		Name:         qf.Name,
		Instructions: len(f.Code),
		Global:       f.IsGlobal(),
		Native:       f.IsNative(),
		Status:       StatusOK,
	}
	if f.IsNative() {
		out.Status = StatusNative
		return out
	}
	if _, err := disasm.Function(f, disasm.Structured, objectVars...); err != nil {
		var se *disasm.StructureError
		if errors.As(err, &se) {
			out.Status = StatusPartial
		} else {
			out.Status = StatusFailed
		}
		out.Error = err.Error()
	}
	return out
}

// Incomplete returns "Script.Function" for every function that did not
// disassemble cleanly.
func (s *Summary) Incomplete() []string {
	var out []string
	for _, obj := range s.Scripts {
		for _, f := range obj.Functions {
			if f.Status == StatusPartial || f.Status == StatusFailed {
				out = append(out, obj.Name+"."+f.Name)
			}
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("summary: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal encodes s as canonical CBOR, so equal summaries produce equal
// bytes.
func Marshal(s *Summary) ([]byte, error) {
	return encMode.Marshal(s)
}

// Unmarshal decodes a summary produced by Marshal.
func Unmarshal(data []byte) (*Summary, error) {
	var s Summary
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("summary: unmarshal: %w", err)
	}
	return &s, nil
}
