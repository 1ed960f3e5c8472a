package pex

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the type tag of an Operand.
type Kind uint8

const (
	KindNone       Kind = 0
	KindIdentifier Kind = 1
	KindString     Kind = 2
	KindInteger    Kind = 3
	KindFloat      Kind = 4
	KindBool       Kind = 5

	// Synthetic kinds exist only in a disassembler's working copy.
	KindTerm    Kind = 0x80 // folded expression, rendered parenthesized
	KindLiteral Kind = 0x81 // folded atom, rendered verbatim
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindIdentifier:
		return "identifier"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTerm:
		return "term"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Synthetic reports whether the kind may never be serialized.
func (k Kind) Synthetic() bool {
	return k == KindTerm || k == KindLiteral
}

// Operand is a tagged value: an instruction argument, a variable's initial
// value or a struct member default. Only the field selected by Kind is
// meaningful.
type Operand struct {
	Kind  Kind
	Ref   *TString // identifier or string value
	Int   int32
	Float float32
	Bool  bool
	Text  string // term or literal text
}

func None() Operand { return Operand{Kind: KindNone} }
func Ident(name *TString) Operand { return Operand{Kind: KindIdentifier, Ref: name} }
func StrValue(s *TString) Operand { return Operand{Kind: KindString, Ref: s} }
func Int(v int32) Operand { return Operand{Kind: KindInteger, Int: v} }
func Float(v float32) Operand { return Operand{Kind: KindFloat, Float: v} }
func Bool(v bool) Operand { return Operand{Kind: KindBool, Bool: v} }
func Term(text string) Operand { return Operand{Kind: KindTerm, Text: text} }
func Literal(text string) Operand { return Operand{Kind: KindLiteral, Text: text} }

// IsIdentifier reports whether the operand names a variable or symbol.
func (o Operand) IsIdentifier() bool {
	return o.Kind == KindIdentifier && o.Ref != nil
}

// Name returns the identifier's name, or "" for other kinds.
func (o Operand) Name() string {
	if o.Kind != KindIdentifier {
		return ""
	}
	return o.Ref.String()
}

// Size returns the encoded size: a one byte tag plus the payload.
func (o Operand) Size() int {
	switch o.Kind {
	case KindIdentifier, KindString:
		return 1 + refSize
	case KindInteger, KindFloat:
		return 1 + 4
	case KindBool:
		return 1 + 1
	default:
		return 1
	}
}

func (o Operand) encode(w *writer) {
	if o.Kind.Synthetic() {
		w.fail(fmt.Errorf("%w: %s %q", ErrSyntheticOperand, o.Kind, o.Text))
		w.u8(uint8(KindNone))
		return
	}
	w.u8(uint8(o.Kind))
	switch o.Kind {
	case KindIdentifier, KindString:
		w.ref(o.Ref)
	case KindInteger:
		w.u32(uint32(o.Int))
	case KindFloat:
		w.u32(math.Float32bits(o.Float))
	case KindBool:
		w.bool8(o.Bool)
	case KindNone:
	default:
		w.fail(fmt.Errorf("%w: %d", ErrInvalidTag, o.Kind))
	}
}

func readOperand(r *reader) (Operand, error) {
	tag, err := r.u8()
	if err != nil {
		return Operand{}, err
	}
	switch Kind(tag) {
	case KindNone:
		return None(), nil
	case KindIdentifier, KindString:
		s, err := r.ref()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: Kind(tag), Ref: s}, nil
	case KindInteger:
		v, err := r.u32()
		return Int(int32(v)), err
	case KindFloat:
		v, err := r.u32()
		return Float(math.Float32frombits(v)), err
	case KindBool:
		v, err := r.bool8()
		if err != nil {
			return Operand{}, err
		}
		return Bool(v), nil
	default:
		return Operand{}, fmt.Errorf("%w: %d", ErrInvalidTag, tag)
	}
}

// ---------------------------------------------------------------------------
// Source rendering
// ---------------------------------------------------------------------------

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

// String renders the operand as script source text.
func (o Operand) String() string {
	switch o.Kind {
	case KindNone:
		return "None"
	case KindIdentifier:
		return o.Ref.String()
	case KindString:
		return `"` + stringEscaper.Replace(o.Ref.String()) + `"`
	case KindInteger:
		return strconv.FormatInt(int64(o.Int), 10)
	case KindFloat:
		return FormatFloat(o.Float)
	case KindBool:
		if o.Bool {
			return "True"
		}
		return "False"
	case KindTerm:
		return "(" + o.Text + ")"
	case KindLiteral:
		return o.Text
	default:
		return fmt.Sprintf("<%s>", o.Kind)
	}
}

// FormatFloat renders a float the way script source writes it: always with
// a decimal point.
func FormatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
