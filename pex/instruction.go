package pex

import (
	"fmt"
	"slices"
)

// Instruction is an opcode with its operands. For variadic opcodes Args
// holds the fixed operands, the integer count, and the counted tail, exactly
// as encoded.
type Instruction struct {
	Op   Opcode
	Args []Operand
}

// NewInstruction builds a fixed-arity instruction.
func NewInstruction(op Opcode, args ...Operand) *Instruction {
	return &Instruction{Op: op, Args: args}
}

// NewCall builds a variadic instruction, inserting the count operand
// between the fixed operands and the tail.
func NewCall(op Opcode, fixed []Operand, tail ...Operand) *Instruction {
	args := make([]Operand, 0, len(fixed)+1+len(tail))
	args = append(args, fixed...)
	args = append(args, Int(int32(len(tail))))
	args = append(args, tail...)
	return &Instruction{Op: op, Args: args}
}

// Clone returns a copy whose operand slice can be modified independently.
func (ins *Instruction) Clone() *Instruction {
	return &Instruction{Op: ins.Op, Args: slices.Clone(ins.Args)}
}

// Size returns the encoded size in bytes.
func (ins *Instruction) Size() int {
	n := 1
	for _, a := range ins.Args {
		n += a.Size()
	}
	return n
}

// Dest returns the destination operand, if the opcode has one.
func (ins *Instruction) Dest() (Operand, bool) {
	d := ins.Op.Info().Dest
	if d < 0 || d >= len(ins.Args) {
		return Operand{}, false
	}
	return ins.Args[d], true
}

// Tail returns the counted operands of a variadic instruction (call
// arguments). It is empty for fixed-arity opcodes.
func (ins *Instruction) Tail() []Operand {
	info := ins.Op.Info()
	if !info.Variadic() || len(ins.Args) < info.Fixed() {
		return nil
	}
	return ins.Args[info.Fixed():]
}

// JumpOffset returns the relative target of a branch.
func (ins *Instruction) JumpOffset() (int, bool) {
	var a Operand
	switch ins.Op {
	case OpJmp:
		if len(ins.Args) < 1 {
			return 0, false
		}
		a = ins.Args[0]
	case OpJmpT, OpJmpF:
		if len(ins.Args) < 2 {
			return 0, false
		}
		a = ins.Args[1]
	default:
		return 0, false
	}
	if a.Kind != KindInteger {
		return 0, false
	}
	return int(a.Int), true
}

func (ins *Instruction) check() error {
	info := ins.Op.Info()
	fixed := info.Fixed()
	if len(ins.Args) < fixed {
		return fmt.Errorf("%w: %s has %d operands, needs %d", ErrArgCount, ins.Op, len(ins.Args), fixed)
	}
	if !info.Variadic() {
		if len(ins.Args) != fixed {
			return fmt.Errorf("%w: %s has %d operands, needs %d", ErrArgCount, ins.Op, len(ins.Args), fixed)
		}
		return nil
	}
	count := ins.Args[fixed-1]
	if count.Kind != KindInteger || int(count.Int) != len(ins.Args)-fixed {
		return fmt.Errorf("%w: %s count operand %s, %d arguments follow", ErrArgCount, ins.Op, count, len(ins.Args)-fixed)
	}
	return nil
}

func (ins *Instruction) encode(w *writer) {
	if err := ins.check(); err != nil {
		w.fail(err)
	}
	w.u8(uint8(ins.Op))
	for _, a := range ins.Args {
		a.encode(w)
	}
}

func readInstruction(r *reader) (*Instruction, error) {
	b, err := r.u8()
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	if !op.ValidFor(r.game) {
		return nil, fmt.Errorf("%w: 0x%02X for %s", ErrInvalidOpcode, b, r.game)
	}
	info := op.Info()
	fixed := info.Fixed()
	ins := &Instruction{Op: op, Args: make([]Operand, 0, fixed)}
	for i := 0; i < fixed; i++ {
		a, err := readOperand(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s operand %d: %w", op, i, err)
		}
		ins.Args = append(ins.Args, a)
	}
	if !info.Variadic() {
		return ins, nil
	}

	count := ins.Args[fixed-1]
	if count.Kind != KindInteger || count.Int < 0 {
		return nil, fmt.Errorf("%w: %s argument count is %s %s", ErrInvalidTag, op, count.Kind, count)
	}
	// every operand takes at least one byte
	if int(count.Int) > r.remaining() {
		return nil, fmt.Errorf("%s declares %d arguments: %w", op, count.Int, ErrUnexpectedEOF)
	}
	for i := 0; i < int(count.Int); i++ {
		a, err := readOperand(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s argument %d of %d: %w", op, i, count.Int, err)
		}
		ins.Args = append(ins.Args, a)
	}
	return ins, nil
}
