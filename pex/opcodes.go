package pex

import (
	"fmt"
	"strings"
)

// Opcode identifies an instruction. Values 0x00-0x23 exist on both engines;
// 0x24-0x2E were added by the Fallout 4 compiler.
type Opcode uint8

const (
	// ========================================================================
	// Arithmetic (0x00-0x0C)
	// ========================================================================

	OpNop  Opcode = 0x00
	OpIAdd Opcode = 0x01 // dest, a, b
	OpFAdd Opcode = 0x02
	OpISub Opcode = 0x03
	OpFSub Opcode = 0x04
	OpIMul Opcode = 0x05
	OpFMul Opcode = 0x06
	OpIDiv Opcode = 0x07
	OpFDiv Opcode = 0x08
	OpIMod Opcode = 0x09
	OpNot  Opcode = 0x0A // dest, a
	OpINeg Opcode = 0x0B
	OpFNeg Opcode = 0x0C

	// ========================================================================
	// Assignment and comparison (0x0D-0x13)
	// ========================================================================

	OpAssign Opcode = 0x0D // dest, value
	OpCast   Opcode = 0x0E // dest, value (target type is dest's type)
	OpCmpEq  Opcode = 0x0F // dest, a, b
	OpCmpLt  Opcode = 0x10
	OpCmpLe  Opcode = 0x11
	OpCmpGt  Opcode = 0x12
	OpCmpGe  Opcode = 0x13

	// ========================================================================
	// Control flow (0x14-0x16). Offsets count instructions, relative to the
	// jump itself.
	// ========================================================================

	OpJmp  Opcode = 0x14 // offset
	OpJmpT Opcode = 0x15 // cond, offset
	OpJmpF Opcode = 0x16 // cond, offset

	// ========================================================================
	// Calls (0x17-0x1A)
	// ========================================================================

	OpCallMethod Opcode = 0x17 // name, object, dest, count, args...
	OpCallParent Opcode = 0x18 // name, dest, count, args...
	OpCallStatic Opcode = 0x19 // class, name, dest, count, args...
	OpReturn     Opcode = 0x1A // value

	// ========================================================================
	// Strings, properties and arrays (0x1B-0x23)
	// ========================================================================

	OpStrCat      Opcode = 0x1B // dest, a, b
	OpPropGet     Opcode = 0x1C // property, object, dest
	OpPropSet     Opcode = 0x1D // property, object, value
	OpArrayCreate Opcode = 0x1E // dest, size
	OpArrayLength Opcode = 0x1F // dest, array
	OpArrayGet    Opcode = 0x20 // dest, array, index
	OpArraySet    Opcode = 0x21 // array, index, value
	OpArrayFind   Opcode = 0x22 // array, dest, value, start
	OpArrayRFind  Opcode = 0x23 // array, dest, value, start

	// ========================================================================
	// Fallout 4 additions (0x24-0x2E)
	// ========================================================================

	OpIs               Opcode = 0x24 // dest, object, type
	OpStructCreate     Opcode = 0x25 // dest
	OpStructGet        Opcode = 0x26 // dest, struct, member
	OpStructSet        Opcode = 0x27 // struct, member, value
	OpArrayFindStruct  Opcode = 0x28 // array, dest, member, value, start
	OpArrayRFindStruct Opcode = 0x29 // array, dest, member, value, start
	OpArrayAdd         Opcode = 0x2A // array, value, count
	OpArrayInsert      Opcode = 0x2B // array, value, index
	OpArrayRemoveLast  Opcode = 0x2C // array
	OpArrayRemove      Opcode = 0x2D // array, index, count
	OpArrayClear       Opcode = 0x2E // array
)

// Category groups opcodes that render the same way.
type Category uint8

const (
	CatNop Category = iota
	CatBinary
	CatUnary
	CatAssign
	CatCast
	CatJump
	CatCondJump
	CatCall
	CatReturn
	CatPropGet
	CatPropSet
	CatArrayCreate
	CatArrayLength
	CatArrayGet
	CatArraySet
	CatArrayFind
	CatIs
	CatStructCreate
	CatStructGet
	CatStructSet
	CatArrayMutate
)

// OpcodeInfo describes an opcode's operand layout.
//
// Arity N >= 0 means exactly N operands. Arity -M means M+1 fixed operands,
// the last of which is an integer count of further operands.
type OpcodeInfo struct {
	Name     string
	Arity    int
	Dest     int    // destination operand index, -1 if none
	Callee   int    // leading operands naming a callee, class or property
	Member   int    // operand naming a struct member, -1 if none
	Symbol   string // operator for binary and unary opcodes
	Category Category
	Game     Game // first engine that has the opcode
}

// Fixed returns the number of operands read before any variadic tail.
func (i OpcodeInfo) Fixed() int {
	if i.Arity < 0 {
		return -i.Arity + 1
	}
	return i.Arity
}

// Variadic reports whether a counted operand tail follows the fixed operands.
func (i OpcodeInfo) Variadic() bool {
	return i.Arity < 0
}

func binaryOp(name, symbol string) OpcodeInfo {
	return OpcodeInfo{Name: name, Arity: 3, Dest: 0, Member: -1, Symbol: symbol, Category: CatBinary, Game: Skyrim}
}

func unaryOp(name, symbol string) OpcodeInfo {
	return OpcodeInfo{Name: name, Arity: 2, Dest: 0, Member: -1, Symbol: symbol, Category: CatUnary, Game: Skyrim}
}

func opInfo(name string, arity, dest int, cat Category, game Game) OpcodeInfo {
	return OpcodeInfo{Name: name, Arity: arity, Dest: dest, Member: -1, Category: cat, Game: game}
}

var opcodeTable = [...]OpcodeInfo{
	OpNop:  opInfo("NOP", 0, -1, CatNop, Skyrim),
	OpIAdd: binaryOp("IADD", "+"),
	OpFAdd: binaryOp("FADD", "+"),
	OpISub: binaryOp("ISUB", "-"),
	OpFSub: binaryOp("FSUB", "-"),
	OpIMul: binaryOp("IMUL", "*"),
	OpFMul: binaryOp("FMUL", "*"),
	OpIDiv: binaryOp("IDIV", "/"),
	OpFDiv: binaryOp("FDIV", "/"),
	OpIMod: binaryOp("IMOD", "%"),
	OpNot:  unaryOp("NOT", "!"),
	OpINeg: unaryOp("INEG", "-"),
	OpFNeg: unaryOp("FNEG", "-"),

	OpAssign: opInfo("ASSIGN", 2, 0, CatAssign, Skyrim),
	OpCast:   opInfo("CAST", 2, 0, CatCast, Skyrim),
	OpCmpEq:  binaryOp("CMP_EQ", "=="),
	OpCmpLt:  binaryOp("CMP_LT", "<"),
	OpCmpLe:  binaryOp("CMP_LE", "<="),
	OpCmpGt:  binaryOp("CMP_GT", ">"),
	OpCmpGe:  binaryOp("CMP_GE", ">="),

	OpJmp:  opInfo("JMP", 1, -1, CatJump, Skyrim),
	OpJmpT: opInfo("JMPT", 2, -1, CatCondJump, Skyrim),
	OpJmpF: opInfo("JMPF", 2, -1, CatCondJump, Skyrim),

	OpCallMethod: {Name: "CALLMETHOD", Arity: -3, Dest: 2, Callee: 1, Member: -1, Category: CatCall, Game: Skyrim},
	OpCallParent: {Name: "CALLPARENT", Arity: -2, Dest: 1, Callee: 1, Member: -1, Category: CatCall, Game: Skyrim},
	OpCallStatic: {Name: "CALLSTATIC", Arity: -3, Dest: 2, Callee: 2, Member: -1, Category: CatCall, Game: Skyrim},
	OpReturn:     opInfo("RETURN", 1, -1, CatReturn, Skyrim),

	OpStrCat:      binaryOp("STRCAT", "+"),
	OpPropGet:     {Name: "PROPGET", Arity: 3, Dest: 2, Callee: 1, Member: -1, Category: CatPropGet, Game: Skyrim},
	OpPropSet:     {Name: "PROPSET", Arity: 3, Dest: -1, Callee: 1, Member: -1, Category: CatPropSet, Game: Skyrim},
	OpArrayCreate: opInfo("ARRAY_CREATE", 2, 0, CatArrayCreate, Skyrim),
	OpArrayLength: opInfo("ARRAY_LENGTH", 2, 0, CatArrayLength, Skyrim),
	OpArrayGet:    opInfo("ARRAY_GETELEMENT", 3, 0, CatArrayGet, Skyrim),
	OpArraySet:    opInfo("ARRAY_SETELEMENT", 3, -1, CatArraySet, Skyrim),
	OpArrayFind:   opInfo("ARRAY_FINDELEMENT", 4, 1, CatArrayFind, Skyrim),
	OpArrayRFind:  opInfo("ARRAY_RFINDELEMENT", 4, 1, CatArrayFind, Skyrim),

	OpIs:               opInfo("IS", 3, 0, CatIs, Fallout4),
	OpStructCreate:     opInfo("STRUCT_CREATE", 1, 0, CatStructCreate, Fallout4),
	OpStructGet:        {Name: "STRUCT_GET", Arity: 3, Dest: 0, Member: 2, Category: CatStructGet, Game: Fallout4},
	OpStructSet:        {Name: "STRUCT_SET", Arity: 3, Dest: -1, Member: 1, Category: CatStructSet, Game: Fallout4},
	OpArrayFindStruct:  {Name: "ARRAY_FINDSTRUCT", Arity: 5, Dest: 1, Member: 2, Category: CatArrayFind, Game: Fallout4},
	OpArrayRFindStruct: {Name: "ARRAY_RFINDSTRUCT", Arity: 5, Dest: 1, Member: 2, Category: CatArrayFind, Game: Fallout4},
	OpArrayAdd:         opInfo("ARRAY_ADD", 3, -1, CatArrayMutate, Fallout4),
	OpArrayInsert:      opInfo("ARRAY_INSERT", 3, -1, CatArrayMutate, Fallout4),
	OpArrayRemoveLast:  opInfo("ARRAY_REMOVELAST", 1, -1, CatArrayMutate, Fallout4),
	OpArrayRemove:      opInfo("ARRAY_REMOVE", 3, -1, CatArrayMutate, Fallout4),
	OpArrayClear:       opInfo("ARRAY_CLEAR", 1, -1, CatArrayMutate, Fallout4),
}

// Info returns the opcode's layout. Unknown opcodes get a zero-arity entry
// named after their numeric value.
func (op Opcode) Info() OpcodeInfo {
	if int(op) < len(opcodeTable) {
		return opcodeTable[op]
	}
	return OpcodeInfo{Name: fmt.Sprintf("OP_%02X", uint8(op)), Dest: -1, Member: -1}
}

func (op Opcode) String() string {
	return op.Info().Name
}

// ValidFor reports whether the engine's VM knows the opcode.
func (op Opcode) ValidFor(g Game) bool {
	if int(op) >= len(opcodeTable) {
		return false
	}
	return opcodeTable[op].Game == Skyrim || g.HasStructs()
}

// IsConditional reports whether op is a conditional branch.
func (op Opcode) IsConditional() bool {
	return op == OpJmpT || op == OpJmpF
}

// IsJump reports whether op is any branch.
func (op Opcode) IsJump() bool {
	return op == OpJmp || op.IsConditional()
}

// ParseOpcode looks an opcode up by mnemonic.
func ParseOpcode(name string) (Opcode, bool) {
	for i, info := range opcodeTable {
		if strings.EqualFold(info.Name, name) {
			return Opcode(i), true
		}
	}
	return 0, false
}
