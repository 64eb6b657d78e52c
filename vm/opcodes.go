package vm

// Opcode is one instruction in the program array. The set is exactly the
// one named in the instruction-set table: no more, no fewer.
type Opcode byte

const (
	OpInvalid Opcode = iota
	OpLoadConst
	OpLoad
	OpStore
	OpPop
	OpDup
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate
	OpNot
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpNewObject
	OpSetProperty
	OpGetProperty
	OpNewList
	OpListAppend
	OpListSet
	OpListGet
	OpListLen
	OpMakeFunction
	OpCall
	OpRet
	OpPrint
	OpHalt
)

var opcodeNames = map[Opcode]string{
	OpInvalid:      "INVALID",
	OpLoadConst:    "LOAD_CONST",
	OpLoad:         "LOAD",
	OpStore:        "STORE",
	OpPop:          "POP",
	OpDup:          "DUP",
	OpAdd:          "ADD",
	OpSub:          "SUB",
	OpMul:          "MUL",
	OpDiv:          "DIV",
	OpMod:          "MOD",
	OpNegate:       "NEGATE",
	OpNot:          "NOT",
	OpEq:           "EQ",
	OpNeq:          "NEQ",
	OpLt:           "LT",
	OpGt:           "GT",
	OpLte:          "LTE",
	OpGte:          "GTE",
	OpJump:         "JUMP",
	OpJumpIfFalse:  "JUMP_IF_FALSE",
	OpJumpIfTrue:   "JUMP_IF_TRUE",
	OpNewObject:    "NEW_OBJECT",
	OpSetProperty:  "SET_PROPERTY",
	OpGetProperty:  "GET_PROPERTY",
	OpNewList:      "NEW_LIST",
	OpListAppend:   "LIST_APPEND",
	OpListSet:      "LIST_SET",
	OpListGet:      "LIST_GET",
	OpListLen:      "LIST_LEN",
	OpMakeFunction: "MAKE_FUNCTION",
	OpCall:         "CALL",
	OpRet:          "RET",
	OpPrint:        "PRINT",
	OpHalt:         "HALT",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// Literal is a constant operand for LOAD_CONST, boxed fresh onto the
// heap every time the instruction executes.
type Literal struct {
	Kind      PrimitiveKind
	BoolVal   bool
	IntVal    int64
	FloatVal  float64
	StringVal string
}

func LitNull() Literal           { return Literal{Kind: PrimNull} }
func LitBool(b bool) Literal     { return Literal{Kind: PrimBool, BoolVal: b} }
func LitInt(i int64) Literal     { return Literal{Kind: PrimInt, IntVal: i} }
func LitFloat(f float64) Literal { return Literal{Kind: PrimFloat, FloatVal: f} }
func LitString(s string) Literal { return Literal{Kind: PrimString, StringVal: s} }

// Instruction is one slot of the program array. Only the fields relevant
// to Op are meaningful; the others are zero.
type Instruction struct {
	Op    Opcode
	Name  string  // LOAD, STORE, SET_PROPERTY, GET_PROPERTY
	Int   int     // JUMP target, CALL argCount, MAKE_FUNCTION entry
	Const Literal // LOAD_CONST
}

// Program is the immutable instruction array the VM executes.
type Program struct {
	Instructions []Instruction
}

func (p *Program) Len() int { return len(p.Instructions) }
