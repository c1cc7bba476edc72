package value

// OpCode identifies a single bytecode instruction. Opcodes are single
// bytes; most carry a one-byte operand (a constant-pool or stack-slot
// index), control-flow opcodes carry a two-byte big-endian jump offset,
// and OP_INVOKE/OP_SUPER_INVOKE/OP_CLOSURE carry multi-byte operand
// sequences documented at each opcode below.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal     // operand: local slot
	OpSetLocal     // operand: local slot
	OpGetGlobal    // operand: name-constant index
	OpDefineGlobal // operand: name-constant index
	OpSetGlobal    // operand: name-constant index
	OpGetUpvalue   // operand: upvalue index
	OpSetUpvalue   // operand: upvalue index
	OpGetProperty  // operand: name-constant index
	OpSetProperty  // operand: name-constant index
	OpGetSuper     // operand: name-constant index
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump         // operand: 2-byte forward offset
	OpJumpIfFalse  // operand: 2-byte forward offset
	OpLoop         // operand: 2-byte backward offset
	OpCall         // operand: argument count
	OpInvoke       // operands: name-constant index, argument count
	OpSuperInvoke  // operands: name-constant index, argument count
	OpClosure      // operands: function-constant index, then (isLocal, index) per upvalue
	OpCloseUpvalue
	OpReturn
	OpClass   // operand: name-constant index
	OpInherit
	OpMethod // operand: name-constant index
)

var opcodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
}

// String renders the opcode's mnemonic, used by the disassembler and the
// WISP_TRACE_EXEC tracer.
func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "OP_UNKNOWN"
}

// MaxConstants is the per-chunk cap on the constant pool (a one-byte
// operand can only index 256 slots).
const MaxConstants = 256

// MaxJump is the largest offset a two-byte jump operand can encode.
const MaxJump = 1<<16 - 1

// Chunk is a compiled sequence of instructions plus the constant pool and
// per-byte source-line table needed to execute it and report errors
// against it. Every Function owns exactly one Chunk.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// NewChunk returns an empty Chunk ready to receive bytes.
func NewChunk() *Chunk { return &Chunk{} }

// Write appends one instruction byte, recording the source line it came
// from at the same index in Lines.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends a value to the constant pool and returns its
// index. Callers must check the result against MaxConstants before
// emitting a reference to it.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len reports how many instruction bytes have been written so far; used
// by the compiler to compute jump offsets before they are patched.
func (c *Chunk) Len() int { return len(c.Code) }
