// Package vm implements the bytecode compiler and stack virtual machine
// that form the Pasa execution core.
package vm

// Opcode represents a single VM instruction. Most opcodes are a single
// byte; operands follow inline: one byte for stack slots and argument
// counts, two big-endian bytes for constant indices, jump deltas and array
// element counts.
type Opcode byte

const (
	// Constants and literal superinstructions
	OP_CONSTANT  Opcode = iota // Push constant from pool (2-byte index)
	OP_NULL                    // Push nil
	OP_TRUE                    // Push true
	OP_FALSE                   // Push false
	OP_LOAD_ZERO               // Push the number 0
	OP_LOAD_ONE                // Push the number 1

	// Stack manipulation
	OP_POP  // Discard top of stack
	OP_DUP  // Duplicate top of stack
	OP_SWAP // Exchange the two topmost values

	// Arithmetic
	OP_ADD      // + (string concatenation when either operand is a string)
	OP_SUBTRACT // -
	OP_MULTIPLY // *
	OP_DIVIDE   // / (faults on divisor 0)
	OP_MODULO   // %
	OP_POWER    // **
	OP_NEGATE   // unary -

	// Comparison
	OP_EQUAL
	OP_NOT_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL
	OP_LESS
	OP_LESS_EQUAL

	// Logic
	OP_NOT // truthiness inversion

	// Bitwise (int32 two's-complement semantics)
	OP_BIT_AND
	OP_BIT_OR
	OP_BIT_XOR
	OP_BIT_NOT
	OP_LSHIFT
	OP_RSHIFT

	// Globals (2-byte name constant index)
	OP_DEFINE_GLOBAL // the only way a global comes into existence
	OP_GET_GLOBAL    // faults on undefined name
	OP_SET_GLOBAL    // faults on undefined name; does not pop

	// Locals (1-byte slot relative to frame base)
	OP_GET_LOCAL
	OP_SET_LOCAL // does not pop
	OP_INC_LOCAL // slot must hold a number; counted-loop superinstruction

	// Upvalues (1-byte slot into the closure's upvalue vector)
	OP_GET_UPVALUE
	OP_SET_UPVALUE   // does not pop
	OP_CLOSE_UPVALUE // closes the upvalue at top-of-stack, then pops

	// Control flow (2-byte big-endian delta). The conditional jumps do NOT
	// pop the tested value; the compiler emits the POP explicitly so that
	// && and || can keep the operand.
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_JUMP_IF_TRUE
	OP_LOOP // backward jump

	// Functions
	OP_CALL    // 1-byte argument count
	OP_CLOSURE // 2-byte function constant + 2 bytes per upvalue (isLocal, index)
	OP_RETURN

	// Classes (2-byte name constant index)
	OP_CLASS
	OP_METHOD
	OP_GET_PROPERTY // field wins over method; method access yields a bound method
	OP_SET_PROPERTY

	// Collections
	OP_ARRAY     // 2-byte element count; element 0 = first compiled
	OP_OBJECT    // 1-byte pair count; first-occurrence key order
	OP_GET_INDEX // array/object/string indexed read
	OP_SET_INDEX // array/object indexed write; string write faults

	// Output
	OP_PRINT // pops one value and writes its stringification to the sink
)

// OpcodeNames maps opcodes to their display names (disassembly, debugging).
var OpcodeNames = map[Opcode]string{
	OP_CONSTANT:  "CONSTANT",
	OP_NULL:      "NULL",
	OP_TRUE:      "TRUE",
	OP_FALSE:     "FALSE",
	OP_LOAD_ZERO: "LOAD_ZERO",
	OP_LOAD_ONE:  "LOAD_ONE",

	OP_POP:  "POP",
	OP_DUP:  "DUP",
	OP_SWAP: "SWAP",

	OP_ADD:      "ADD",
	OP_SUBTRACT: "SUBTRACT",
	OP_MULTIPLY: "MULTIPLY",
	OP_DIVIDE:   "DIVIDE",
	OP_MODULO:   "MODULO",
	OP_POWER:    "POWER",
	OP_NEGATE:   "NEGATE",

	OP_EQUAL:         "EQUAL",
	OP_NOT_EQUAL:     "NOT_EQUAL",
	OP_GREATER:       "GREATER",
	OP_GREATER_EQUAL: "GREATER_EQUAL",
	OP_LESS:          "LESS",
	OP_LESS_EQUAL:    "LESS_EQUAL",

	OP_NOT: "NOT",

	OP_BIT_AND: "BIT_AND",
	OP_BIT_OR:  "BIT_OR",
	OP_BIT_XOR: "BIT_XOR",
	OP_BIT_NOT: "BIT_NOT",
	OP_LSHIFT:  "LSHIFT",
	OP_RSHIFT:  "RSHIFT",

	OP_DEFINE_GLOBAL: "DEFINE_GLOBAL",
	OP_GET_GLOBAL:    "GET_GLOBAL",
	OP_SET_GLOBAL:    "SET_GLOBAL",

	OP_GET_LOCAL: "GET_LOCAL",
	OP_SET_LOCAL: "SET_LOCAL",
	OP_INC_LOCAL: "INC_LOCAL",

	OP_GET_UPVALUE:   "GET_UPVALUE",
	OP_SET_UPVALUE:   "SET_UPVALUE",
	OP_CLOSE_UPVALUE: "CLOSE_UPVALUE",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:  "JUMP_IF_TRUE",
	OP_LOOP:          "LOOP",

	OP_CALL:    "CALL",
	OP_CLOSURE: "CLOSURE",
	OP_RETURN:  "RETURN",

	OP_CLASS:        "CLASS",
	OP_METHOD:       "METHOD",
	OP_GET_PROPERTY: "GET_PROPERTY",
	OP_SET_PROPERTY: "SET_PROPERTY",

	OP_ARRAY:     "ARRAY",
	OP_OBJECT:    "OBJECT",
	OP_GET_INDEX: "GET_INDEX",
	OP_SET_INDEX: "SET_INDEX",

	OP_PRINT: "PRINT",
}
