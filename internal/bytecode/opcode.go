package bytecode

// OpCode identifies a single bytecode instruction.
type OpCode = byte

const (
	OP_CONSTANT      OpCode = iota // u8 const idx -> push
	OP_CONSTANT_LONG               // u16 const idx -> push
	OP_NIL                         // -> push nil
	OP_TRUE                        // -> push true
	OP_FALSE                       // -> push false
	OP_POP                         // pop ->

	OP_GET_LOCAL   // u8 slot -> push
	OP_SET_LOCAL   // u8 slot, peek -> (no pop)
	OP_GET_UPVALUE // u8 idx -> push
	OP_SET_UPVALUE // u8 idx, peek -> (no pop)

	OP_DEFINE_GLOBAL // u8 name const, pop ->
	OP_GET_GLOBAL    // u8 name const -> push
	OP_SET_GLOBAL    // u8 name const, peek -> (no pop)

	OP_GET_PROPERTY // u8 name const, pop instance -> push
	OP_SET_PROPERTY // u8 name const, pop instance, peek value -> push value
	OP_GET_SUPER    // u8 name const, pop superclass, pop instance -> push bound method

	OP_EQUAL
	OP_GREATER
	OP_LESS

	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO

	OP_BITAND
	OP_BITOR
	OP_BITXOR
	OP_BITNOT
	OP_LSHIFT
	OP_RSHIFT

	OP_NOT
	OP_NEGATE

	OP_OUT // pop -> print to host writer

	OP_JUMP          // u16 offset
	OP_JUMP_IF_FALSE // u16 offset, peek
	OP_LOOP          // u16 offset (backward)

	OP_CALL // u8 argCount

	OP_INVOKE       // u8 name const, u8 argCount
	OP_SUPER_INVOKE // u8 name const, u8 argCount

	OP_CLOSURE       // u8 proto const, then (isLocal u8, index u8) pairs
	OP_CLOSE_UPVALUE // pop, closing it if captured

	OP_RETURN

	OP_CLASS   // u8 name const -> push class
	OP_INHERIT // pop subclass, peek superclass
	OP_METHOD  // u8 name const, pop closure, peek class

	OP_ARRAY // u8 count, pop count values -> push array
	OP_DICT  // u8 pairCount, pop 2*pairCount values -> push dict

	OP_OBJECT_GET // pop index, pop container -> push value
	OP_OBJECT_SET // pop value, pop index, pop container -> push value

	OP_IMPORT // u8 name const

	opEndMarker
)

var opNames = [opEndMarker]string{
	OP_CONSTANT:      "OP_CONSTANT",
	OP_CONSTANT_LONG: "OP_CONSTANT_LONG",
	OP_NIL:           "OP_NIL",
	OP_TRUE:          "OP_TRUE",
	OP_FALSE:         "OP_FALSE",
	OP_POP:           "OP_POP",
	OP_GET_LOCAL:     "OP_GET_LOCAL",
	OP_SET_LOCAL:     "OP_SET_LOCAL",
	OP_GET_UPVALUE:   "OP_GET_UPVALUE",
	OP_SET_UPVALUE:   "OP_SET_UPVALUE",
	OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL",
	OP_GET_GLOBAL:    "OP_GET_GLOBAL",
	OP_SET_GLOBAL:    "OP_SET_GLOBAL",
	OP_GET_PROPERTY:  "OP_GET_PROPERTY",
	OP_SET_PROPERTY:  "OP_SET_PROPERTY",
	OP_GET_SUPER:     "OP_GET_SUPER",
	OP_EQUAL:         "OP_EQUAL",
	OP_GREATER:       "OP_GREATER",
	OP_LESS:          "OP_LESS",
	OP_ADD:           "OP_ADD",
	OP_SUBTRACT:      "OP_SUBTRACT",
	OP_MULTIPLY:      "OP_MULTIPLY",
	OP_DIVIDE:        "OP_DIVIDE",
	OP_MODULO:        "OP_MODULO",
	OP_BITAND:        "OP_BITAND",
	OP_BITOR:         "OP_BITOR",
	OP_BITXOR:        "OP_BITXOR",
	OP_BITNOT:        "OP_BITNOT",
	OP_LSHIFT:        "OP_LSHIFT",
	OP_RSHIFT:        "OP_RSHIFT",
	OP_NOT:           "OP_NOT",
	OP_NEGATE:        "OP_NEGATE",
	OP_OUT:           "OP_OUT",
	OP_JUMP:          "OP_JUMP",
	OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_LOOP:          "OP_LOOP",
	OP_CALL:          "OP_CALL",
	OP_INVOKE:        "OP_INVOKE",
	OP_SUPER_INVOKE:  "OP_SUPER_INVOKE",
	OP_CLOSURE:       "OP_CLOSURE",
	OP_CLOSE_UPVALUE: "OP_CLOSE_UPVALUE",
	OP_RETURN:        "OP_RETURN",
	OP_CLASS:         "OP_CLASS",
	OP_INHERIT:       "OP_INHERIT",
	OP_METHOD:        "OP_METHOD",
	OP_ARRAY:         "OP_ARRAY",
	OP_DICT:          "OP_DICT",
	OP_OBJECT_GET:    "OP_OBJECT_GET",
	OP_OBJECT_SET:    "OP_OBJECT_SET",
	OP_IMPORT:        "OP_IMPORT",
}

// Name returns the mnemonic for op, or a fallback for unknown bytes.
func Name(op byte) string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "OP_UNKNOWN"
}
