package compiler

import "github.com/embr-lang/embr/internal/bytecode"

// acceptableForReturnType is the compile-time half of a dual return-type
// check: a coarse, unsound heuristic based on the last opcode emitted
// before `;`, backed up at runtime by the VM's actual kind-of-value check
// on OP_RETURN. Only a fixed whitelist of opcodes per declared type is
// accepted, exactly as the original interpreter's compiler does it — a
// local variable or call result holding a number still fails this check,
// since OP_GET_LOCAL/OP_CALL aren't in the numeric whitelist below and the
// heuristic never inspects the value itself, only the opcode that produced
// it. That false negative is deliberate: it's cheap and defers to the
// runtime check on OP_RETURN for anything it can't judge here.
func acceptableForReturnType(rt bytecode.ReturnKind, lastOp byte) bool {
	switch rt {
	case bytecode.ReturnInt, bytecode.ReturnFloat:
		switch lastOp {
		case bytecode.OP_CONSTANT, bytecode.OP_ADD, bytecode.OP_SUBTRACT,
			bytecode.OP_MULTIPLY, bytecode.OP_DIVIDE, bytecode.OP_NEGATE:
			return true
		}
		return false
	case bytecode.ReturnStr:
		return lastOp == bytecode.OP_CONSTANT
	case bytecode.ReturnBool:
		switch lastOp {
		case bytecode.OP_TRUE, bytecode.OP_FALSE, bytecode.OP_EQUAL,
			bytecode.OP_GREATER, bytecode.OP_LESS, bytecode.OP_NOT:
			return true
		}
		return false
	case bytecode.ReturnVoid:
		return lastOp == bytecode.OP_NIL
	default:
		return true
	}
}

// returnTypeErrorMessage names the declared kind the way the original
// interpreter's compiler diagnostics do, for a return statement that
// acceptableForReturnType has rejected.
func returnTypeErrorMessage(rt bytecode.ReturnKind) string {
	switch rt {
	case bytecode.ReturnInt, bytecode.ReturnFloat:
		return "Function must return a number."
	case bytecode.ReturnStr:
		return "Function must return a string."
	case bytecode.ReturnBool:
		return "Function must return a boolean."
	case bytecode.ReturnVoid:
		return "Function must not return a value."
	default:
		return "Function must return a value of the declared type."
	}
}
