package bytecode

import (
	"fmt"
	"io"
	"strconv"
)

// Disassembler formats bytecode as a readable assembly-style dump, in the
// clox tradition: one line per instruction, offset, source line, mnemonic,
// operand and a resolved-constant comment where useful.
type Disassembler struct {
	w       io.Writer
	visited map[*FunctionProto]bool
	printed bool
}

// NewDisassembler constructs a disassembler that writes to w.
func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{w: w, visited: make(map[*FunctionProto]bool)}
}

// DisassembleFunction emits a dump for proto and, recursively, every nested
// function reachable through its constant pool.
func (d *Disassembler) DisassembleFunction(proto *FunctionProto) error {
	if proto == nil || proto.Chunk == nil {
		return fmt.Errorf("nil function prototype")
	}
	if d.visited[proto] {
		return nil
	}
	d.visited[proto] = true
	d.startSection()

	name := proto.Name
	if name == "" {
		name = "<script>"
	}
	fmt.Fprintf(d.w, "== %s (arity=%d locals=%d upvalues=%d return=%s) ==\n",
		name, proto.Arity, proto.MaxLocals, proto.UpvalueN, proto.ReturnKind)

	if err := d.disassembleChunk(proto.Chunk); err != nil {
		return err
	}
	for _, c := range proto.Chunk.Consts {
		if child, ok := c.(*FunctionProto); ok {
			if err := d.DisassembleFunction(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Disassembler) startSection() {
	if d.printed {
		fmt.Fprintln(d.w)
	}
	d.printed = true
}

func (d *Disassembler) disassembleChunk(chunk *Chunk) error {
	code := chunk.Code
	for ip := 0; ip < len(code); {
		offset := ip
		op := code[ip]
		ip++
		line := chunk.LineAt(offset)
		lineStr := "|"
		if offset == 0 || chunk.LineAt(offset) != chunk.LineAt(offset-1) {
			lineStr = strconv.Itoa(line)
		}
		operand, err := d.decodeOperand(op, chunk, &ip)
		if err != nil {
			return err
		}
		fmt.Fprintf(d.w, "%04d %4s %-18s %s\n", offset, lineStr, Name(op), operand)
	}
	return nil
}

func (d *Disassembler) decodeOperand(op byte, chunk *Chunk, ip *int) (string, error) {
	code := chunk.Code
	switch op {
	case OP_CONSTANT, OP_GET_GLOBAL, OP_SET_GLOBAL, OP_DEFINE_GLOBAL,
		OP_GET_PROPERTY, OP_SET_PROPERTY, OP_GET_SUPER, OP_CLASS, OP_METHOD, OP_IMPORT:
		idx, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-4d ; %s", idx, formatConstRef(chunk, int(idx))), nil
	case OP_CONSTANT_LONG:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-4d ; %s", idx, formatConstRef(chunk, int(idx))), nil
	case OP_INVOKE, OP_SUPER_INVOKE:
		idx, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		argc, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-4d (%d args) ; %s", idx, argc, formatConstRef(chunk, int(idx))), nil
	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		slot, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", slot), nil
	case OP_ARRAY, OP_DICT:
		count, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", count), nil
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_LOOP:
		off, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("-> %d", off), nil
	case OP_CLOSURE:
		idx, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		proto, _ := chunkConst(chunk, int(idx)).(*FunctionProto)
		out := fmt.Sprintf("%-4d ; %s", idx, formatConstRef(chunk, int(idx)))
		if proto == nil {
			return out, nil
		}
		for i := 0; i < proto.UpvalueN; i++ {
			isLocal, err := readU8(code, ip)
			if err != nil {
				return "", err
			}
			slot, err := readU8(code, ip)
			if err != nil {
				return "", err
			}
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			out += fmt.Sprintf("\n      | %s %d", kind, slot)
		}
		return out, nil
	default:
		return "", nil
	}
}

func chunkConst(chunk *Chunk, idx int) interface{} {
	if idx < 0 || idx >= len(chunk.Consts) {
		return nil
	}
	return chunk.Consts[idx]
}

func formatConstRef(chunk *Chunk, idx int) string {
	return formatConst(chunkConst(chunk, idx))
}

func formatConst(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return strconv.Quote(val)
	case *FunctionProto:
		name := val.Name
		if name == "" {
			name = "<anon>"
		}
		return "<fn " + name + ">"
	default:
		return "<unknown>"
	}
}

func readU8(code []byte, ip *int) (byte, error) {
	if *ip >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	v := code[*ip]
	*ip++
	return v, nil
}

func readU16(code []byte, ip *int) (uint16, error) {
	if *ip+1 >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	hi, lo := code[*ip], code[*ip+1]
	*ip += 2
	return uint16(hi)<<8 | uint16(lo), nil
}
