package bytecode

// ReturnKind is the declared return-type annotation of a function
// (`@void`, `@int`, `@float`, `@str`, `@bool`, or none at all). It lives in
// this package, not internal/value, purely so FunctionProto below can name
// it without internal/value importing back into internal/bytecode.
type ReturnKind byte

const (
	ReturnNone ReturnKind = iota
	ReturnVoid
	ReturnInt
	ReturnFloat
	ReturnStr
	ReturnBool
)

func (k ReturnKind) String() string {
	switch k {
	case ReturnVoid:
		return "void"
	case ReturnInt:
		return "int"
	case ReturnFloat:
		return "float"
	case ReturnStr:
		return "str"
	case ReturnBool:
		return "bool"
	default:
		return "<none>"
	}
}

// FunctionProto is the compile-time description of a function body: its
// name, arity, declared return kind and compiled chunk. internal/value
// embeds a *FunctionProto in ObjFunction to attach runtime identity
// (upvalue slots, closure state) without this package needing to know
// about the value/object model.
type FunctionProto struct {
	Name       string
	Source     string
	Arity      int
	UpvalueN   int
	MaxLocals  int
	ReturnKind ReturnKind
	IsInit     bool
	Chunk      *Chunk
}
