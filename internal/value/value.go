// Package value implements Embr's tagged Value union and heap object
// model: nil, bool and number are stored inline; every other
// kind of data — strings, functions, closures, classes, instances, bound
// methods, arrays, dicts and natives — is a heap Object reached through
// Value.obj.
package value

import (
	"fmt"
	"strconv"
)

// Kind discriminates the inline-vs-heap shape of a Value.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is Embr's runtime value: a small tagged union, copied by value on
// the VM's operand stack the way the original C interpreter copies its Value.
type Value struct {
	kind Kind
	b    bool
	n    float64
	obj  Object
}

// Nil is the zero Value.
var Nil = Value{kind: KindNil}

func Bool(b bool) Value   { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// FromObject wraps a heap object as a Value.
func FromObject(o Object) Value { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNil() bool   { return v.kind == KindNil }
func (v Value) IsBool() bool  { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsObject() Object  { return v.obj }

func (v Value) IsObjType(t ObjType) bool {
	return v.kind == KindObject && v.obj != nil && v.obj.ObjType() == t
}

func (v Value) IsString() bool  { return v.IsObjType(ObjTypeString) }
func (v Value) IsArray() bool   { return v.IsObjType(ObjTypeArray) }
func (v Value) IsDict() bool    { return v.IsObjType(ObjTypeDict) }
func (v Value) IsInstance() bool { return v.IsObjType(ObjTypeInstance) }
func (v Value) IsClass() bool   { return v.IsObjType(ObjTypeClass) }

// AsString panics if v is not a string; callers must check IsString first
// (or use TypeName in error paths) exactly like the C macros AS_STRING did.
func (v Value) AsString() *ObjString { return v.obj.(*ObjString) }
func (v Value) AsArray() *ObjArray   { return v.obj.(*ObjArray) }
func (v Value) AsDict() *ObjDict     { return v.obj.(*ObjDict) }
func (v Value) AsInstance() *ObjInstance { return v.obj.(*ObjInstance) }
func (v Value) AsClass() *ObjClass   { return v.obj.(*ObjClass) }
func (v Value) AsClosure() *ObjClosure { return v.obj.(*ObjClosure) }

// Str returns the Go string content of a string Value, or "" otherwise.
func (v Value) Str() string {
	if v.IsString() {
		return v.AsString().Value
	}
	return ""
}

// Truthy implements Embr's falsey rule: nil and false are falsey, every
// other value (including 0 and "") is truthy — carried verbatim from the
// original interpreter's isFalsey.
func Truthy(v Value) bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal implements `==`. Objects other than interned strings compare by
// identity; numbers and bools compare by value.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindObject:
		if a.obj == nil || b.obj == nil {
			return a.obj == b.obj
		}
		if as, ok := a.obj.(*ObjString); ok {
			if bs, ok := b.obj.(*ObjString); ok {
				return as == bs // interned: pointer equality is content equality
			}
			return false
		}
		return a.obj == b.obj
	default:
		return false
	}
}

// TypeName names a value's kind the way the `typeof`-style diagnostics and
// runtime type-mismatch errors report it.
func TypeName(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		if v.obj == nil {
			return "nil"
		}
		switch v.obj.ObjType() {
		case ObjTypeString:
			return "str"
		case ObjTypeFunction, ObjTypeClosure, ObjTypeBoundMethod, ObjTypeNative:
			return "function"
		case ObjTypeClass:
			return "class"
		case ObjTypeInstance:
			return "instance"
		case ObjTypeArray:
			return "array"
		case ObjTypeDict:
			return "dict"
		case ObjTypeUpvalue:
			return "upvalue"
		}
	}
	return "unknown"
}

// Stringify renders a value the way `out` (print) and string concatenation
// via + require: numbers print without an exponent when integral.
func Stringify(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		if v.n == float64(int64(v.n)) {
			return strconv.FormatInt(int64(v.n), 10)
		}
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindObject:
		if v.obj == nil {
			return "nil"
		}
		switch o := v.obj.(type) {
		case *ObjString:
			return o.Value
		case *ObjArray:
			return stringifyArray(o)
		case *ObjDict:
			return stringifyDict(o)
		case *ObjInstance:
			return fmt.Sprintf("<%s instance>", o.Class.Name)
		case *ObjClass:
			return fmt.Sprintf("<class %s>", o.Name)
		case *ObjClosure:
			return functionLabel(o.Fn)
		case *ObjFunction:
			return functionLabel(o)
		case *ObjBoundMethod:
			return functionLabel(o.Method.Fn)
		case *ObjNative:
			return fmt.Sprintf("<native fn %s>", o.Name)
		}
	}
	return "<unknown>"
}

func functionLabel(fn *ObjFunction) string {
	name := "<script>"
	if fn != nil && fn.Proto != nil && fn.Proto.Name != "" {
		name = fn.Proto.Name
	}
	return fmt.Sprintf("<fn %s>", name)
}

func stringifyArray(a *ObjArray) string {
	s := "["
	for i, el := range a.Elements {
		if i > 0 {
			s += ", "
		}
		if el.IsString() {
			s += strconv.Quote(el.Str())
		} else {
			s += Stringify(el)
		}
	}
	return s + "]"
}

func stringifyDict(d *ObjDict) string {
	s := "{"
	first := true
	for k, v := range d.Entries {
		if !first {
			s += ", "
		}
		first = false
		s += strconv.Quote(k) + ": " + Stringify(v)
	}
	return s + "}"
}
