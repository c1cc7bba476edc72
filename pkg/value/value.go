// Package value implements wisp's runtome value representation: the
// tagged Value union, the heap-object hierarchy (Obj), the bytecode
// Chunk that Function objects own, the open-addressing Table used for
// globals/fields/methods/string-interning, and the mark-sweep Heap that
// owns every object's lifetime.
//
// These pieces live in one package, not one apiece, because they are
// mutually recursive in a way Go's package graph cannot split cleanly: a
// Function owns a Chunk, a Chunk's constant pool holds Values, and a
// Value may itself be an Obj wrapping a Function (nested function
// literals are compiled as constants of their enclosing chunk). Real Go
// bytecode VMs in this same domain (e.g. ozanh/ugo) make the identical
// choice and keep value/chunk/vm-support types in a single package,
// splitting out only the pieces with no such cycle (scanner, token).
package value

import "strconv"

// Kind discriminates the four Value variants.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is a tagged union: exactly one of the fields below is
// meaningful, selected by kind. Values are small and passed by copy,
// the way the stack-based VM's operand stack expects.
type Value struct {
	kind Kind
	b    bool
	n    float64
	o    Obj
}

// Nil is the language's absence-of-a-value constant.
var Nil = Value{kind: KindNil}

// Bool wraps a boolean into a Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64 into a Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// FromObj wraps a heap object into a Value.
func FromObj(o Obj) Value { return Value{kind: KindObj, o: o} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNil() bool   { return v.kind == KindNil }
func (v Value) IsBool() bool  { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool   { return v.kind == KindObj }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsObj() Obj        { return v.o }

// IsObjType reports whether v holds a heap object of the given type.
func (v Value) IsObjType(t ObjType) bool {
	return v.kind == KindObj && v.o != nil && v.o.objType() == t
}

// IsFalsey implements Lox truthiness: nil and false are falsey,
// everything else (including 0 and the empty string) is truthy.
func (v Value) IsFalsey() bool {
	return v.kind == KindNil || (v.kind == KindBool && !v.b)
}

// Equal implements value equality: same variant and same payload; two
// Obj values are equal iff they are the same object (strings compare by
// identity because they are interned, so pointer equality suffices).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindObj:
		return v.o == other.o
	default:
		return false
	}
}

// String renders v the way `print` writes it to stdout: numbers via the
// shortest round-tripping decimal form, booleans as true/false, nil as
// "nil", and heap objects by delegating to the object's own String.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindObj:
		if v.o == nil {
			return "nil"
		}
		return v.o.String()
	default:
		return "?"
	}
}
