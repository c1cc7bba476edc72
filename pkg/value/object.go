package value

// ObjType discriminates the heap-object hierarchy. Every Obj carries one
// of these as a type tag, the cheap discriminant behind Value.IsObjType's
// "is this a Foo" checks (property access, OP_ADD's operands,
// OP_INHERIT). Call sites that need the concrete fields, such as
// OP_CALL's callee dispatch and the GC's blacken, use a Go type switch.
type ObjType uint8

const (
	ObjStringType ObjType = iota
	ObjFunctionType
	ObjNativeType
	ObjClosureType
	ObjUpvalueType
	ObjClassType
	ObjInstanceType
	ObjBoundMethodType
)

// Obj is satisfied by every heap-allocated object. Objects are threaded
// onto Heap's allocation list through next/setNext so the sweep phase can
// walk every live allocation exactly once.
type Obj interface {
	objType() ObjType
	marked() bool
	setMarked(bool)
	next() Obj
	setNext(Obj)
	String() string
}

// object is the common header embedded in every concrete Obj variant: a
// type tag, the GC's mark bit, and the intrusive next-pointer. Embedding
// it gives each variant the Obj interface's bookkeeping methods for free
// via Go's method promotion.
type object struct {
	typ     ObjType
	isMark  bool
	nextObj Obj
}

func (o *object) objType() ObjType  { return o.typ }
func (o *object) marked() bool      { return o.isMark }
func (o *object) setMarked(m bool)  { o.isMark = m }
func (o *object) next() Obj         { return o.nextObj }
func (o *object) setNext(n Obj)     { o.nextObj = n }

// String is the heap object that backs every string value. Its
// character contents are interned: for its lifetime, no other String
// object coexists with equal Chars (see Table/Heap).
type String struct {
	object
	Chars string
	Hash  uint32
}

func (s *String) String() string { return s.Chars }

// hashString computes the 32-bit FNV-1a hash used for string interning
// and table lookups.
func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// Function is a compiled function body: its arity, how many upvalues its
// closures must capture, an optional name (nil for none, used while
// compiling top-level code), and the Chunk holding its bytecode.
type Function struct {
	object
	Arity        int
	UpvalueCount int
	Name         *String // nil for the implicit top-level script function
	Chunk        *Chunk
}

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// NativeFn is the signature every native function implements: given its
// arguments, it returns a result value, or ok=false if it failed (natives
// cannot raise a language-level exception; failure is signaled by this
// sentinel and surfaced by the VM as a runtime error).
type NativeFn func(args []Value) (result Value, ok bool)

// Native wraps a Go function so it can be called like any other Lox
// callable.
type Native struct {
	object
	Arity int
	Fn    NativeFn
}

func (n *Native) String() string { return "<native fn>" }

// Upvalue is an indirection cell that starts open, pointing at a live
// value-stack slot via Location, and is later closed, at which point it
// owns its value in Closed and Location points at Closed instead. Open
// upvalues form a stack-ordered intrusive list through NextOpen, threaded
// by the VM independently of the Heap's allocation list.
type Upvalue struct {
	object
	Location *Value
	Closed   Value
	NextOpen *Upvalue
}

func (u *Upvalue) String() string { return "upvalue" }

// Closure pairs a Function with the upvalues its nested functions
// captured from enclosing scopes. Every compiled function the VM runs is
// called through a Closure (top-level code is wrapped in one too).
type Closure struct {
	object
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) String() string { return c.Function.String() }

// Class is a named, open method table with optional single inheritance
// (inheritance is realized at OP_INHERIT time by copying the
// superclass's Methods into the subclass, not by a live superclass
// pointer).
type Class struct {
	object
	Name    *String
	Methods *Table
}

func (c *Class) String() string { return c.Name.Chars }

// Instance is a Class value together with its own field table.
type Instance struct {
	object
	Class  *Class
	Fields *Table
}

func (i *Instance) String() string { return i.Class.Name.Chars + " instance" }

// BoundMethod is a receiver paired with the Closure looked up on its
// class, materialized the moment a method is accessed as a value (e.g.
// `obj.method` without an immediate call) rather than invoked directly.
type BoundMethod struct {
	object
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) String() string { return b.Method.String() }

// newHeader stamps the common object header with its type tag; callers
// embed the result as the zero value's object field is otherwise left at
// ObjStringType (0), which would misreport every freshly constructed
// object's type until this is set.
func newHeader(t ObjType) object { return object{typ: t} }
