package value

// Heap owns every heap-allocated object's lifetime: it threads new
// objects onto an intrusive allocation list, interns strings through a
// weak Table, tracks approximate bytes allocated, and runs a tri-color
// mark-sweep collection whenever that total crosses a growing
// threshold (or always, in stress mode).
//
// Heap does not know how to find GC roots itself — those live in the
// VM's stack, call frames, open-upvalue list, globals table, and the
// compiler chain, none of which this package can see without creating
// an import cycle the wrong way. Instead the VM installs a MarkRoots
// callback once at startup; Collect invokes it to seed the gray
// worklist, the same way clox's reallocate() calls the file-local
// markRoots() defined in vm.c.
type Heap struct {
	objects        Obj
	strings        *Table
	bytesAllocated int
	nextGC         int
	gray           []Obj

	// Stress, when true, forces a collection before every single
	// allocation instead of only once bytesAllocated crosses nextGC. It
	// is wired to the WISP_GC_STRESS environment toggle (see
	// internal/clidriver) so GC-stress behavior is exercisable from the
	// outside without a debug build.
	Stress bool

	// MarkRoots, when set, is called at the start of every collection to
	// mark every object reachable from outside the heap (the VM's stack,
	// frames, open upvalues, globals, and the compiler chain). mark is
	// the callback root-marking code should invoke for each such Obj.
	MarkRoots func(mark func(Obj))

	// LogGC, when non-nil, receives a line of collection diagnostics
	// (before/after byte counts) after every Collect. Left nil in normal
	// operation; tests use it to assert a collection actually ran.
	LogGC func(before, after, next int)
}

// NewHeap returns an empty Heap with the initial GC threshold clox uses
// (1 MiB) before the first collection can trigger.
func NewHeap() *Heap {
	return &Heap{
		strings: NewTable(),
		nextGC:  1024 * 1024,
	}
}

// BytesAllocated reports the heap's current accounting total, exposed
// for tests asserting that a collection actually reduced it.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// track links obj onto the allocation list, stamps its size into the
// byte-accounting total, and runs a collection if warranted. size is an
// approximate cost used only to schedule collections, not to recover
// memory Go's own allocator/GC still owns underneath.
func (h *Heap) track(obj Obj, size int) {
	obj.setNext(h.objects)
	h.objects = obj
	h.bytesAllocated += size
	if h.Stress || h.bytesAllocated > h.nextGC {
		h.collect()
	}
}

// NewString interns chars, returning the canonical String object. If an
// equal string is already interned, that object is returned and no new
// allocation happens; otherwise a new String is created, linked into the
// heap, and interned.
func (h *Heap) NewString(chars string) *String {
	hash := hashString(chars)
	if existing := h.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	s := &String{object: newHeader(ObjStringType), Chars: chars, Hash: hash}
	h.track(s, len(chars)+16)
	// Table.Set grows its backing array with Go's allocator, not through
	// track(), so it never triggers a collection while s is still
	// unrooted.
	h.strings.Set(s, Nil)
	return s
}

// NewFunction allocates an empty Function with its own Chunk.
func (h *Heap) NewFunction() *Function {
	f := &Function{object: newHeader(ObjFunctionType), Chunk: NewChunk()}
	h.track(f, 64)
	return f
}

// NewNative allocates a Native wrapping fn.
func (h *Heap) NewNative(arity int, fn NativeFn) *Native {
	n := &Native{object: newHeader(ObjNativeType), Arity: arity, Fn: fn}
	h.track(n, 32)
	return n
}

// NewClosure allocates a Closure over fn with upvalueCount empty
// upvalue slots, to be filled in by OP_CLOSURE.
func (h *Heap) NewClosure(fn *Function) *Closure {
	c := &Closure{object: newHeader(ObjClosureType), Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
	h.track(c, 32+8*fn.UpvalueCount)
	return c
}

// NewUpvalue allocates an open upvalue pointing at slot.
func (h *Heap) NewUpvalue(slot *Value) *Upvalue {
	u := &Upvalue{object: newHeader(ObjUpvalueType), Location: slot}
	h.track(u, 32)
	return u
}

// NewClass allocates an empty Class named name.
func (h *Heap) NewClass(name *String) *Class {
	c := &Class{object: newHeader(ObjClassType), Name: name, Methods: NewTable()}
	h.track(c, 48)
	return c
}

// NewInstance allocates an Instance of class with an empty field table.
func (h *Heap) NewInstance(class *Class) *Instance {
	i := &Instance{object: newHeader(ObjInstanceType), Class: class, Fields: NewTable()}
	h.track(i, 48)
	return i
}

// NewBoundMethod allocates a BoundMethod pairing receiver with method.
func (h *Heap) NewBoundMethod(receiver Value, method *Closure) *BoundMethod {
	b := &BoundMethod{object: newHeader(ObjBoundMethodType), Receiver: receiver, Method: method}
	h.track(b, 32)
	return b
}

// Strings exposes the intern table so the VM can share it for operations
// like `str == "literal"` that need to look up a freshly built Go string
// against the canonical interned object without allocating first.
func (h *Heap) Strings() *Table { return h.strings }

// Objects exposes the head of the allocation list, used by tests
// asserting liveness.
func (h *Heap) Objects() Obj { return h.objects }
