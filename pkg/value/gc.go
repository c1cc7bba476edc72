package value

// collect runs one stop-the-world mark-sweep cycle: mark every object
// reachable from the VM-supplied roots, drain the gray worklist tracing
// each object's own references (blacken), drop any intern-table entry
// whose key did not survive marking, then sweep every unmarked object
// off the allocation list.
func (h *Heap) collect() {
	before := h.bytesAllocated

	if h.MarkRoots != nil {
		h.MarkRoots(h.markObject)
	}
	h.traceReferences()
	h.strings.removeUnmarkedKeys()
	h.sweep()

	h.nextGC = h.bytesAllocated * 2
	if h.nextGC < 1024*1024 {
		h.nextGC = 1024 * 1024
	}
	if h.LogGC != nil {
		h.LogGC(before, h.bytesAllocated, h.nextGC)
	}
}

// Collect forces an immediate collection regardless of the allocation
// threshold; exposed so tests can assert on GC behavior
// deterministically rather than waiting for the byte threshold to trip.
func (h *Heap) Collect() { h.collect() }

// markObject marks obj gray: ignores nil and already-marked objects,
// otherwise sets the mark bit and pushes it onto the gray worklist for
// traceReferences to blacken later.
func (h *Heap) markObject(o Obj) {
	if o == nil || o.marked() {
		return
	}
	o.setMarked(true)
	h.gray = append(h.gray, o)
}

// MarkValue marks v's object payload, if it has one. Non-Obj values
// (nil, bool, number) carry no heap reference and are ignored. Exposed
// so the VM's MarkRoots callback can mark Values directly (stack slots,
// global table values, upvalue contents) without reaching into Heap
// internals.
func (h *Heap) MarkValue(v Value) {
	if v.kind == KindObj {
		h.markObject(v.o)
	}
}

// traceReferences drains the gray worklist, blackening each object by
// tracing the references it owns and marking those in turn, until no
// gray objects remain — the standard tri-color mark phase. Because this
// collector is non-incremental, the usual gray-object invariant (no
// black object points at a white one) holds automatically once this
// function returns.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}
}

// blacken marks every object obj directly references. Strings and
// Natives have no owned references. Functions mark their name and
// constant pool; Closures mark their function and upvalues; Upvalues
// mark their closed slot; Classes mark their name and method table;
// Instances mark their class and field table; BoundMethods mark their
// receiver and method.
func (h *Heap) blacken(obj Obj) {
	switch o := obj.(type) {
	case *String, *Native:
		// No owned references.
	case *Function:
		if o.Name != nil {
			h.markObject(o.Name)
		}
		for _, c := range o.Chunk.Constants {
			h.MarkValue(c)
		}
	case *Closure:
		h.markObject(o.Function)
		for _, uv := range o.Upvalues {
			if uv != nil {
				h.markObject(uv)
			}
		}
	case *Upvalue:
		h.MarkValue(o.Closed)
	case *Class:
		h.markObject(o.Name)
		h.markTable(o.Methods)
	case *Instance:
		h.markObject(o.Class)
		h.markTable(o.Fields)
	case *BoundMethod:
		h.MarkValue(o.Receiver)
		h.markObject(o.Method)
	}
}

func (h *Heap) markTable(t *Table) {
	t.Each(func(key *String, v Value) {
		h.markObject(key)
		h.MarkValue(v)
	})
}

// sweep walks the allocation list once, clearing the mark bit on every
// surviving object and unlinking every unmarked one so it can be
// garbage-collected by Go's own allocator underneath.
func (h *Heap) sweep() {
	var prev Obj
	cur := h.objects
	for cur != nil {
		if cur.marked() {
			cur.setMarked(false)
			prev = cur
			cur = cur.next()
			continue
		}

		unreached := cur
		cur = cur.next()
		if prev != nil {
			prev.setNext(cur)
		} else {
			h.objects = cur
		}
		h.bytesAllocated -= approxSize(unreached)
	}
}

// approxSize mirrors the bookkeeping cost track() charged when the
// object was allocated, so sweeping it restores bytesAllocated to what
// it would have been had the object never existed.
func approxSize(o Obj) int {
	switch v := o.(type) {
	case *String:
		return len(v.Chars) + 16
	case *Function:
		return 64
	case *Native:
		return 32
	case *Closure:
		return 32 + 8*len(v.Upvalues)
	case *Upvalue:
		return 32
	case *Class:
		return 48
	case *Instance:
		return 48
	case *BoundMethod:
		return 32
	default:
		return 0
	}
}

// grayLen reports the live gray-worklist depth; used only by tests to
// assert traceReferences fully drains it.
func (h *Heap) grayLen() int { return len(h.gray) }

// resetGray discards any pending gray entries, so grayLen reports zero
// afterwards.
func (h *Heap) resetGray() { h.gray = h.gray[:0] }
