package value

import "testing"

func countObjects(h *Heap) int {
	n := 0
	for o := h.Objects(); o != nil; o = o.next() {
		n++
	}
	return n
}

func TestCollectSweepsUnreachableStrings(t *testing.T) {
	h := NewHeap()
	h.NewString("kept")
	h.NewString("dropped")

	kept := h.strings.FindString("kept", hashString("kept"))
	h.MarkRoots = func(mark func(Obj)) { mark(kept) }

	before := countObjects(h)
	h.Collect()
	after := countObjects(h)

	if after != 1 {
		t.Fatalf("expected 1 surviving object, got %d (before=%d)", after, before)
	}
	if h.strings.FindString("dropped", hashString("dropped")) != nil {
		t.Fatal("unreachable string should no longer be interned")
	}
	if h.strings.FindString("kept", hashString("kept")) == nil {
		t.Fatal("rooted string should still be interned")
	}
}

func TestCollectTracesClosureGraph(t *testing.T) {
	h := NewHeap()
	fn := h.NewFunction()
	fn.Name = h.NewString("f")
	fn.UpvalueCount = 1
	closure := h.NewClosure(fn)
	slot := Number(1)
	closure.Upvalues[0] = h.NewUpvalue(&slot)

	h.MarkRoots = func(mark func(Obj)) { mark(closure) }
	h.Collect()

	if countObjects(h) != 4 { // closure, fn, fn.Name, upvalue
		t.Fatalf("expected closure's transitive graph to survive, got %d objects", countObjects(h))
	}
}

func TestCollectDropsEverythingWithNoRoots(t *testing.T) {
	h := NewHeap()
	h.NewString("a")
	h.NewString("b")
	h.MarkRoots = func(mark func(Obj)) {}

	h.Collect()

	if n := countObjects(h); n != 0 {
		t.Fatalf("expected 0 objects with no roots, got %d", n)
	}
	if h.BytesAllocated() != 0 {
		t.Fatalf("expected bytesAllocated to return to 0, got %d", h.BytesAllocated())
	}
}

func TestStressModeCollectsOnEveryAllocation(t *testing.T) {
	h := NewHeap()
	h.Stress = true
	var collections int
	h.LogGC = func(before, after, next int) { collections++ }
	h.MarkRoots = func(mark func(Obj)) {}

	h.NewString("one")
	h.NewString("two")
	h.NewString("three")

	if collections != 3 {
		t.Fatalf("expected a collection per allocation under stress, got %d", collections)
	}
	if countObjects(h) != 0 {
		t.Fatal("unreachable strings should not survive stress collections")
	}
}

func TestTraceReferencesDrainsGrayWorklist(t *testing.T) {
	h := NewHeap()
	class := h.NewClass(h.NewString("C"))
	inst := h.NewInstance(class)
	inst.Fields.Set(h.NewString("x"), Number(1))

	h.MarkRoots = func(mark func(Obj)) { mark(inst) }
	h.Collect()

	if h.grayLen() != 0 {
		t.Fatalf("expected gray worklist fully drained, got %d remaining", h.grayLen())
	}
}
