package value

import "testing"

func TestTableSetReportsNewKey(t *testing.T) {
	tbl := NewTable()
	key := &String{Chars: "x", Hash: hashString("x")}

	if !tbl.Set(key, Number(1)) {
		t.Fatal("first Set should report a new key")
	}
	if tbl.Set(key, Number(2)) {
		t.Fatal("second Set should report an existing key")
	}
	v, ok := tbl.Get(key)
	if !ok || v.AsNumber() != 2 {
		t.Fatalf("got (%v, %v), want (2, true)", v, ok)
	}
}

func TestTableDeleteLeavesTombstoneProbeable(t *testing.T) {
	tbl := NewTable()
	a := &String{Chars: "a", Hash: hashString("a")}
	b := &String{Chars: "b", Hash: hashString("b")}
	tbl.Set(a, Bool(true))
	tbl.Set(b, Bool(false))

	if !tbl.Delete(a) {
		t.Fatal("expected delete to report key present")
	}
	if _, ok := tbl.Get(a); ok {
		t.Fatal("deleted key should no longer be found")
	}
	// b must still be reachable: a tombstone must not truncate the probe.
	v, ok := tbl.Get(b)
	if !ok || v.AsBool() != false {
		t.Fatalf("got (%v, %v), want (false, true)", v, ok)
	}
}

func TestTableGrowsAndRehashes(t *testing.T) {
	tbl := NewTable()
	keys := make([]*String, 0, 50)
	for i := 0; i < 50; i++ {
		s := string(rune('a' + i%26))
		for j := 0; j < i/26; j++ {
			s += string(rune('a' + j))
		}
		k := &String{Chars: s, Hash: hashString(s)}
		keys = append(keys, k)
		tbl.Set(k, Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		if !ok || v.AsNumber() != float64(i) {
			t.Fatalf("key %d: got (%v, %v), want (%d, true)", i, v, ok, i)
		}
	}
}

func TestTableAddAllCopiesLiveEntriesOnly(t *testing.T) {
	src := NewTable()
	a := &String{Chars: "a", Hash: hashString("a")}
	b := &String{Chars: "b", Hash: hashString("b")}
	src.Set(a, Number(1))
	src.Set(b, Number(2))
	src.Delete(b)

	dst := NewTable()
	dst.AddAll(src)

	if v, ok := dst.Get(a); !ok || v.AsNumber() != 1 {
		t.Fatalf("expected a to be copied, got (%v, %v)", v, ok)
	}
	if _, ok := dst.Get(b); ok {
		t.Fatal("tombstoned key should not be copied")
	}
}

func TestFindStringMatchesByContentBeforeInterning(t *testing.T) {
	tbl := NewTable()
	s := &String{Chars: "hello", Hash: hashString("hello")}
	tbl.Set(s, Nil)

	found := tbl.FindString("hello", hashString("hello"))
	if found != s {
		t.Fatalf("expected FindString to return the canonical object")
	}
	if tbl.FindString("goodbye", hashString("goodbye")) != nil {
		t.Fatal("expected miss for unrelated content")
	}
}

func TestRemoveUnmarkedKeysActsAsWeakMap(t *testing.T) {
	tbl := NewTable()
	marked := &String{Chars: "kept", Hash: hashString("kept")}
	marked.setMarked(true)
	unmarked := &String{Chars: "dropped", Hash: hashString("dropped")}

	tbl.Set(marked, Nil)
	tbl.Set(unmarked, Nil)
	tbl.removeUnmarkedKeys()

	if _, ok := tbl.Get(marked); !ok {
		t.Fatal("marked key should survive")
	}
	if _, ok := tbl.Get(unmarked); ok {
		t.Fatal("unmarked key should have been dropped")
	}
}
