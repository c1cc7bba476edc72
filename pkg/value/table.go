package value

// Table is an open-addressing hash map keyed by interned *String
// (compared by pointer identity, since interning guarantees equal
// contents share one object). It backs globals, class method tables,
// instance field tables, and the Heap's string-intern table.
//
// A deleted slot is a tombstone: key == nil, value == Bool(true). An
// empty, never-used slot is key == nil, value == Nil. Distinguishing the
// two is what lets probing continue past a deleted slot without
// truncating the search for a key that collided with it.
//
// Load factor is kept at or below 0.75; Table doubles capacity (minimum
// 8) whenever an insert would push it over that threshold.
type Table struct {
	count   int
	entries []entry
}

type entry struct {
	key   *String
	value Value
}

const tableMaxLoad = 0.75

// NewTable returns an empty Table with no backing array allocated yet.
func NewTable() *Table { return &Table{} }

// Count is the number of occupied slots used for the load-factor check:
// live entries plus tombstones left by Delete or the GC since the last
// grow, which recounts live entries only.
func (t *Table) Count() int { return t.count }

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *String) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return Nil, false
	}
	return e.value, true
}

// Set inserts or overwrites key's value, growing the backing array first
// if this insert would exceed the max load factor. It reports whether
// this was a new key (true) as opposed to an overwrite of an existing
// one — the VM's OP_SET_GLOBAL relies on this to raise "undefined
// variable" when the key did not already exist.
func (t *Table) Set(key *String, v Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := findEntrySlot(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && e.value.IsNil() {
		// Only a genuinely empty slot (not a tombstone) grows the count;
		// a reused tombstone is already counted.
		t.count++
	}
	e.key = key
	e.value = v
	return isNewKey
}

// Delete removes key, leaving a tombstone behind so later probes for
// keys that collided with it keep working. Reports whether key was
// present.
func (t *Table) Delete(key *String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntrySlot(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = Bool(true) // tombstone
	return true
}

// AddAll copies every live entry of src into t (used by OP_INHERIT to
// seed a subclass's method table from its superclass).
func (t *Table) AddAll(src *Table) {
	for i := range src.entries {
		e := &src.entries[i]
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks up an interned string by its raw bytes and precomputed
// hash, used by the Heap to return the canonical String object for a
// freshly scanned literal without allocating a duplicate. It compares by
// content (not pointer) since the candidate string may not be canonical
// yet.
func (t *Table) FindString(chars string, hash uint32) *String {
	if len(t.entries) == 0 {
		return nil
	}
	cap := len(t.entries)
	index := int(hash) % cap
	for {
		e := &t.entries[index]
		if e.key == nil {
			// Stop at a true empty slot (not a tombstone): the string was
			// never interned.
			if e.value.IsNil() {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) % cap
	}
}

// removeUnmarkedKeys deletes every entry whose key is unreachable,
// called by the GC just before sweeping so the intern table behaves as a
// weak map: strings that are about to be collected stop being findable.
func (t *Table) removeUnmarkedKeys() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked() {
			e.key = nil
			e.value = Bool(true)
		}
	}
}

// Each calls fn for every live entry, in table order. Order is not the
// insertion order and is not guaranteed stable across resizes.
func (t *Table) Each(fn func(key *String, v Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

func growCapacity(oldCap int) int {
	if oldCap < 8 {
		return 8
	}
	return oldCap * 2
}

func (t *Table) grow(newCap int) {
	newEntries := make([]entry, newCap)
	t.count = 0
	for i := range t.entries {
		old := &t.entries[i]
		if old.key == nil {
			continue
		}
		dst := findEntrySlot(newEntries, old.key)
		dst.key = old.key
		dst.value = old.value
		t.count++
	}
	t.entries = newEntries
}

// findEntry probes for key, returning a pointer to its slot if present
// or to a slot with a nil key (empty or tombstone) otherwise. Used by
// read paths, which treat any nil-key slot as a miss.
func findEntry(entries []entry, key *String) *entry {
	return findEntrySlot(entries, key)
}

// findEntrySlot implements the linear-probe sequence shared by lookup,
// insert, and delete: walk from the key's hash bucket, skipping occupied
// slots that don't match, remembering the first tombstone seen so an
// insert can reuse it, and stopping at the first true empty slot.
func findEntrySlot(entries []entry, key *String) *entry {
	cap := len(entries)
	index := int(key.Hash) % cap
	var tombstone *entry
	for {
		e := &entries[index]
		switch {
		case e.key == nil:
			if e.value.IsNil() {
				// True empty slot: miss. Prefer an earlier tombstone if we
				// passed one, so inserts reuse dead slots instead of
				// growing the live chain.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		index = (index + 1) % cap
	}
}
