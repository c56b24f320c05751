package vm

import "sync"

// SelectorTable maps method names to dense integer IDs. A vtable is a slice
// indexed by selector ID, so every name a class or interface declares is
// interned once at definition time and sends resolve with an index.
//
// IDs are never reused or removed. Synthesized classes intern new names
// while other goroutines dispatch, so every method locks.
type SelectorTable struct {
	mu    sync.RWMutex
	ids   map[string]int
	names []string
}

// NewSelectorTable returns an empty table.
func NewSelectorTable() *SelectorTable {
	return &SelectorTable{ids: make(map[string]int)}
}

// Intern returns name's ID, assigning the next free one on first use.
func (st *SelectorTable) Intern(name string) int {
	if id := st.Lookup(name); id >= 0 {
		return id
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.ids[name]; ok {
		return id
	}
	st.ids[name] = len(st.names)
	st.names = append(st.names, name)
	return len(st.names) - 1
}

// Lookup returns name's ID, or -1 if nothing has interned it. A name nobody
// declared cannot have a method, so dispatch treats -1 as does-not-understand.
func (st *SelectorTable) Lookup(name string) int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if id, ok := st.ids[name]; ok {
		return id
	}
	return -1
}

// Name returns the name interned as id, or "".
func (st *SelectorTable) Name(id int) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if id < 0 || id >= len(st.names) {
		return ""
	}
	return st.names[id]
}

// Len returns how many names have been interned.
func (st *SelectorTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.names)
}
