package vm

import "sync"

// VTable holds the method dispatch table for a class.
//
// Methods are stored in an array indexed by selector ID. Inheritance is
// handled by walking the parent chain when a slot is empty locally, which
// is also how a super send works: it starts the walk at the base class's
// table, so slots installed on a subclass are never consulted.
//
// Synthesized classes install routed slots after their vtable is linked,
// so slot access is guarded.
type VTable struct {
	mu      sync.RWMutex
	class   *Class
	parent  *VTable
	methods []Method
}

// NewVTable creates a new vtable for a class.
func NewVTable(class *Class, parent *VTable) *VTable {
	return &VTable{
		class:   class,
		parent:  parent,
		methods: make([]Method, 0, 16),
	}
}

// Lookup finds a method by selector ID, walking the inheritance chain.
// Returns nil if no method is found.
func (vt *VTable) Lookup(selector int) Method {
	for v := vt; v != nil; v = v.parent {
		if m := v.LookupLocal(selector); m != nil {
			return m
		}
	}
	return nil
}

// LookupArity is like Lookup but skips overload sets that have no overload
// for arity, so a subclass adding foo/1 does not hide an inherited foo/2.
func (vt *VTable) LookupArity(selector, arity int) Method {
	for v := vt; v != nil; v = v.parent {
		m := v.LookupLocal(selector)
		if m == nil {
			continue
		}
		if os, ok := m.(*OverloadSet); ok && os.Resolve(arity) == nil {
			continue
		}
		return m
	}
	return nil
}

// LookupLocal finds a method by selector ID in this vtable only.
func (vt *VTable) LookupLocal(selector int) Method {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	if selector >= 0 && selector < len(vt.methods) {
		return vt.methods[selector]
	}
	return nil
}

// AddMethod adds or replaces the method at the given selector ID.
// The methods array is grown as needed.
func (vt *VTable) AddMethod(selector int, method Method) {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	if selector >= len(vt.methods) {
		grown := make([]Method, selector+1)
		copy(grown, vt.methods)
		vt.methods = grown
	}
	vt.methods[selector] = method
}

// HasMethod returns true if this vtable (not parents) has a method for selector.
func (vt *VTable) HasMethod(selector int) bool {
	return vt.LookupLocal(selector) != nil
}

// Parent returns the parent vtable.
func (vt *VTable) Parent() *VTable {
	return vt.parent
}

// Class returns the class this vtable belongs to.
func (vt *VTable) Class() *Class {
	return vt.class
}

// LocalSelectors returns the selector IDs with a method in this vtable.
func (vt *VTable) LocalSelectors() []int {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	var ids []int
	for i, m := range vt.methods {
		if m != nil {
			ids = append(ids, i)
		}
	}
	return ids
}
