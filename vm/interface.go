package vm

import "sync"

// ---------------------------------------------------------------------------
// Interface: a named set of abstract method signatures
// ---------------------------------------------------------------------------

// Interface declares methods a class promises to provide. Interfaces carry
// no state and no bodies; they may extend other interfaces.
type Interface struct {
	Name       string
	Extends    []*Interface
	Signatures []Signature
}

// NewInterface creates an interface. Every signature is marked abstract.
func NewInterface(name string, extends []*Interface, sigs ...Signature) *Interface {
	own := make([]Signature, len(sigs))
	for i, s := range sigs {
		s.Abstract = true
		own[i] = s
	}
	return &Interface{Name: name, Extends: extends, Signatures: own}
}

// AllSignatures returns the interface's own signatures followed by those
// inherited from extended interfaces. Duplicates of the same shape are
// reported once.
func (i *Interface) AllSignatures() []Signature {
	var out []Signature
	seen := make(map[*Interface]bool)
	var walk func(*Interface)
	walk = func(cur *Interface) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		for _, s := range cur.Signatures {
			dup := false
			for _, have := range out {
				if have.SameShape(s) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, s)
			}
		}
		for _, parent := range cur.Extends {
			walk(parent)
		}
	}
	walk(i)
	return out
}

// IsSubinterfaceOf returns true if i is other or extends it transitively.
func (i *Interface) IsSubinterfaceOf(other *Interface) bool {
	if i == other {
		return true
	}
	for _, parent := range i.Extends {
		if parent.IsSubinterfaceOf(other) {
			return true
		}
	}
	return false
}

// String implements the Stringer interface.
func (i *Interface) String() string {
	return i.Name
}

// ---------------------------------------------------------------------------
// InterfaceTable: interface registry
// ---------------------------------------------------------------------------

// InterfaceTable manages registered interfaces by name.
// It's thread-safe for concurrent access.
type InterfaceTable struct {
	mu         sync.RWMutex
	interfaces map[string]*Interface
}

// NewInterfaceTable creates a new empty interface table.
func NewInterfaceTable() *InterfaceTable {
	return &InterfaceTable{
		interfaces: make(map[string]*Interface),
	}
}

// Register adds an interface to the table.
// Returns the previous interface with this name, or nil.
func (it *InterfaceTable) Register(i *Interface) *Interface {
	it.mu.Lock()
	defer it.mu.Unlock()

	old := it.interfaces[i.Name]
	it.interfaces[i.Name] = i
	return old
}

// Lookup finds an interface by name.
func (it *InterfaceTable) Lookup(name string) *Interface {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.interfaces[name]
}

// Len returns the number of registered interfaces.
func (it *InterfaceTable) Len() int {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return len(it.interfaces)
}
