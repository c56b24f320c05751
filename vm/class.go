package vm

import (
	"strings"
	"sync"

	"github.com/chazu/graft/errors"
)

// ---------------------------------------------------------------------------
// Class: native class representation
// ---------------------------------------------------------------------------

// Class is a native class. Name is fully qualified with dots ("a.b.Widget").
type Class struct {
	Name         string
	Superclass   *Class
	Interfaces   []*Interface
	VTable       *VTable
	Constructors []*Constructor

	Abstract  bool // cannot be instantiated directly
	Final     bool // cannot be subclassed
	Synthetic bool // generated at runtime
	Anonymous bool // not registered under Name
}

// NewClass creates a new class with the given name and superclass.
// The VTable is created and linked to the superclass's table.
func NewClass(name string, superclass *Class) *Class {
	var parentVT *VTable
	if superclass != nil {
		parentVT = superclass.VTable
	}
	c := &Class{
		Name:       name,
		Superclass: superclass,
	}
	c.VTable = NewVTable(c, parentVT)
	return c
}

// SimpleName returns the last dotted segment of the class name.
func (c *Class) SimpleName() string {
	if i := strings.LastIndexByte(c.Name, '.'); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

// Package returns the dotted prefix of the class name.
func (c *Class) Package() string {
	if i := strings.LastIndexByte(c.Name, '.'); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.Name
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// Implements returns true if c or a superclass declares conformance to
// iface, directly or through interface inheritance.
func (c *Class) Implements(iface *Interface) bool {
	for current := c; current != nil; current = current.Superclass {
		for _, i := range current.Interfaces {
			if i.IsSubinterfaceOf(iface) {
				return true
			}
		}
	}
	return false
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Superclass; current != nil; current = current.Superclass {
		result = append(result, current)
	}
	return result
}

// ---------------------------------------------------------------------------
// Method registration on Class
// ---------------------------------------------------------------------------

// AddMethod registers a method on this class. Methods with the same name
// and different arity are kept together in an OverloadSet.
func (c *Class) AddMethod(selectors *SelectorTable, method Method) {
	sig := MethodSignature(method)
	id := selectors.Intern(sig.Name)
	set, ok := c.VTable.LookupLocal(id).(*OverloadSet)
	if !ok {
		set = NewOverloadSet(sig.Name)
	}
	set.Add(method)
	c.VTable.AddMethod(id, set)
}

// SetSlot installs a method directly in the vtable slot for name, replacing
// whatever was there. Synthesized classes use this for routed slots.
func (c *Class) SetSlot(selectors *SelectorTable, name string, method Method) {
	c.VTable.AddMethod(selectors.Intern(name), method)
}

// Define0 registers a zero-argument method on this class.
func (c *Class) Define0(selectors *SelectorTable, sig Signature, fn Method0Func) {
	c.AddMethod(selectors, NewMethod0(sig, fn))
}

// Define1 registers a one-argument method on this class.
func (c *Class) Define1(selectors *SelectorTable, sig Signature, fn Method1Func) {
	c.AddMethod(selectors, NewMethod1(sig, fn))
}

// Define2 registers a two-argument method on this class.
func (c *Class) Define2(selectors *SelectorTable, sig Signature, fn Method2Func) {
	c.AddMethod(selectors, NewMethod2(sig, fn))
}

// DefinePrimitive registers a method receiving its arguments as a slice.
func (c *Class) DefinePrimitive(selectors *SelectorTable, sig Signature, fn PrimitiveFunc) {
	c.AddMethod(selectors, NewPrimitiveMethod(sig, fn))
}

// DefineAbstract declares a method without a body and marks the class abstract.
func (c *Class) DefineAbstract(selectors *SelectorTable, sig Signature) {
	c.AddMethod(selectors, NewAbstractMethod(sig))
	c.Abstract = true
}

// LookupMethod looks up a method by name, walking superclasses.
func (c *Class) LookupMethod(selectors *SelectorTable, name string) Method {
	id := selectors.Lookup(name)
	if id < 0 {
		return nil
	}
	return c.VTable.Lookup(id)
}

// HasMethod returns true if this class (not superclasses) defines a method.
func (c *Class) HasMethod(selectors *SelectorTable, name string) bool {
	id := selectors.Lookup(name)
	if id < 0 {
		return false
	}
	return c.VTable.HasMethod(id)
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// AddConstructor declares a constructor taking the given parameter kinds.
func (c *Class) AddConstructor(body func(*Construction) error, params ...Kind) {
	c.Constructors = append(c.Constructors, &Constructor{Params: params, Body: body})
}

// ConstructorFor returns the constructor taking argc arguments. A class
// that declares no constructors has an implicit no-argument one, reported
// as (nil, nil).
func (c *Class) ConstructorFor(argc int) (*Constructor, error) {
	if len(c.Constructors) == 0 {
		if argc == 0 {
			return nil, nil
		}
		return nil, errors.Routing(c.Name, "<init>", "only the implicit no-argument constructor exists, got %d arguments", argc)
	}
	for _, ctor := range c.Constructors {
		if len(ctor.Params) == argc {
			return ctor, nil
		}
	}
	return nil, errors.Routing(c.Name, "<init>", "no constructor takes %d arguments", argc)
}

// ---------------------------------------------------------------------------
// ClassTable: class registry by fully-qualified name
// ---------------------------------------------------------------------------

// ClassTable manages registered classes by name.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	old := ct.classes[c.Name]
	ct.classes[c.Name] = c
	return old
}

// RegisterNew adds a class only if its name is free. It returns the class
// already holding the name when the registration is refused.
func (ct *ClassTable) RegisterNew(c *Class) (*Class, bool) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if old, ok := ct.classes[c.Name]; ok {
		return old, false
	}
	ct.classes[c.Name] = c
	return c, true
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// All returns all registered classes.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}
