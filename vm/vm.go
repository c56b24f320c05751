package vm

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/chazu/graft/errors"
)

// VM is the native runtime: class and interface tables, the selector table,
// and the dispatch entry points. All methods are safe for concurrent use.
type VM struct {
	Selectors  *SelectorTable
	Classes    *ClassTable
	Interfaces *InterfaceTable

	// Well-known classes and interfaces
	ObjectClass         *Class
	ExecutorClass       *Class
	RunnableInterface   *Interface
	ComparatorInterface *Interface

	nextID atomic.Uint64

	// Objects allocated and not yet finalized, keyed by ID.
	live sync.Map

	finalizersMu sync.RWMutex
	finalizers   []func(id uint64)
}

// NewVM creates a VM with the lang.* bootstrap classes loaded.
func NewVM() *VM {
	vm := &VM{
		Selectors:  NewSelectorTable(),
		Classes:    NewClassTable(),
		Interfaces: NewInterfaceTable(),
	}
	vm.bootstrap()
	return vm
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// Send performs a virtual send: the method is looked up starting at the
// receiver's own class, so overrides (including routed slots) win.
func (vm *VM) Send(receiver *Object, name string, args ...Value) (Value, error) {
	if receiver == nil {
		return nil, errors.Routing("", name, "nil receiver")
	}
	return vm.dispatch(receiver.class, receiver, name, args)
}

// SendSuper performs a non-virtual send starting at class, which must be the
// receiver's class or one of its superclasses. Slots installed below class
// are never consulted.
func (vm *VM) SendSuper(class *Class, receiver *Object, name string, args ...Value) (Value, error) {
	if receiver == nil {
		return nil, errors.Routing(class.Name, name, "nil receiver")
	}
	if !receiver.class.IsSubclassOf(class) {
		return nil, errors.Routing(class.Name, name, "%s is not a subclass", receiver.class.Name)
	}
	return vm.dispatch(class, receiver, name, args)
}

// Responds reports whether class has a concrete method for name taking arity
// arguments, starting the lookup at class.
func (vm *VM) Responds(class *Class, name string, arity int) bool {
	id := vm.Selectors.Lookup(name)
	if id < 0 {
		return false
	}
	m := class.VTable.LookupArity(id, arity)
	return m != nil && !IsAbstract(m, arity)
}

func (vm *VM) dispatch(class *Class, receiver *Object, name string, args []Value) (Value, error) {
	id := vm.Selectors.Lookup(name)
	if id < 0 {
		return nil, errors.Routing(class.Name, name, "does not understand")
	}
	m := class.VTable.LookupArity(id, len(args))
	if m == nil {
		return nil, errors.Routing(class.Name, name, "no method takes %d arguments", len(args))
	}
	return m.Invoke(vm, receiver, args)
}

// ---------------------------------------------------------------------------
// Instantiation
// ---------------------------------------------------------------------------

// Instantiate allocates an instance of class and runs the constructor that
// takes len(args) arguments.
func (vm *VM) Instantiate(class *Class, args ...Value) (*Object, error) {
	return vm.InstantiateWith(class, nil, args...)
}

// InstantiateWith is Instantiate with opaque construction data made visible
// to every constructor in the chain. On failure the half-built instance is
// disposed and never returned.
func (vm *VM) InstantiateWith(class *Class, data any, args ...Value) (*Object, error) {
	if class.Abstract {
		return nil, errors.Construction(class.Name, errors.Routing(class.Name, "<init>", "class is abstract"))
	}
	obj := vm.allocate(class)
	if err := vm.Construct(class, obj, data, args...); err != nil {
		vm.Dispose(obj)
		return nil, errors.Construction(class.Name, err)
	}
	return obj, nil
}

// NewByName instantiates the registered class called name. This is the
// lookup path external systems such as manifests use.
func (vm *VM) NewByName(name string, args ...Value) (*Object, error) {
	class := vm.Classes.Lookup(name)
	if class == nil {
		return nil, errors.Routing(name, "<init>", "class not found")
	}
	return vm.Instantiate(class, args...)
}

// Construct runs class's constructor for args against an allocated object.
// Constructors call it (through Construction.Super) to chain upwards.
func (vm *VM) Construct(class *Class, obj *Object, data any, args ...Value) error {
	ctor, err := class.ConstructorFor(len(args))
	if err != nil {
		return err
	}
	c := &Construction{VM: vm, Class: class, Object: obj, Data: data}
	if ctor == nil || ctor.Body == nil {
		return c.Super()
	}
	c.Args, err = coerceArgs(class.Name, Signature{Name: "<init>", Params: ctor.Params}, args)
	if err != nil {
		return err
	}
	return ctor.Body(c)
}

func (vm *VM) allocate(class *Class) *Object {
	obj := &Object{
		id:     vm.nextID.Add(1),
		class:  class,
		fields: make(map[string]Value),
	}
	vm.live.Store(obj.id, struct{}{})
	runtime.AddCleanup(obj, vm.finalize, obj.id)
	return obj
}

// ---------------------------------------------------------------------------
// Class loading
// ---------------------------------------------------------------------------

// ClassDef describes a class to be loaded with DefineClass.
type ClassDef struct {
	Name       string
	Superclass *Class // defaults to lang.Object
	Interfaces []*Interface
	Abstract   bool
	Final      bool
	Synthetic  bool
	Anonymous  bool // not registered; reachable only through the returned *Class
}

// DefineClass creates a class from def, lets build populate it, and then
// registers it under def.Name. A name already registered is rejected, so a
// class is never visible by name before build has finished.
func (vm *VM) DefineClass(def ClassDef, build func(*Class) error) (*Class, error) {
	super := def.Superclass
	if super == nil {
		super = vm.ObjectClass
	}
	if super.Final {
		return nil, errors.TypeSynthesis(def.Name, "superclass %s is final", super.Name)
	}
	if def.Name == "" {
		return nil, errors.TypeSynthesis("", "class name is required")
	}
	if !def.Anonymous && vm.Classes.Lookup(def.Name) != nil {
		return nil, errors.TypeSynthesis(def.Name, "a class with this name is already defined")
	}

	c := NewClass(def.Name, super)
	c.Interfaces = def.Interfaces
	c.Abstract = def.Abstract
	c.Final = def.Final
	c.Synthetic = def.Synthetic
	c.Anonymous = def.Anonymous

	if build != nil {
		if err := build(c); err != nil {
			return nil, errors.New(errors.KindTypeSynthesis).Class(def.Name).Detail("build failed").Cause(err).Build()
		}
	}
	if def.Anonymous {
		return c, nil
	}
	if _, ok := vm.Classes.RegisterNew(c); !ok {
		return nil, errors.TypeSynthesis(def.Name, "a class with this name is already defined")
	}
	return c, nil
}

// DefineInterface creates and registers an interface.
func (vm *VM) DefineInterface(name string, extends []*Interface, sigs ...Signature) *Interface {
	i := NewInterface(name, extends, sigs...)
	vm.Interfaces.Register(i)
	return i
}

// ---------------------------------------------------------------------------
// Reflection
// ---------------------------------------------------------------------------

// VisibleSignatures returns every method signature visible on class: its own
// and inherited methods (most-derived first per name and arity), plus the
// signatures of declared interfaces the class does not implement, reported
// as abstract.
func (vm *VM) VisibleSignatures(class *Class) []Signature {
	type key struct {
		name  string
		arity int
	}
	seen := make(map[key]bool)
	var out []Signature
	add := func(s Signature) {
		k := key{s.Name, s.Arity()}
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, s)
	}

	for v := class.VTable; v != nil; v = v.Parent() {
		for _, id := range v.LocalSelectors() {
			for _, s := range MethodSignatures(v.LookupLocal(id)) {
				add(s)
			}
		}
	}
	for current := class; current != nil; current = current.Superclass {
		for _, iface := range current.Interfaces {
			for _, s := range iface.AllSignatures() {
				add(s)
			}
		}
	}
	sortSignatures(out)
	return out
}

// OverridableSignatures returns the visible signatures that are not final.
func (vm *VM) OverridableSignatures(class *Class) []Signature {
	var out []Signature
	for _, s := range vm.VisibleSignatures(class) {
		if !s.Final {
			out = append(out, s)
		}
	}
	return out
}
