package bridge

import (
	"maps"
	"sync"
	"weak"

	"github.com/chazu/graft/vm"
)

// InitMember is the member an implementation designates as its initializer.
// It runs exactly once, after the native constructor chain and registration.
const InitMember = "init"

// Func is one member of an implementation object.
type Func func(call *Call) (vm.Value, error)

// Call is what a member receives for one dispatch.
type Call struct {
	Name     string
	Args     []vm.Value // actual arguments; len(Args) is the arity the caller used
	Instance *vm.Object
	Impl     Implementation
	Super    *Super // valid until the member returns
	Type     *SynthesizedType
}

// Arity returns the number of arguments the caller passed.
func (c *Call) Arity() int {
	return len(c.Args)
}

// Arg returns argument i, or nil if the caller passed fewer arguments.
func (c *Call) Arg(i int) vm.Value {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Implementation is a script-side object supplying method bodies for a
// synthesized type. Implementations are used as map keys, so they must be
// comparable; pointer types are.
type Implementation interface {
	Member(name string) (Func, bool)
}

// Binder is implemented by implementations that want a back-reference to
// their native instance. The reference is weak so the implementation, which
// the correlator keeps alive, does not keep the native instance alive.
type Binder interface {
	Bind(native weak.Pointer[vm.Object])
}

// Template produces one implementation object per new instance.
type Template interface {
	Instantiate() (Implementation, error)
}

// ---------------------------------------------------------------------------
// Object: Go-native implementation
// ---------------------------------------------------------------------------

// Object is an implementation backed by Go functions and a field map.
type Object struct {
	mu      sync.RWMutex
	methods map[string]Func
	fields  map[string]any
	native  weak.Pointer[vm.Object]
}

// NewObject returns a blank implementation with no members.
func NewObject() *Object {
	return &Object{
		methods: make(map[string]Func),
		fields:  make(map[string]any),
	}
}

// On sets member name to fn and returns the object for chaining.
func (o *Object) On(name string, fn Func) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.methods[name] = fn
	return o
}

// Member implements Implementation.
func (o *Object) Member(name string) (Func, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	fn, ok := o.methods[name]
	return fn, ok
}

// Get returns a data member.
func (o *Object) Get(name string) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields[name]
}

// Set stores a data member.
func (o *Object) Set(name string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields[name] = v
}

// Bind implements Binder.
func (o *Object) Bind(native weak.Pointer[vm.Object]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.native = native
}

// Native returns the correlated native instance, or nil if the object is
// unbound or the instance has been collected.
func (o *Object) Native() *vm.Object {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.native.Value()
}

// ---------------------------------------------------------------------------
// Spec: Go-native template
// ---------------------------------------------------------------------------

// Spec is a Template built from Go functions. Methods are shared by every
// instance; Fields are copied into each one as plain data members.
type Spec struct {
	Init    Func
	Methods map[string]Func
	Fields  map[string]any
}

// Instantiate implements Template.
func (s *Spec) Instantiate() (Implementation, error) {
	o := NewObject()
	maps.Copy(o.methods, s.Methods)
	maps.Copy(o.fields, s.Fields)
	if s.Init != nil {
		o.methods[InitMember] = s.Init
	}
	return o, nil
}
