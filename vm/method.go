package vm

import "github.com/chazu/graft/errors"

// Method represents a callable method in the native runtime.
//
// The arity-specialized implementations avoid unpacking boilerplate in
// primitives for common cases (0-2 arguments).
type Method interface {
	Invoke(vm *VM, receiver *Object, args []Value) (Value, error)
}

// PrimitiveFunc is a Go function that implements a variable-arity method.
type PrimitiveFunc func(vm *VM, receiver *Object, args []Value) (Value, error)

// Method0Func is a primitive taking no arguments.
type Method0Func func(vm *VM, receiver *Object) (Value, error)

// Method1Func is a primitive taking one argument.
type Method1Func func(vm *VM, receiver *Object, arg1 Value) (Value, error)

// Method2Func is a primitive taking two arguments.
type Method2Func func(vm *VM, receiver *Object, arg1, arg2 Value) (Value, error)

// ---------------------------------------------------------------------------
// Arity-specialized method wrappers
// ---------------------------------------------------------------------------

// PrimitiveMethod wraps a general PrimitiveFunc as a Method.
type PrimitiveMethod struct {
	sig Signature
	fn  PrimitiveFunc
}

func (m *PrimitiveMethod) Invoke(vm *VM, receiver *Object, args []Value) (Value, error) {
	return m.fn(vm, receiver, args)
}

func (m *PrimitiveMethod) Signature() Signature { return m.sig }

// Method0 wraps a zero-argument primitive.
type Method0 struct {
	sig Signature
	fn  Method0Func
}

func (m *Method0) Invoke(vm *VM, receiver *Object, args []Value) (Value, error) {
	return m.fn(vm, receiver)
}

func (m *Method0) Signature() Signature { return m.sig }

// Method1 wraps a one-argument primitive.
type Method1 struct {
	sig Signature
	fn  Method1Func
}

func (m *Method1) Invoke(vm *VM, receiver *Object, args []Value) (Value, error) {
	return m.fn(vm, receiver, args[0])
}

func (m *Method1) Signature() Signature { return m.sig }

// Method2 wraps a two-argument primitive.
type Method2 struct {
	sig Signature
	fn  Method2Func
}

func (m *Method2) Invoke(vm *VM, receiver *Object, args []Value) (Value, error) {
	return m.fn(vm, receiver, args[0], args[1])
}

func (m *Method2) Signature() Signature { return m.sig }

// abstractMethod occupies the vtable slot of a method without a body.
type abstractMethod struct {
	sig Signature
}

func (m *abstractMethod) Invoke(vm *VM, receiver *Object, args []Value) (Value, error) {
	return nil, errors.Unimplemented(classNameOf(receiver), m.sig.Name)
}

func (m *abstractMethod) Signature() Signature { return m.sig }

// ---------------------------------------------------------------------------
// Factory functions
// ---------------------------------------------------------------------------

// NewPrimitiveMethod creates a method that receives its arguments as a slice.
func NewPrimitiveMethod(sig Signature, fn PrimitiveFunc) Method {
	return &PrimitiveMethod{sig: sig, fn: fn}
}

// NewMethod0 creates a new zero-argument primitive method.
func NewMethod0(sig Signature, fn Method0Func) Method {
	return &Method0{sig: sig, fn: fn}
}

// NewMethod1 creates a new one-argument primitive method.
func NewMethod1(sig Signature, fn Method1Func) Method {
	return &Method1{sig: sig, fn: fn}
}

// NewMethod2 creates a new two-argument primitive method.
func NewMethod2(sig Signature, fn Method2Func) Method {
	return &Method2{sig: sig, fn: fn}
}

// NewAbstractMethod creates a placeholder for a method without a body.
func NewAbstractMethod(sig Signature) Method {
	sig.Abstract = true
	return &abstractMethod{sig: sig}
}

// ---------------------------------------------------------------------------
// Overload sets
// ---------------------------------------------------------------------------

// OverloadSet holds same-named methods that differ in arity and selects one
// by the actual argument count.
type OverloadSet struct {
	name    string
	byArity map[int]Method
}

// NewOverloadSet creates an empty overload set for a method name.
func NewOverloadSet(name string) *OverloadSet {
	return &OverloadSet{name: name, byArity: make(map[int]Method)}
}

// Add adds or replaces the overload for the method's arity.
func (o *OverloadSet) Add(m Method) {
	o.byArity[MethodSignature(m).Arity()] = m
}

// Resolve returns the overload for an arity, or nil.
func (o *OverloadSet) Resolve(arity int) Method {
	return o.byArity[arity]
}

func (o *OverloadSet) Invoke(vm *VM, receiver *Object, args []Value) (Value, error) {
	m := o.byArity[len(args)]
	if m == nil {
		return nil, errors.Routing(classNameOf(receiver), o.name, "no overload takes %d arguments", len(args))
	}
	coerced, err := coerceArgs(classNameOf(receiver), MethodSignature(m), args)
	if err != nil {
		return nil, err
	}
	return m.Invoke(vm, receiver, coerced)
}

// Signatures returns the signatures of every overload.
func (o *OverloadSet) Signatures() []Signature {
	sigs := make([]Signature, 0, len(o.byArity))
	for _, m := range o.byArity {
		sigs = append(sigs, MethodSignature(m))
	}
	sortSignatures(sigs)
	return sigs
}

// ---------------------------------------------------------------------------
// Method metadata interface (optional)
// ---------------------------------------------------------------------------

// SignedMethod is implemented by methods that carry a signature.
type SignedMethod interface {
	Method
	Signature() Signature
}

// MethodSignature returns the signature of a method if it implements
// SignedMethod, or a variadic any-returning placeholder.
func MethodSignature(m Method) Signature {
	if sm, ok := m.(SignedMethod); ok {
		return sm.Signature()
	}
	return Signature{Name: "<anonymous>", Return: KindAny}
}

// OverloadedMethod is implemented by slots answering to several signatures,
// such as overload sets and routed slots of synthesized classes.
type OverloadedMethod interface {
	Method
	Signatures() []Signature
}

// MethodSignatures returns every signature a vtable slot answers to.
func MethodSignatures(m Method) []Signature {
	if om, ok := m.(OverloadedMethod); ok {
		return om.Signatures()
	}
	return []Signature{MethodSignature(m)}
}

// IsAbstract reports whether a method (or the overload for arity) has no body.
// Pass arity -1 to ask about any overload.
func IsAbstract(m Method, arity int) bool {
	switch mm := m.(type) {
	case nil:
		return true
	case *abstractMethod:
		return arity < 0 || mm.sig.Arity() == arity
	case *OverloadSet:
		if arity < 0 {
			for _, o := range mm.byArity {
				if !IsAbstract(o, -1) {
					return false
				}
			}
			return true
		}
		return IsAbstract(mm.byArity[arity], arity)
	}
	return false
}

// coerceArgs converts arguments to the kinds a signature declares.
func coerceArgs(class string, sig Signature, args []Value) ([]Value, error) {
	out := make([]Value, len(args))
	for i, arg := range args {
		k := KindAny
		if i < len(sig.Params) {
			k = sig.Params[i]
		}
		v, ok := k.Coerce(arg)
		if !ok {
			return nil, errors.New(errors.KindMarshal).
				Class(class).
				Method(sig.Name).
				Detail("argument %d: %T is not %s", i, arg, k).
				Build()
		}
		out[i] = v
	}
	return out, nil
}
