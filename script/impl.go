package script

import (
	"slices"
	"sync"
	"weak"

	"github.com/chazu/graft/bridge"
	"github.com/chazu/graft/vm"
	"github.com/dop251/goja"
)

// specInterfaces is the extend-spec field listing implemented interfaces.
const specInterfaces = "interfaces"

// superProperty is set on an implementation object while one of its members
// runs inside a dispatch.
const superProperty = "super"

// scriptImpl adapts a JavaScript object to bridge.Implementation. Every
// method on it must run on the engine's loop.
type scriptImpl struct {
	engine *Engine
	obj    *goja.Object

	mu     sync.Mutex
	native weak.Pointer[vm.Object]
}

// Member implements bridge.Implementation.
func (si *scriptImpl) Member(name string) (bridge.Func, bool) {
	if name == superProperty {
		return nil, false
	}
	fn, ok := goja.AssertFunction(si.engine.member(si.obj, name))
	if !ok {
		return nil, false
	}
	return func(c *bridge.Call) (vm.Value, error) {
		return si.engine.call(si, fn, c)
	}, true
}

// member looks name up on obj and its prototypes, stopping before
// Object.prototype so inherited builtins such as toString are not members.
func (e *Engine) member(obj *goja.Object, name string) goja.Value {
	for o := obj; o != nil && !o.SameAs(e.objectProto); o = o.Prototype() {
		if slices.Contains(o.GetOwnPropertyNames(), name) {
			return o.Get(name)
		}
	}
	return nil
}

// Bind implements bridge.Binder.
func (si *scriptImpl) Bind(native weak.Pointer[vm.Object]) {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.native = native
}

// Native returns the bound instance, or nil once it has been collected.
func (si *scriptImpl) Native() *vm.Object {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.native.Value()
}

// scriptTemplate builds implementation objects from an extend spec. Methods
// live on a shared prototype; data members are copied onto each instance.
type scriptTemplate struct {
	engine *Engine
	proto  *goja.Object
	fields []field
}

type field struct {
	name  string
	value goja.Value
}

// Instantiate implements bridge.Template.
func (t *scriptTemplate) Instantiate() (bridge.Implementation, error) {
	obj := t.engine.rt.NewObject()
	if err := obj.SetPrototype(t.proto); err != nil {
		return nil, err
	}
	for _, f := range t.fields {
		if err := obj.Set(f.name, f.value); err != nil {
			return nil, err
		}
	}
	return t.engine.adopt(obj), nil
}

// adopt wraps obj as an implementation and tags it so it can be recognised
// when it crosses back into native code.
func (e *Engine) adopt(obj *goja.Object) *scriptImpl {
	si := &scriptImpl{engine: e, obj: obj}
	obj.SetSymbol(e.implSym, si)
	return si
}

// implOf returns the implementation behind a tagged JavaScript object.
func (e *Engine) implOf(obj *goja.Object) (*scriptImpl, bool) {
	v := obj.GetSymbol(e.implSym)
	if v == nil {
		return nil, false
	}
	si, ok := v.Export().(*scriptImpl)
	return si, ok && si.engine == e
}

// parseSpec splits an extend spec into its interface list and a template.
// Functions become shared methods, interfaces is consumed, and anything else
// is a data member.
func (e *Engine) parseSpec(spec *goja.Object) ([]*vm.Interface, *scriptTemplate, error) {
	tmpl := &scriptTemplate{engine: e, proto: e.rt.NewObject()}
	var ifaces []*vm.Interface
	for _, key := range spec.Keys() {
		v := spec.Get(key)
		switch {
		case key == specInterfaces:
			list, err := e.interfaceList(v)
			if err != nil {
				return nil, nil, err
			}
			ifaces = list
		case isFunction(v):
			if err := tmpl.proto.Set(key, v); err != nil {
				return nil, nil, err
			}
		default:
			tmpl.fields = append(tmpl.fields, field{name: key, value: v})
		}
	}
	return ifaces, tmpl, nil
}

// call runs one member with this.super available for the duration.
func (e *Engine) call(si *scriptImpl, fn goja.Callable, c *bridge.Call) (vm.Value, error) {
	prev := si.obj.Get(superProperty)
	si.obj.Set(superProperty, e.superObject(c.Super))
	defer func() {
		if prev == nil {
			si.obj.Delete(superProperty)
		} else {
			si.obj.Set(superProperty, prev)
		}
	}()

	ret, err := fn(si.obj, e.argsToJS(c.Args)...)
	if err != nil {
		return nil, err
	}
	return e.fromJS(ret)
}

// superObject exposes a super handle as an object with one function per
// base method.
func (e *Engine) superObject(s *bridge.Super) *goja.Object {
	obj := e.rt.NewObject()
	for _, name := range s.Methods() {
		obj.Set(name, func(call goja.FunctionCall) goja.Value {
			v, err := s.Call(name, e.mustArgs(call.Arguments)...)
			if err != nil {
				e.throw(err)
			}
			return e.toJS(v)
		})
	}
	return obj
}

func isFunction(v goja.Value) bool {
	_, ok := goja.AssertFunction(v)
	return ok
}
