package script

import (
	stderrors "errors"
	"slices"
	"strconv"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
	"github.com/dop251/goja"
)

// toJS converts a native value for script code. An instance correlated with
// a script implementation comes back as that same implementation object,
// so identity survives any number of crossings.
func (e *Engine) toJS(v vm.Value) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case *vm.Object:
		if x == nil {
			return goja.Null()
		}
		if impl, err := e.bridge.Lookup(x); err == nil {
			if si, ok := impl.(*scriptImpl); ok && si.engine == e {
				return si.obj
			}
		}
		return e.nativeProxy(x)
	}
	return e.rt.ToValue(v)
}

// fromJS converts a script value for native code. Implementation objects
// and native proxies become their native instance.
func (e *Engine) fromJS(v goja.Value) (vm.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if si, ok := e.implOf(obj); ok {
			native := si.Native()
			if native == nil {
				return nil, errors.Marshal("implementation object has no live native instance")
			}
			return native, nil
		}
		if native, ok := e.nativeOf(obj); ok {
			return native, nil
		}
	}
	return v.Export(), nil
}

func (e *Engine) argsToJS(args []vm.Value) []goja.Value {
	out := make([]goja.Value, len(args))
	for i, a := range args {
		out[i] = e.toJS(a)
	}
	return out
}

func (e *Engine) argsFromJS(args []goja.Value) ([]vm.Value, error) {
	out := make([]vm.Value, len(args))
	for i, a := range args {
		v, err := e.fromJS(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// mustArgs is argsFromJS for native functions, throwing on failure.
func (e *Engine) mustArgs(args []goja.Value) []vm.Value {
	out, err := e.argsFromJS(args)
	if err != nil {
		e.throw(err)
	}
	return out
}

// nativeProxy wraps a native instance that has no script implementation.
// Each visible method becomes a function doing a virtual send.
func (e *Engine) nativeProxy(obj *vm.Object) *goja.Object {
	p := e.rt.NewObject()
	p.SetSymbol(e.nativeSym, obj)
	var names []string
	for _, sig := range e.vm.VisibleSignatures(obj.Class()) {
		if !slices.Contains(names, sig.Name) {
			names = append(names, sig.Name)
		}
	}
	for _, name := range names {
		p.Set(name, func(call goja.FunctionCall) goja.Value {
			v, err := e.vm.Send(obj, name, e.mustArgs(call.Arguments)...)
			if err != nil {
				e.throw(err)
			}
			return e.toJS(v)
		})
	}
	p.Set("$class", obj.Class().Name)
	p.Set("$id", int64(obj.ID()))
	return p
}

// nativeOf returns the instance behind a native proxy.
func (e *Engine) nativeOf(obj *goja.Object) (*vm.Object, bool) {
	v := obj.GetSymbol(e.nativeSym)
	if v == nil {
		return nil, false
	}
	native, ok := v.Export().(*vm.Object)
	return native, ok
}

// instanceOf resolves either kind of script handle to its native instance.
func (e *Engine) instanceOf(v goja.Value) (*vm.Object, error) {
	native, err := e.fromJS(v)
	if err != nil {
		return nil, err
	}
	obj, ok := native.(*vm.Object)
	if !ok || obj == nil {
		return nil, errors.Marshal("%s is not a native instance", v)
	}
	return obj, nil
}

// interfaceList reads an array of interface handles or names.
func (e *Engine) interfaceList(v goja.Value) ([]*vm.Interface, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	arr, ok := v.(*goja.Object)
	if !ok {
		return nil, errors.Marshal("interfaces must be an array")
	}
	n := int(arr.Get("length").ToInteger())
	out := make([]*vm.Interface, 0, n)
	for i := range n {
		iface, err := e.interfaceOf(arr.Get(strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out = append(out, iface)
	}
	return out, nil
}

func (e *Engine) interfaceOf(v goja.Value) (*vm.Interface, error) {
	if obj, ok := v.(*goja.Object); ok {
		if tagged := obj.GetSymbol(e.ifaceSym); tagged != nil {
			if iface, ok := tagged.Export().(*vm.Interface); ok {
				return iface, nil
			}
		}
	}
	if name, ok := v.Export().(string); ok {
		if iface := e.vm.Interfaces.Lookup(name); iface != nil {
			return iface, nil
		}
		return nil, errors.Marshal("unknown interface %q", name)
	}
	return nil, errors.Marshal("%s is not an interface", v)
}

// classOf resolves a class handle or name. Undefined and null mean nil,
// which extend reads as lang.Object.
func (e *Engine) classOf(v goja.Value) (*vm.Class, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if tagged := obj.GetSymbol(e.classSym); tagged != nil {
			if c, ok := tagged.Export().(*vm.Class); ok {
				return c, nil
			}
		}
	}
	if name, ok := v.Export().(string); ok {
		if c := e.vm.Classes.Lookup(name); c != nil {
			return c, nil
		}
		return nil, errors.Marshal("unknown class %q", name)
	}
	return nil, errors.Marshal("%s is not a class", v)
}

// throw raises err in script code. A script exception that crossed into
// native code is rethrown as its original value.
func (e *Engine) throw(err error) {
	var ex *goja.Exception
	if stderrors.As(err, &ex) {
		panic(ex.Value())
	}
	panic(e.rt.NewGoError(err))
}
