package bridge

import (
	"sync/atomic"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
)

// Router carries native virtual calls on synthesized instances into their
// implementation objects.
//
// No lock is held while the implementation runs: the correlator lookup
// completes before the call, so an override may call back into native code
// that dispatches into the bridge again.
type Router struct {
	vm         *vm.VM
	correlator *Correlator
	exec       Executor

	dispatches atomic.Uint64
}

// NewRouter creates a router. A nil executor runs calls inline.
func NewRouter(v *vm.VM, c *Correlator, exec Executor) *Router {
	if exec == nil {
		exec = Inline{}
	}
	return &Router{vm: v, correlator: c, exec: exec}
}

// Dispatches returns the number of routed calls made so far.
func (r *Router) Dispatches() uint64 {
	return r.dispatches.Load()
}

// Invoke routes name with args on obj as if the native runtime had called
// the routed slot.
func (r *Router) Invoke(obj *vm.Object, name string, args ...vm.Value) (vm.Value, error) {
	e, err := r.correlator.lookup(obj)
	if err != nil {
		return nil, err
	}
	if e.typ == nil {
		return nil, errors.Routing(obj.Class().Name, name, "instance was not created by a synthesized type")
	}
	g := e.typ.Spec.Group(name)
	if g == nil {
		return nil, errors.Routing(e.typ.Class.Name, name, "no routed slot with this name")
	}
	return r.dispatch(e.typ, g, obj, args)
}

func (r *Router) dispatch(t *SynthesizedType, g *OverloadGroup, obj *vm.Object, args []vm.Value) (vm.Value, error) {
	r.dispatches.Add(1)

	e, err := r.correlator.lookup(obj)
	if err != nil {
		return nil, err
	}
	if e.typ != t {
		return nil, errors.Routing(t.Class.Name, g.Name, "instance %d belongs to %s", obj.ID(), e.typ.Class.Name)
	}

	sig, declared := g.ForArity(len(args))
	if declared {
		if sig.Final {
			return r.vm.SendSuper(t.Spec.Base, obj, g.Name, args...)
		}
		if args, err = coerceArgs(t, sig, args); err != nil {
			return nil, err
		}
	}

	missing := false
	result, err := r.exec.Run(func() (any, error) {
		fn, ok := e.impl.Member(g.Name)
		if !ok {
			missing = true
			return nil, nil
		}
		return r.call(t, e.impl, obj, g.Name, fn, args)
	})
	if missing {
		if r.vm.Responds(t.Spec.Base, g.Name, len(args)) {
			return r.vm.SendSuper(t.Spec.Base, obj, g.Name, args...)
		}
		return nil, errors.Unimplemented(t.Class.Name, g.Name)
	}
	if err != nil {
		return nil, err
	}
	if !declared {
		return result, nil
	}
	return marshalReturn(t, sig, result), nil
}

// call runs one member with a super handle scoped to the call.
func (r *Router) call(t *SynthesizedType, impl Implementation, obj *vm.Object, name string, fn Func, args []vm.Value) (vm.Value, error) {
	super := newSuper(r.vm, t.Spec.Base, obj)
	defer super.release()
	return fn(&Call{
		Name:     name,
		Args:     args,
		Instance: obj,
		Impl:     impl,
		Super:    super,
		Type:     t,
	})
}

// initialize runs the implementation's initializer, if it has one.
func (r *Router) initialize(t *SynthesizedType, impl Implementation, obj *vm.Object, args []vm.Value) error {
	_, err := r.exec.Run(func() (any, error) {
		fn, ok := impl.Member(InitMember)
		if !ok {
			return nil, nil
		}
		return r.call(t, impl, obj, InitMember, fn, args)
	})
	return err
}

// coerceArgs converts arguments to the declared parameter kinds.
func coerceArgs(t *SynthesizedType, sig vm.Signature, args []vm.Value) ([]vm.Value, error) {
	out := make([]vm.Value, len(args))
	for i, arg := range args {
		v, ok := sig.Params[i].Coerce(arg)
		if !ok {
			return nil, errors.New(errors.KindMarshal).
				Class(t.Class.Name).
				Method(sig.Name).
				Detail("argument %d: %T is not %s", i, arg, sig.Params[i]).
				Build()
		}
		out[i] = v
	}
	return out, nil
}

// marshalReturn converts result to the declared return kind. A value the
// kind cannot hold is dropped in favour of the kind's zero value.
func marshalReturn(t *SynthesizedType, sig vm.Signature, result vm.Value) vm.Value {
	if sig.Return == vm.KindVoid {
		return nil
	}
	v, ok := sig.Return.Coerce(result)
	if !ok {
		log.Debugf("%s.%s returned %T for %s, using zero value", t.Class.Name, sig.Name, result, sig.Return)
		return sig.Return.Zero()
	}
	return v
}

// routedMethod is the single vtable slot installed for one overload group.
type routedMethod struct {
	typ    *SynthesizedType
	group  *OverloadGroup
	router *Router
}

func (m *routedMethod) Invoke(_ *vm.VM, receiver *vm.Object, args []vm.Value) (vm.Value, error) {
	return m.router.dispatch(m.typ, m.group, receiver, args)
}

// Signatures reports every declared signature the slot stands in for.
func (m *routedMethod) Signatures() []vm.Signature {
	sigs := make([]vm.Signature, len(m.group.Signatures))
	for i, s := range m.group.Signatures {
		s.Abstract = false
		sigs[i] = s
	}
	return sigs
}
