package script

import (
	"os"
	"strings"
	"time"

	"github.com/chazu/graft/bridge"
	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
	"github.com/dop251/goja"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("graft.script")

// Engine is a JavaScript runtime bridged to a VM. Script code extends native
// classes with extend(), implements interfaces with new Iface({...}) and
// reaches native objects through the native global.
//
// All script work runs on the engine's loop; the engine's bridge uses the
// loop as its executor, so native calls from any goroutine are marshalled
// onto it.
type Engine struct {
	rt     *goja.Runtime
	loop   *Loop
	bridge *bridge.Bridge
	vm     *vm.VM

	implSym   *goja.Symbol
	nativeSym *goja.Symbol
	classSym  *goja.Symbol
	ifaceSym  *goja.Symbol

	// objectProto ends member lookup on implementation objects.
	objectProto *goja.Object

	// Loop-owned state.
	classes map[*vm.Class]*goja.Object
	ifaces  map[*vm.Interface]*goja.Object
	pins    map[uint64]*vm.Object
}

// Config holds engine settings.
type Config struct {
	QueueSize    int
	ReapInterval time.Duration
}

// NewEngine creates an engine for v with its own loop and bridge.
func NewEngine(v *vm.VM, cfg Config) (*Engine, error) {
	loop := NewLoop(cfg.QueueSize)
	e := &Engine{
		loop:      loop,
		vm:        v,
		bridge:    bridge.New(v, bridge.WithExecutor(loop), bridge.WithReapInterval(cfg.ReapInterval)),
		implSym:   goja.NewSymbol("graft.impl"),
		nativeSym: goja.NewSymbol("graft.native"),
		classSym:  goja.NewSymbol("graft.class"),
		ifaceSym:  goja.NewSymbol("graft.interface"),
		classes:   make(map[*vm.Class]*goja.Object),
		ifaces:    make(map[*vm.Interface]*goja.Object),
		pins:      make(map[uint64]*vm.Object),
	}
	_, err := loop.Run(func() (any, error) {
		e.rt = goja.New()
		e.objectProto = e.rt.NewObject().Prototype()
		return nil, e.install()
	})
	if err != nil {
		loop.Stop()
		return nil, err
	}
	return e, nil
}

// Bridge returns the engine's bridge.
func (e *Engine) Bridge() *bridge.Bridge { return e.bridge }

// VM returns the bridged VM.
func (e *Engine) VM() *vm.VM { return e.vm }

// Loop returns the engine's loop.
func (e *Engine) Loop() *Loop { return e.loop }

// RunString evaluates src and returns its completion value converted for
// native code.
func (e *Engine) RunString(src string) (vm.Value, error) {
	return e.run("", src)
}

// RunFile evaluates the script at path.
func (e *Engine) RunFile(path string) (vm.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	log.Infof("running %s", path)
	return e.run(path, string(src))
}

func (e *Engine) run(name, src string) (vm.Value, error) {
	return e.loop.Run(func() (any, error) {
		var v goja.Value
		var err error
		if name == "" {
			v, err = e.rt.RunString(src)
		} else {
			v, err = e.rt.RunScript(name, src)
		}
		if err != nil {
			return nil, err
		}
		return e.fromJS(v)
	})
}

// Close releases pinned instances and stops the loop and the reaper.
func (e *Engine) Close() {
	if _, err := e.loop.Run(func() (any, error) {
		clear(e.pins)
		return nil, nil
	}); err != nil {
		log.Warningf("releasing pinned instances: %s", err)
	}
	e.bridge.Stop()
	e.loop.Stop()
}

// pin keeps an instance created by script code alive until released. The
// implementation object only holds a weak back-reference.
func (e *Engine) pin(obj *vm.Object) {
	e.pins[obj.ID()] = obj
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

func (e *Engine) install() error {
	if err := e.rt.Set("extend", e.jsExtend); err != nil {
		return err
	}

	native := e.rt.NewObject()
	native.Set("class", func(call goja.FunctionCall) goja.Value {
		c, err := e.classOf(call.Argument(0))
		if err != nil {
			e.throw(err)
		}
		if c == nil {
			c = e.vm.ObjectClass
		}
		return e.classObject(c)
	})
	native.Set("interface", func(call goja.FunctionCall) goja.Value {
		iface, err := e.interfaceOf(call.Argument(0))
		if err != nil {
			e.throw(err)
		}
		return e.interfaceObject(iface)
	})
	native.Set("create", func(call goja.FunctionCall) goja.Value {
		obj, err := e.vm.NewByName(call.Argument(0).String(), e.mustArgs(call.Arguments[min(1, len(call.Arguments)):])...)
		if err != nil {
			e.throw(err)
		}
		e.pin(obj)
		return e.toJS(obj)
	})
	native.Set("of", func(call goja.FunctionCall) goja.Value {
		obj, err := e.instanceOf(call.Argument(0))
		if err != nil {
			e.throw(err)
		}
		return e.nativeProxy(obj)
	})
	native.Set("send", func(call goja.FunctionCall) goja.Value {
		obj, err := e.instanceOf(call.Argument(0))
		if err != nil {
			e.throw(err)
		}
		v, err := e.vm.Send(obj, call.Argument(1).String(), e.mustArgs(call.Arguments[min(2, len(call.Arguments)):])...)
		if err != nil {
			e.throw(err)
		}
		return e.toJS(v)
	})
	native.Set("release", func(call goja.FunctionCall) goja.Value {
		obj, err := e.instanceOf(call.Argument(0))
		if err != nil {
			e.throw(err)
		}
		delete(e.pins, obj.ID())
		return goja.Undefined()
	})
	native.Set("types", func(goja.FunctionCall) goja.Value {
		var names []any
		for _, rec := range e.bridge.Snapshot() {
			names = append(names, rec.Class)
		}
		return e.rt.NewArray(names...)
	})
	if err := e.rt.Set("native", native); err != nil {
		return err
	}

	console := e.rt.NewObject()
	console.Set("log", e.consoleFunc(log.Infof))
	console.Set("info", e.consoleFunc(log.Infof))
	console.Set("warn", e.consoleFunc(log.Warningf))
	console.Set("error", e.consoleFunc(log.Errorf))
	console.Set("debug", e.consoleFunc(log.Debugf))
	return e.rt.Set("console", console)
}

func (e *Engine) consoleFunc(logf func(format string, args ...any)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		logf("%s", strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// jsExtend implements extend(base, spec[, name]).
func (e *Engine) jsExtend(call goja.FunctionCall) goja.Value {
	base, err := e.classOf(call.Argument(0))
	if err != nil {
		e.throw(err)
	}
	name := ""
	if n := call.Argument(2); !goja.IsUndefined(n) && !goja.IsNull(n) {
		name = n.String()
	}
	return e.extend(base, call.Argument(1), name)
}

func (e *Engine) extend(base *vm.Class, specArg goja.Value, name string, extra ...*vm.Interface) *goja.Object {
	return e.handleObject(e.extendHandle(base, specArg, name, extra...))
}

func (e *Engine) extendHandle(base *vm.Class, specArg goja.Value, name string, extra ...*vm.Interface) *bridge.ConstructorHandle {
	spec, ok := specArg.(*goja.Object)
	if !ok {
		panic(e.rt.NewTypeError("extend: implementation spec must be an object"))
	}
	ifaces, tmpl, err := e.parseSpec(spec)
	if err != nil {
		e.throw(err)
	}
	h, err := e.bridge.Extend(base, tmpl, bridge.ExtendOptions{
		Interfaces: append(ifaces, extra...),
		Name:       name,
	})
	if err != nil {
		e.throw(err)
	}
	return h
}

// handleObject exposes a constructor handle. new on it returns the fresh
// implementation object.
func (e *Engine) handleObject(h *bridge.ConstructorHandle) *goja.Object {
	ctor := e.rt.ToValue(func(call goja.ConstructorCall) *goja.Object {
		inst, err := h.New(e.mustArgs(call.Arguments)...)
		if err != nil {
			e.throw(err)
		}
		e.pin(inst.Native)
		return inst.Impl.(*scriptImpl).obj
	}).(*goja.Object)
	ctor.Set("className", h.Class().Name)
	return ctor
}

// classObject returns the script handle for a native class: new on it
// instantiates the class, and extend on it subclasses it.
func (e *Engine) classObject(c *vm.Class) *goja.Object {
	if o, ok := e.classes[c]; ok {
		return o
	}
	ctor := e.rt.ToValue(func(call goja.ConstructorCall) *goja.Object {
		obj, err := e.vm.Instantiate(c, e.mustArgs(call.Arguments)...)
		if err != nil {
			e.throw(err)
		}
		e.pin(obj)
		return e.nativeProxy(obj)
	}).(*goja.Object)
	ctor.SetSymbol(e.classSym, c)
	ctor.Set("className", c.Name)
	ctor.Set("extend", func(call goja.FunctionCall) goja.Value {
		name, spec := "", call.Argument(0)
		if s, ok := spec.Export().(string); ok {
			name, spec = s, call.Argument(1)
		}
		return e.extend(c, spec, name)
	})
	e.classes[c] = ctor
	return ctor
}

// interfaceObject returns the script handle for a native interface. new on
// it with an object literal makes that literal the implementation of a fresh
// anonymous instance and returns it.
func (e *Engine) interfaceObject(iface *vm.Interface) *goja.Object {
	if o, ok := e.ifaces[iface]; ok {
		return o
	}
	ctor := e.rt.ToValue(func(call goja.ConstructorCall) *goja.Object {
		h := e.extendHandle(nil, call.Argument(0), "", iface)
		lit := call.Argument(0).(*goja.Object)
		if _, ok := e.implOf(lit); ok {
			e.throw(errors.Validation(iface.Name, "", "object already implements a native instance"))
		}
		inst, err := h.NewWith(e.adopt(lit))
		if err != nil {
			lit.DeleteSymbol(e.implSym)
			e.throw(err)
		}
		e.pin(inst.Native)
		return lit
	}).(*goja.Object)
	ctor.SetSymbol(e.ifaceSym, iface)
	ctor.Set("interfaceName", iface.Name)
	e.ifaces[iface] = ctor
	return ctor
}
