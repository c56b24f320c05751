package bridge

import (
	"time"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("graft.bridge")

// Bridge connects implementation objects to one VM. It owns the type cache,
// the correlator and the router, and removes correlator entries when the VM
// finalizes an instance.
type Bridge struct {
	vm          *vm.VM
	resolver    *Resolver
	synthesizer *Synthesizer
	correlator  *Correlator
	router      *Router
	reaper      *Reaper
	exec        Executor
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithExecutor runs every call into implementation code on exec.
func WithExecutor(exec Executor) Option {
	return func(b *Bridge) {
		b.exec = exec
	}
}

// WithReapInterval sets how often the reaper sweeps collected instances.
func WithReapInterval(d time.Duration) Option {
	return func(b *Bridge) {
		b.reaper = NewReaper(b.correlator, d)
	}
}

// New creates a bridge for v.
func New(v *vm.VM, opts ...Option) *Bridge {
	b := &Bridge{
		vm:         v,
		resolver:   NewResolver(v),
		correlator: NewCorrelator(),
		exec:       Inline{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.reaper == nil {
		b.reaper = NewReaper(b.correlator, DefaultReapInterval)
	}
	b.router = NewRouter(v, b.correlator, b.exec)
	b.synthesizer = NewSynthesizer(v, b.router, b.correlator, b.exec)

	v.OnFinalize(func(id uint64) {
		if b.correlator.Unregister(id) {
			log.Debugf("instance %d finalized, correlation removed", id)
		}
	})
	return b
}

// VM returns the bridged VM.
func (b *Bridge) VM() *vm.VM { return b.vm }

// Executor returns the executor implementation calls run on.
func (b *Bridge) Executor() Executor { return b.exec }

// Correlator returns the bridge's instance correlator.
func (b *Bridge) Correlator() *Correlator { return b.correlator }

// Router returns the bridge's dispatch router.
func (b *Bridge) Router() *Router { return b.router }

// Reaper returns the bridge's reaper.
func (b *Bridge) Reaper() *Reaper { return b.reaper }

// Resolve validates base plus interfaces. See Resolver.Resolve.
func (b *Bridge) Resolve(base *vm.Class, interfaces []*vm.Interface, name string) (*TypeSpec, error) {
	return b.resolver.Resolve(base, interfaces, name)
}

// Synthesize returns the type for spec. See Synthesizer.Synthesize.
func (b *Bridge) Synthesize(spec *TypeSpec) (*SynthesizedType, error) {
	return b.synthesizer.Synthesize(spec)
}

// TypeFor returns the synthesized type behind class, or nil.
func (b *Bridge) TypeFor(class *vm.Class) *SynthesizedType {
	return b.synthesizer.TypeFor(class)
}

// Types returns every synthesized type.
func (b *Bridge) Types() []*SynthesizedType {
	return b.synthesizer.Types()
}

// ExtendOptions are the optional parts of an extend call.
type ExtendOptions struct {
	Interfaces []*vm.Interface
	Name       string // fully-qualified name; empty for an anonymous type
}

// Extend resolves and synthesizes a type extending base and returns a
// handle constructing instances with implementations from tmpl.
//
// A named type also keeps tmpl as its default template, so instances
// created by name get their implementation from it. Extending the same
// named shape again reuses the type and replaces the template.
func (b *Bridge) Extend(base *vm.Class, tmpl Template, opts ExtendOptions) (*ConstructorHandle, error) {
	spec, err := b.resolver.Resolve(base, opts.Interfaces, opts.Name)
	if err != nil {
		return nil, err
	}
	t, err := b.synthesizer.Synthesize(spec)
	if err != nil {
		return nil, err
	}
	if spec.Name != "" || t.Template() == nil {
		t.SetTemplate(tmpl)
	}
	return &ConstructorHandle{bridge: b, typ: t, tmpl: tmpl}, nil
}

// Lookup returns the implementation correlated with obj.
func (b *Bridge) Lookup(obj *vm.Object) (Implementation, error) {
	return b.correlator.Lookup(obj)
}

// Native returns the live instance correlated with impl.
func (b *Bridge) Native(impl Implementation) (*vm.Object, bool) {
	return b.correlator.Native(impl)
}

// Invoke routes a call on a synthesized instance. See Router.Invoke.
func (b *Bridge) Invoke(obj *vm.Object, name string, args ...vm.Value) (vm.Value, error) {
	return b.router.Invoke(obj, name, args...)
}

// Start starts the background reaper.
func (b *Bridge) Start() {
	b.reaper.Start()
}

// Stop stops the background reaper.
func (b *Bridge) Stop() {
	b.reaper.Stop()
}

// Stats is a point-in-time summary of bridge state.
type Stats struct {
	Types      int
	Instances  int
	Dispatches uint64
}

// Stats returns current counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Types:      b.synthesizer.Len(),
		Instances:  b.correlator.Len(),
		Dispatches: b.router.Dispatches(),
	}
}

// ---------------------------------------------------------------------------
// Construction handles
// ---------------------------------------------------------------------------

// ConstructorHandle constructs instances of one synthesized type.
type ConstructorHandle struct {
	bridge *Bridge
	typ    *SynthesizedType
	tmpl   Template
}

// Instance is a constructed native instance with its implementation.
type Instance struct {
	Native *vm.Object
	Impl   Implementation
}

// Type returns the handle's synthesized type.
func (h *ConstructorHandle) Type() *SynthesizedType { return h.typ }

// Class returns the handle's native class.
func (h *ConstructorHandle) Class() *vm.Class { return h.typ.Class }

// New constructs an instance with a fresh implementation from the handle's
// template, passing args to the mirrored base constructor.
func (h *ConstructorHandle) New(args ...vm.Value) (*Instance, error) {
	impl, err := h.bridge.synthesizer.instantiate(h.tmpl)
	if err != nil {
		return nil, errors.Construction(h.typ.Class.Name, err)
	}
	return h.NewWith(impl, args...)
}

// NewWith constructs an instance correlated with impl.
func (h *ConstructorHandle) NewWith(impl Implementation, args ...vm.Value) (*Instance, error) {
	if impl == nil {
		return nil, errors.Construction(h.typ.Class.Name, errors.Marshal("nil implementation object"))
	}
	obj, err := h.bridge.vm.InstantiateWith(h.typ.Class, impl, args...)
	if err != nil {
		return nil, err
	}
	return &Instance{Native: obj, Impl: impl}, nil
}
