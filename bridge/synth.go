package bridge

import (
	"sync"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// SynthesizedType is a native class generated for one TypeSpec shape.
type SynthesizedType struct {
	Spec  *TypeSpec
	Class *vm.Class

	mu       sync.RWMutex
	template Template
}

// Template returns the template used when the type is instantiated without
// an implementation, for example by name.
func (t *SynthesizedType) Template() Template {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.template
}

// SetTemplate replaces the type's default template.
func (t *SynthesizedType) SetTemplate(tmpl Template) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.template = tmpl
}

// Synthesizer defines and caches synthesized classes.
//
// Each TypeSpec key is defined at most once for the life of the bridge.
// Concurrent misses on the same key share a single definition.
type Synthesizer struct {
	vm         *vm.VM
	router     *Router
	correlator *Correlator
	exec       Executor

	mu      sync.RWMutex
	cache   map[string]*SynthesizedType
	byClass map[*vm.Class]*SynthesizedType
	flight  singleflight.Group
}

// NewSynthesizer creates a synthesizer whose classes route through r.
func NewSynthesizer(v *vm.VM, r *Router, c *Correlator, exec Executor) *Synthesizer {
	if exec == nil {
		exec = Inline{}
	}
	return &Synthesizer{
		vm:         v,
		router:     r,
		correlator: c,
		exec:       exec,
		cache:      make(map[string]*SynthesizedType),
		byClass:    make(map[*vm.Class]*SynthesizedType),
	}
}

// Synthesize returns the type for spec, defining it on first use.
func (s *Synthesizer) Synthesize(spec *TypeSpec) (*SynthesizedType, error) {
	if t := s.cached(spec.Key()); t != nil {
		return t, nil
	}
	v, err, _ := s.flight.Do(spec.Key(), func() (any, error) {
		if t := s.cached(spec.Key()); t != nil {
			return t, nil
		}
		t, err := s.define(spec)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[spec.Key()] = t
		s.byClass[t.Class] = t
		s.mu.Unlock()
		log.Infof("synthesized %s extends %s (%d routed slots)", t.Class.Name, spec.Base.Name, len(spec.Groups))
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SynthesizedType), nil
}

func (s *Synthesizer) cached(key string) *SynthesizedType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[key]
}

// TypeFor returns the synthesized type behind class, or nil.
func (s *Synthesizer) TypeFor(class *vm.Class) *SynthesizedType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byClass[class]
}

// Types returns every synthesized type.
func (s *Synthesizer) Types() []*SynthesizedType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SynthesizedType, 0, len(s.cache))
	for _, t := range s.cache {
		out = append(out, t)
	}
	return out
}

// Len returns the number of cached types.
func (s *Synthesizer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Synthesizer) define(spec *TypeSpec) (*SynthesizedType, error) {
	t := &SynthesizedType{Spec: spec}
	def := vm.ClassDef{
		Name:       spec.Name,
		Superclass: spec.Base,
		Interfaces: spec.Interfaces,
		Synthetic:  true,
	}
	if def.Name == "" {
		def.Name = spec.Base.Name + "$graft$" + uuid.NewString()[:8]
		def.Anonymous = true
	}

	_, err := s.vm.DefineClass(def, func(c *vm.Class) error {
		t.Class = c
		for _, g := range spec.Groups {
			c.SetSlot(s.vm.Selectors, g.Name, &routedMethod{typ: t, group: g, router: s.router})
		}
		s.mirrorConstructors(t, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// mirrorConstructors gives c one constructor per base constructor. Each runs
// the base constructor, then correlates and initializes the instance.
func (s *Synthesizer) mirrorConstructors(t *SynthesizedType, c *vm.Class) {
	base := t.Spec.Base
	body := func(ctor *vm.Construction) error {
		if err := ctor.VM.Construct(base, ctor.Object, ctor.Data, ctor.Args...); err != nil {
			return err
		}
		return s.attach(t, ctor.Object, ctor.Data, ctor.Args)
	}
	if len(base.Constructors) == 0 {
		c.AddConstructor(body)
		return
	}
	for _, bc := range base.Constructors {
		c.AddConstructor(body, bc.Params...)
	}
}

// attach correlates a freshly constructed instance with its implementation
// and runs the initializer. An instance of a further-derived class is left
// to that class's own constructor.
func (s *Synthesizer) attach(t *SynthesizedType, obj *vm.Object, data any, args []vm.Value) error {
	if obj.Class() != t.Class {
		return nil
	}

	var impl Implementation
	switch d := data.(type) {
	case Implementation:
		impl = d
	case nil:
		var err error
		impl, err = s.instantiate(t.Template())
		if err != nil {
			return err
		}
	default:
		return errors.Marshal("%T is not an implementation object", data)
	}

	if err := s.correlator.Register(obj, impl, t); err != nil {
		return err
	}
	if err := s.router.initialize(t, impl, obj, args); err != nil {
		s.correlator.Unregister(obj.ID())
		return err
	}
	return nil
}

// instantiate produces a fresh implementation from tmpl on the executor.
// Without a template the instance gets a blank implementation object.
func (s *Synthesizer) instantiate(tmpl Template) (Implementation, error) {
	if tmpl == nil {
		return NewObject(), nil
	}
	v, err := s.exec.Run(func() (any, error) {
		return tmpl.Instantiate()
	})
	if err != nil {
		return nil, err
	}
	impl, ok := v.(Implementation)
	if !ok || impl == nil {
		return nil, errors.Marshal("template produced %T, not an implementation object", v)
	}
	return impl, nil
}
