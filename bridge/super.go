package bridge

import (
	"sync/atomic"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
)

// Super invokes the base class's original methods on the current instance.
//
// Calls go through vm.SendSuper starting at the base class's vtable, so the
// synthesized class's routed slots are never consulted and a super call can
// not re-enter the router for the same method. A Super is created fresh for
// each dispatch and stops working once that dispatch returns.
type Super struct {
	vm       *vm.VM
	base     *vm.Class
	obj      *vm.Object
	released atomic.Bool
}

func newSuper(v *vm.VM, base *vm.Class, obj *vm.Object) *Super {
	return &Super{vm: v, base: base, obj: obj}
}

// Call invokes the base implementation of name with args.
func (s *Super) Call(name string, args ...vm.Value) (vm.Value, error) {
	if s.released.Load() {
		return nil, errors.Routing(s.base.Name, name, "super handle used after its dispatch returned")
	}
	return s.vm.SendSuper(s.base, s.obj, name, args...)
}

// Base returns the class super calls start from.
func (s *Super) Base() *vm.Class {
	return s.base
}

// Has reports whether the base class has a concrete name taking arity
// arguments.
func (s *Super) Has(name string, arity int) bool {
	return s.vm.Responds(s.base, name, arity)
}

// Methods returns the names of every method visible on the base class.
func (s *Super) Methods() []string {
	var names []string
	seen := make(map[string]bool)
	for _, sig := range s.vm.VisibleSignatures(s.base) {
		if !seen[sig.Name] {
			seen[sig.Name] = true
			names = append(names, sig.Name)
		}
	}
	return names
}

// Valid reports whether the handle's dispatch is still running.
func (s *Super) Valid() bool {
	return !s.released.Load()
}

func (s *Super) release() {
	s.released.Store(true)
}
