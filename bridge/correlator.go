package bridge

import (
	"sync"
	"weak"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
)

// Correlator maps native instances to their implementation objects.
//
// Entries are keyed by object ID and hold the implementation strongly and the
// native instance weakly: the implementation must outlive every virtual call
// the instance can still receive, while the instance's own lifetime belongs to
// the runtime. Registration is a single locked insert, so a lookup never sees
// a half-registered entry.
type Correlator struct {
	mu      sync.RWMutex
	entries map[uint64]*entry
	byImpl  map[Implementation]uint64
}

type entry struct {
	impl   Implementation
	native weak.Pointer[vm.Object]
	typ    *SynthesizedType
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{
		entries: make(map[uint64]*entry),
		byImpl:  make(map[Implementation]uint64),
	}
}

// Register associates obj with impl. An instance is correlated at most once
// and an implementation object serves at most one live instance.
func (c *Correlator) Register(obj *vm.Object, impl Implementation, typ *SynthesizedType) error {
	if obj == nil || impl == nil {
		return errors.Routing("", "<init>", "cannot correlate a nil instance or implementation")
	}
	e := &entry{impl: impl, native: weak.Make(obj), typ: typ}

	c.mu.Lock()
	if _, ok := c.entries[obj.ID()]; ok {
		c.mu.Unlock()
		return errors.Routing(obj.Class().Name, "<init>", "instance %d is already correlated", obj.ID())
	}
	if other, ok := c.byImpl[impl]; ok {
		c.mu.Unlock()
		return errors.Routing(obj.Class().Name, "<init>", "implementation is already bound to instance %d", other)
	}
	c.entries[obj.ID()] = e
	c.byImpl[impl] = obj.ID()
	c.mu.Unlock()

	if b, ok := impl.(Binder); ok {
		b.Bind(e.native)
	}
	return nil
}

// Lookup returns the implementation correlated with obj. An instance that
// never went through the bridge yields a routing error.
func (c *Correlator) Lookup(obj *vm.Object) (Implementation, error) {
	e, err := c.lookup(obj)
	if err != nil {
		return nil, err
	}
	return e.impl, nil
}

func (c *Correlator) lookup(obj *vm.Object) (*entry, error) {
	if obj == nil {
		return nil, errors.Routing("", "", "nil instance")
	}
	c.mu.RLock()
	e, ok := c.entries[obj.ID()]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Routing(obj.Class().Name, "", "instance %d is not registered with the bridge", obj.ID())
	}
	return e, nil
}

// Native returns the live instance correlated with impl.
func (c *Correlator) Native(impl Implementation) (*vm.Object, bool) {
	c.mu.RLock()
	id, ok := c.byImpl[impl]
	var e *entry
	if ok {
		e = c.entries[id]
	}
	c.mu.RUnlock()
	if e == nil {
		return nil, false
	}
	obj := e.native.Value()
	return obj, obj != nil
}

// Unregister removes the entry for an object ID. It reports whether an
// entry existed.
func (c *Correlator) Unregister(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	delete(c.entries, id)
	if c.byImpl[e.impl] == id {
		delete(c.byImpl, e.impl)
	}
	return true
}

// Len returns the number of correlated instances.
func (c *Correlator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// sweep removes entries whose native instance has been collected and
// returns how many were removed.
func (c *Correlator) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	swept := 0
	for id, e := range c.entries {
		if e.native.Value() == nil {
			delete(c.entries, id)
			if c.byImpl[e.impl] == id {
				delete(c.byImpl, e.impl)
			}
			swept++
		}
	}
	return swept
}
