package vm

import (
	"fmt"
	"sync"
)

// Object is a native instance. Identity is the pointer; ID is a stable
// process-unique key that outlives the pointer for registries that must not
// keep the object reachable.
type Object struct {
	id    uint64
	class *Class

	mu     sync.RWMutex
	fields map[string]Value
}

// ID returns the object's process-unique identifier.
func (o *Object) ID() uint64 {
	return o.id
}

// Class returns the object's class.
func (o *Object) Class() *Class {
	return o.class
}

// Get returns a field value, or nil if unset.
func (o *Object) Get(name string) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields[name]
}

// Set stores a field value.
func (o *Object) Set(name string, v Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields[name] = v
}

// Update atomically replaces a field with fn's result.
func (o *Object) Update(name string, fn func(Value) Value) Value {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := fn(o.fields[name])
	o.fields[name] = v
	return v
}

// String implements the Stringer interface.
func (o *Object) String() string {
	return fmt.Sprintf("%s@%d", o.class.Name, o.id)
}

func classNameOf(o *Object) string {
	if o == nil || o.class == nil {
		return ""
	}
	return o.class.Name
}
