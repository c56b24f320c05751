package vm

// ---------------------------------------------------------------------------
// Finalization notification
// ---------------------------------------------------------------------------

// OnFinalize registers fn to be called once for every object that is
// disposed or collected. Collection notices run on a runtime goroutine some
// time after the object becomes unreachable; there is no timing guarantee.
func (vm *VM) OnFinalize(fn func(id uint64)) {
	vm.finalizersMu.Lock()
	defer vm.finalizersMu.Unlock()
	vm.finalizers = append(vm.finalizers, fn)
}

// Dispose finalizes obj immediately. Listeners run on the calling goroutine.
// Disposing twice, or disposing an object that was already collected, is a
// no-op. The object stays usable for plain field access but no longer has
// bridge state.
func (vm *VM) Dispose(obj *Object) {
	if obj != nil {
		vm.finalize(obj.id)
	}
}

// IsLive reports whether the object with id has been neither disposed nor
// collected.
func (vm *VM) IsLive(id uint64) bool {
	_, ok := vm.live.Load(id)
	return ok
}

// LiveCount returns the number of objects not yet finalized.
func (vm *VM) LiveCount() int {
	n := 0
	vm.live.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (vm *VM) finalize(id uint64) {
	if _, ok := vm.live.LoadAndDelete(id); !ok {
		return
	}
	vm.finalizersMu.RLock()
	listeners := make([]func(uint64), len(vm.finalizers))
	copy(listeners, vm.finalizers)
	vm.finalizersMu.RUnlock()

	for _, fn := range listeners {
		fn(id)
	}
}
