package vm

import "github.com/chazu/graft/errors"

// bootstrap loads the lang.* classes every VM starts with.
func (vm *VM) bootstrap() {
	object := NewClass("lang.Object", nil)
	object.Define0(vm.Selectors, Sig("toString", KindString), func(_ *VM, self *Object) (Value, error) {
		return self.String(), nil
	})
	object.Define0(vm.Selectors, Sig("hashCode", KindInt), func(_ *VM, self *Object) (Value, error) {
		return int64(self.ID()), nil
	})
	object.Define1(vm.Selectors, Sig("equals", KindBool, KindAny), func(_ *VM, self *Object, other Value) (Value, error) {
		o, ok := other.(*Object)
		return ok && o == self, nil
	})
	vm.Classes.Register(object)
	vm.ObjectClass = object

	vm.RunnableInterface = vm.DefineInterface("lang.Runnable", nil,
		Sig("run", KindVoid))
	vm.ComparatorInterface = vm.DefineInterface("lang.Comparator", nil,
		Sig("compare", KindInt, KindAny, KindAny))

	// lang.Executor runs a Runnable synchronously on the caller's goroutine.
	// Script code handing it a script-implemented Runnable re-enters the
	// script context from inside a native call.
	executor := NewClass("lang.Executor", object)
	executor.AddConstructor(nil)
	executor.Define1(vm.Selectors, Sig("execute", KindVoid, KindObject), func(vm *VM, self *Object, arg Value) (Value, error) {
		task, _ := arg.(*Object)
		if task == nil || !task.Class().Implements(vm.RunnableInterface) {
			return nil, errors.New(errors.KindMarshal).
				Class(self.Class().Name).
				Method("execute").
				Detail("argument is not a lang.Runnable").
				Build()
		}
		self.Update("executed", func(v Value) Value {
			n, _ := v.(int64)
			return n + 1
		})
		_, err := vm.Send(task, "run")
		return nil, err
	})
	executor.Define0(vm.Selectors, Sig("executedCount", KindInt), func(_ *VM, self *Object) (Value, error) {
		n, _ := self.Get("executed").(int64)
		return n, nil
	})
	vm.Classes.Register(executor)
	vm.ExecutorClass = executor
}
