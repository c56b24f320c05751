package bridge

import (
	"testing"

	"github.com/chazu/graft/vm"
)

// newWidget defines ui.Widget: constructors () and (int id), a setEnabled
// that counts its calls, setText/1 and setText/2, and a final kind().
func newWidget(t *testing.T, v *vm.VM) *vm.Class {
	t.Helper()
	kind := vm.Sig("kind", vm.KindString)
	kind.Final = true
	c, err := v.DefineClass(vm.ClassDef{Name: "ui.Widget"}, func(c *vm.Class) error {
		c.AddConstructor(nil)
		c.AddConstructor(func(ctx *vm.Construction) error {
			ctx.Object.Set("id", ctx.Args[0])
			return ctx.Super()
		}, vm.KindInt)
		c.Define1(v.Selectors, vm.Sig("setEnabled", vm.KindVoid, vm.KindBool), func(_ *vm.VM, self *vm.Object, on vm.Value) (vm.Value, error) {
			self.Set("enabled", on)
			self.Update("setEnabledCalls", func(n vm.Value) vm.Value {
				c, _ := n.(int64)
				return c + 1
			})
			return nil, nil
		})
		c.Define1(v.Selectors, vm.Sig("setText", vm.KindVoid, vm.KindString), func(_ *vm.VM, self *vm.Object, s vm.Value) (vm.Value, error) {
			self.Set("text", s)
			return nil, nil
		})
		c.Define2(v.Selectors, vm.Sig("setText", vm.KindVoid, vm.KindString, vm.KindInt), func(_ *vm.VM, self *vm.Object, s, size vm.Value) (vm.Value, error) {
			self.Set("text", s)
			self.Set("size", size)
			return nil, nil
		})
		c.Define0(v.Selectors, vm.Sig("label", vm.KindString), func(_ *vm.VM, self *vm.Object) (vm.Value, error) {
			return "widget", nil
		})
		c.Define0(v.Selectors, kind, func(_ *vm.VM, self *vm.Object) (vm.Value, error) {
			return "native", nil
		})
		return nil
	})
	if err != nil {
		t.Fatalf("DefineClass(ui.Widget): %v", err)
	}
	return c
}

func newBridge(t *testing.T) (*Bridge, *vm.Class) {
	t.Helper()
	v := vm.NewVM()
	return New(v), newWidget(t, v)
}

// spec builds a Go template from member functions.
func spec(methods map[string]Func) *Spec {
	return &Spec{Methods: methods}
}

func mustExtend(t *testing.T, b *Bridge, base *vm.Class, tmpl Template, opts ExtendOptions) *ConstructorHandle {
	t.Helper()
	h, err := b.Extend(base, tmpl, opts)
	if err != nil {
		t.Fatalf("Extend(%v): %v", base, err)
	}
	return h
}

func mustNew(t *testing.T, h *ConstructorHandle, args ...vm.Value) *Instance {
	t.Helper()
	inst, err := h.New(args...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return inst
}
