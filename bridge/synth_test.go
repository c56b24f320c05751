package bridge

import (
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
)

func TestSynthesizeCachesByShape(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()

	h1 := mustExtend(t, b, widget, spec(nil), ExtendOptions{Interfaces: []*vm.Interface{v.RunnableInterface}})
	h2 := mustExtend(t, b, widget, spec(nil), ExtendOptions{Interfaces: []*vm.Interface{v.RunnableInterface}})
	if h1.Type() != h2.Type() {
		t.Fatal("identical base and interfaces should share one synthesized type")
	}

	i1 := mustNew(t, h1)
	i2 := mustNew(t, h2)
	if i1.Native.Class() != i2.Native.Class() {
		t.Errorf("instances have classes %v and %v, want one", i1.Native.Class(), i2.Native.Class())
	}
	if got := b.Stats().Types; got != 1 {
		t.Errorf("Types = %d, want 1", got)
	}
}

func TestSynthesizeConcurrentMisses(t *testing.T) {
	b, widget := newBridge(t)
	s, err := b.Resolve(widget, nil, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	const n = 16
	types := make([]*SynthesizedType, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			typ, err := b.Synthesize(s)
			if err != nil {
				t.Errorf("Synthesize: %v", err)
				return
			}
			types[i] = typ
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if types[i] != types[0] {
			t.Fatalf("goroutine %d got a different type", i)
		}
	}
	if got := b.Stats().Types; got != 1 {
		t.Errorf("Types = %d, want 1", got)
	}
}

func TestSynthesizedClassShape(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()
	h := mustExtend(t, b, widget, spec(nil), ExtendOptions{Interfaces: []*vm.Interface{v.RunnableInterface}})
	c := h.Class()

	if !c.Synthetic || !c.Anonymous {
		t.Errorf("Synthetic = %v, Anonymous = %v, want both true", c.Synthetic, c.Anonymous)
	}
	if !strings.HasPrefix(c.Name, "ui.Widget$graft$") {
		t.Errorf("anonymous class name = %q", c.Name)
	}
	if v.Classes.Lookup(c.Name) != nil {
		t.Error("an anonymous class should not be registered by name")
	}
	if c.Superclass != widget || !c.Implements(v.RunnableInterface) {
		t.Error("synthesized class should extend ui.Widget and implement lang.Runnable")
	}
	if len(c.Constructors) != len(widget.Constructors) {
		t.Errorf("constructors = %d, want %d mirrored", len(c.Constructors), len(widget.Constructors))
	}

	m := c.VTable.LookupLocal(v.Selectors.Lookup("setText"))
	rm, ok := m.(*routedMethod)
	if !ok {
		t.Fatalf("setText slot = %T, want one routed slot", m)
	}
	if got := len(rm.Signatures()); got != 2 {
		t.Errorf("routed setText answers %d signatures, want 2", got)
	}
	if c.VTable.LookupLocal(v.Selectors.Lookup("kind")) != nil {
		t.Error("final kind() should keep the base slot")
	}
}

func TestSynthesizeNamed(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()

	h := mustExtend(t, b, widget, spec(nil), ExtendOptions{Name: "a.b.MyClass"})
	if v.Classes.Lookup("a.b.MyClass") != h.Class() {
		t.Fatal("named type should be registered under its name")
	}
	if h.Class().Anonymous {
		t.Error("named type should not be anonymous")
	}
}

func TestSynthesizeNameConflict(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()

	mustExtend(t, b, widget, spec(nil), ExtendOptions{Name: "a.b.Dup"})
	_, err := b.Extend(v.ObjectClass, spec(nil), ExtendOptions{Name: "a.b.Dup"})
	if !stderrors.Is(err, errors.ErrTypeSynthesis) {
		t.Errorf("Extend with an incompatible duplicate name: %v, want type synthesis error", err)
	}

	if _, err := v.DefineClass(vm.ClassDef{Name: "a.b.Taken"}, nil); err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	_, err = b.Extend(widget, spec(nil), ExtendOptions{Name: "a.b.Taken"})
	if !stderrors.Is(err, errors.ErrTypeSynthesis) {
		t.Errorf("Extend over a native class name: %v, want type synthesis error", err)
	}
}

func TestSynthesizeNamedReextendReplacesTemplate(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()
	label := func(s string) *Spec {
		return spec(map[string]Func{"label": func(*Call) (vm.Value, error) { return s, nil }})
	}

	h1 := mustExtend(t, b, widget, label("first"), ExtendOptions{Name: "a.b.Label"})
	h2 := mustExtend(t, b, widget, label("second"), ExtendOptions{Name: "a.b.Label"})
	if h1.Type() != h2.Type() {
		t.Fatal("same named shape should reuse the type")
	}

	obj, err := v.NewByName("a.b.Label")
	if err != nil {
		t.Fatalf("NewByName: %v", err)
	}
	got, err := v.Send(obj, "label")
	if err != nil {
		t.Fatalf("label: %v", err)
	}
	if got != "second" {
		t.Errorf("label() = %v, want second", got)
	}

	// Handles keep their own template.
	inst := mustNew(t, h1)
	if got, _ := v.Send(inst.Native, "label"); got != "first" {
		t.Errorf("label() via first handle = %v, want first", got)
	}
}
