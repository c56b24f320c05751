package bridge

import (
	stderrors "errors"
	"slices"
	"testing"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
)

func TestResolveReturnKindConflict(t *testing.T) {
	b, _ := newBridge(t)
	v := b.VM()
	printer := v.DefineInterface("io.Printer", nil, vm.Sig("print", vm.KindVoid, vm.KindAny))
	checker := v.DefineInterface("io.Checker", nil, vm.Sig("print", vm.KindBool, vm.KindAny))

	_, err := b.Resolve(nil, []*vm.Interface{printer, checker}, "")
	if !stderrors.Is(err, errors.ErrValidation) {
		t.Fatalf("Resolve error = %v, want validation error", err)
	}

	var e *errors.Error
	if !stderrors.As(err, &e) || e.Method != "print" {
		t.Errorf("error method = %+v, want print", e)
	}
	if b.Stats().Types != 0 {
		t.Error("no type should be synthesized after a validation error")
	}
}

func TestResolveCollapsesIdenticalSignatures(t *testing.T) {
	b, _ := newBridge(t)
	v := b.VM()
	a := v.DefineInterface("x.A", nil, vm.Sig("run", vm.KindVoid))
	c := v.DefineInterface("x.C", nil, vm.Sig("run", vm.KindVoid))

	spec, err := b.Resolve(nil, []*vm.Interface{a, c, v.RunnableInterface}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	g := spec.Group("run")
	if g == nil {
		t.Fatal("run should be routed")
	}
	if len(g.Signatures) != 1 {
		t.Errorf("run signatures = %v, want one", g.Signatures)
	}
}

func TestResolveGroupsOverloadsByName(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()
	one := v.DefineInterface("x.One", nil, vm.Sig("methodA", vm.KindVoid, vm.KindAny))
	two := v.DefineInterface("x.Two", nil, vm.Sig("methodA", vm.KindVoid, vm.KindAny, vm.KindAny))

	spec, err := b.Resolve(widget, []*vm.Interface{one, two}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := spec.Group("methodA").Arities(); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("methodA arities = %v, want [1 2]", got)
	}
	if got := spec.Group("setText").Arities(); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("setText arities = %v, want [1 2]", got)
	}
	if spec.Group("kind") != nil {
		t.Error("final kind() should not be routed")
	}
	if spec.Group("toString") == nil {
		t.Error("inherited toString should be routed")
	}
}

func TestResolveKeyIgnoresInterfaceOrder(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()
	one := v.DefineInterface("x.One", nil, vm.Sig("a", vm.KindVoid))
	two := v.DefineInterface("x.Two", nil, vm.Sig("b", vm.KindVoid))

	s1, err := b.Resolve(widget, []*vm.Interface{one, two}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	s2, err := b.Resolve(widget, []*vm.Interface{two, one, two}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s1.Key() != s2.Key() {
		t.Errorf("keys differ: %s vs %s", s1.Key(), s2.Key())
	}
	s3, _ := b.Resolve(widget, []*vm.Interface{one, two}, "a.b.Named")
	if s3.Key() == s1.Key() {
		t.Error("a named spec should not share a key with the anonymous one")
	}
}

func TestResolveRejects(t *testing.T) {
	b, widget := newBridge(t)
	v := b.VM()
	sealed, err := v.DefineClass(vm.ClassDef{Name: "x.Sealed", Final: true}, nil)
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	h := mustExtend(t, b, widget, spec(nil), ExtendOptions{})

	tests := []struct {
		name   string
		base   *vm.Class
		ifaces []*vm.Interface
		fqn    string
	}{
		{"final base", sealed, nil, ""},
		{"synthesized base", h.Class(), nil, ""},
		{"nil interface", widget, []*vm.Interface{nil}, ""},
		{"empty segment", widget, nil, "a..b"},
		{"reserved character", widget, nil, "a.b$c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Resolve(tt.base, tt.ifaces, tt.fqn)
			if !stderrors.Is(err, errors.ErrValidation) {
				t.Errorf("Resolve error = %v, want validation error", err)
			}
		})
	}
}
