package vm

import (
	stderrors "errors"
	"testing"

	"github.com/chazu/graft/errors"
)

// ---------------------------------------------------------------------------
// Class creation tests
// ---------------------------------------------------------------------------

func TestNewClass(t *testing.T) {
	c := NewClass("a.b.Widget", nil)
	if c == nil {
		t.Fatal("NewClass returned nil")
	}
	if c.Name != "a.b.Widget" {
		t.Errorf("Name = %q, want %q", c.Name, "a.b.Widget")
	}
	if c.SimpleName() != "Widget" {
		t.Errorf("SimpleName() = %q, want Widget", c.SimpleName())
	}
	if c.Package() != "a.b" {
		t.Errorf("Package() = %q, want a.b", c.Package())
	}
	if c.VTable == nil || c.VTable.Class() != c {
		t.Error("VTable should be created and point back at the class")
	}
}

func TestNewClassWithSuperclass(t *testing.T) {
	object := NewClass("lang.Object", nil)
	widget := NewClass("ui.Widget", object)

	if widget.Superclass != object {
		t.Error("superclass should be lang.Object")
	}
	if widget.VTable.Parent() != object.VTable {
		t.Error("VTable parent should be Object's vtable")
	}
	if !widget.IsSubclassOf(object) {
		t.Error("Widget should be a subclass of Object")
	}
	if object.IsSubclassOf(widget) {
		t.Error("Object should not be a subclass of Widget")
	}
	if got := widget.Superclasses(); len(got) != 1 || got[0] != object {
		t.Errorf("Superclasses() = %v, want [lang.Object]", got)
	}
}

// ---------------------------------------------------------------------------
// Method registration tests
// ---------------------------------------------------------------------------

func TestAddMethodGroupsOverloads(t *testing.T) {
	selectors := NewSelectorTable()
	c := NewClass("ui.Label", nil)
	c.Define1(selectors, Sig("setText", KindVoid, KindString), func(_ *VM, self *Object, s Value) (Value, error) {
		return nil, nil
	})
	c.Define2(selectors, Sig("setText", KindVoid, KindString, KindInt), func(_ *VM, self *Object, s, n Value) (Value, error) {
		return nil, nil
	})

	m := c.LookupMethod(selectors, "setText")
	set, ok := m.(*OverloadSet)
	if !ok {
		t.Fatalf("slot holds %T, want *OverloadSet", m)
	}
	sigs := set.Signatures()
	if len(sigs) != 2 || sigs[0].Arity() != 1 || sigs[1].Arity() != 2 {
		t.Errorf("Signatures() = %v, want arities 1 and 2", sigs)
	}
}

func TestDefineAbstractMarksClass(t *testing.T) {
	selectors := NewSelectorTable()
	c := NewClass("io.Stream", nil)
	c.DefineAbstract(selectors, Sig("read", KindInt))
	if !c.Abstract {
		t.Error("class with an abstract method should be abstract")
	}
	if !IsAbstract(c.LookupMethod(selectors, "read"), 0) {
		t.Error("read should be abstract")
	}
}

func TestHasMethodIsLocal(t *testing.T) {
	selectors := NewSelectorTable()
	base := NewClass("Base", nil)
	base.Define0(selectors, Sig("ping", KindVoid), func(*VM, *Object) (Value, error) { return nil, nil })
	sub := NewClass("Sub", base)

	if !base.HasMethod(selectors, "ping") {
		t.Error("Base should define ping")
	}
	if sub.HasMethod(selectors, "ping") {
		t.Error("Sub should not define ping locally")
	}
	if sub.LookupMethod(selectors, "ping") == nil {
		t.Error("Sub should inherit ping")
	}
}

// ---------------------------------------------------------------------------
// Constructor tests
// ---------------------------------------------------------------------------

func TestConstructorForImplicit(t *testing.T) {
	c := NewClass("Plain", nil)
	ctor, err := c.ConstructorFor(0)
	if err != nil || ctor != nil {
		t.Errorf("ConstructorFor(0) = %v, %v; want implicit (nil, nil)", ctor, err)
	}
	if _, err := c.ConstructorFor(1); !stderrors.Is(err, errors.ErrRouting) {
		t.Errorf("ConstructorFor(1) error = %v, want routing error", err)
	}
}

func TestConstructorForArity(t *testing.T) {
	c := NewClass("Point", nil)
	c.AddConstructor(nil)
	c.AddConstructor(func(*Construction) error { return nil }, KindInt, KindInt)

	ctor, err := c.ConstructorFor(2)
	if err != nil {
		t.Fatalf("ConstructorFor(2) error: %v", err)
	}
	if ctor.Arity() != 2 {
		t.Errorf("Arity() = %d, want 2", ctor.Arity())
	}
	if _, err := c.ConstructorFor(1); err == nil {
		t.Error("ConstructorFor(1) should fail")
	}
}

// ---------------------------------------------------------------------------
// ClassTable tests
// ---------------------------------------------------------------------------

func TestClassTableRegisterNew(t *testing.T) {
	ct := NewClassTable()
	first := NewClass("a.B", nil)
	second := NewClass("a.B", nil)

	if _, ok := ct.RegisterNew(first); !ok {
		t.Fatal("first registration should succeed")
	}
	old, ok := ct.RegisterNew(second)
	if ok {
		t.Error("second registration under the same name should be refused")
	}
	if old != first {
		t.Error("refused registration should report the existing class")
	}
	if ct.Lookup("a.B") != first {
		t.Error("Lookup should still return the first class")
	}
	if ct.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ct.Len())
	}
}

func TestClassTableRegisterReplaces(t *testing.T) {
	ct := NewClassTable()
	first := NewClass("a.B", nil)
	second := NewClass("a.B", nil)
	ct.Register(first)
	if old := ct.Register(second); old != first {
		t.Error("Register should return the replaced class")
	}
	if ct.Lookup("a.B") != second {
		t.Error("Lookup should return the replacement")
	}
}

// ---------------------------------------------------------------------------
// Interface tests
// ---------------------------------------------------------------------------

func TestInterfaceInheritance(t *testing.T) {
	closer := NewInterface("io.Closer", nil, Sig("close", KindVoid))
	stream := NewInterface("io.Stream", []*Interface{closer}, Sig("read", KindInt), Sig("close", KindVoid))

	sigs := stream.AllSignatures()
	if len(sigs) != 2 {
		t.Fatalf("AllSignatures() = %v, want read and close once each", sigs)
	}
	for _, s := range sigs {
		if !s.Abstract {
			t.Errorf("%s should be abstract", s)
		}
	}
	if !stream.IsSubinterfaceOf(closer) {
		t.Error("Stream should extend Closer")
	}

	c := NewClass("io.File", nil)
	c.Interfaces = []*Interface{stream}
	if !c.Implements(closer) {
		t.Error("File should implement Closer through Stream")
	}
	sub := NewClass("io.TempFile", c)
	if !sub.Implements(stream) {
		t.Error("TempFile should inherit Stream conformance")
	}
}

// ---------------------------------------------------------------------------
// SelectorTable
// ---------------------------------------------------------------------------

func TestSelectorTableIntern(t *testing.T) {
	st := NewSelectorTable()
	if st.Lookup("run") != -1 {
		t.Error("Lookup of an unknown name should be -1")
	}
	a := st.Intern("run")
	b := st.Intern("setText")
	if st.Intern("run") != a {
		t.Error("Intern should return the same ID for the same name")
	}
	if a == b {
		t.Error("distinct names should get distinct IDs")
	}
	if st.Name(b) != "setText" || st.Name(99) != "" {
		t.Errorf("Name(%d) = %q", b, st.Name(b))
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d, want 2", st.Len())
	}
}
