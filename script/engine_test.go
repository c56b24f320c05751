package script

import (
	"strings"
	"sync"
	"testing"

	"github.com/chazu/graft/vm"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	v := vm.NewVM()
	_, err := v.DefineClass(vm.ClassDef{Name: "ui.Widget"}, func(c *vm.Class) error {
		c.AddConstructor(nil)
		c.AddConstructor(func(ctx *vm.Construction) error {
			ctx.Object.Set("id", ctx.Args[0])
			return ctx.Super()
		}, vm.KindInt)
		c.Define1(v.Selectors, vm.Sig("setEnabled", vm.KindVoid, vm.KindBool), func(_ *vm.VM, self *vm.Object, on vm.Value) (vm.Value, error) {
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
		c.Define2(v.Selectors, vm.Sig("setText", vm.KindVoid, vm.KindString, vm.KindInt), func(_ *vm.VM, self *vm.Object, s, _ vm.Value) (vm.Value, error) {
			self.Set("text", s)
			return nil, nil
		})
		return nil
	})
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}
	v.DefineInterface("io.Printer", nil, vm.Sig("print", vm.KindVoid, vm.KindString))
	v.DefineInterface("io.Checker", nil, vm.Sig("print", vm.KindBool, vm.KindString))

	e, err := NewEngine(v, Config{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func run(t *testing.T, e *Engine, src string) vm.Value {
	t.Helper()
	v, err := e.RunString(src)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	return v
}

const widgetScript = `
var Widget = native.class("ui.Widget");
var arities = [];
var MyWidget = extend(Widget, {
	count: 0,
	init: function(id) { this.initId = id; },
	setEnabled: function(on) {
		this.count++;
		this.super.setEnabled(on);
	},
	setText: function() { arities.push(arguments.length); },
}, "app.MyWidget");
`

func TestExtendFromScript(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, widgetScript)

	got := run(t, e, `
var w = new MyWidget(5);
var n = native.of(w);
n.setEnabled(true);
n.setText("a");
n.setText("a", 3);
[w.count, w.initId, arities.length, arities[0], arities[1], typeof w.super]
`)
	want := []any{int64(1), int64(5), int64(2), int64(1), int64(2), "undefined"}
	vals, ok := got.([]any)
	if !ok || len(vals) != len(want) {
		t.Fatalf("result = %#v", got)
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("result[%d] = %#v, want %#v", i, vals[i], want[i])
		}
	}

	obj, ok := run(t, e, "w").(*vm.Object)
	if !ok {
		t.Fatal("an implementation object should convert to its native instance")
	}
	if got := obj.Get("setEnabledCalls"); got != int64(1) {
		t.Errorf("base setEnabled calls = %v, want 1", got)
	}
}

func TestNamedTypeFromNativeSide(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, widgetScript)
	v := e.VM()

	obj, err := v.NewByName("app.MyWidget", 9)
	if err != nil {
		t.Fatalf("NewByName: %v", err)
	}
	if _, err := v.Send(obj, "setEnabled", false); err != nil {
		t.Fatalf("setEnabled: %v", err)
	}
	if got := obj.Get("setEnabledCalls"); got != int64(1) {
		t.Errorf("base setEnabled calls = %v, want 1", got)
	}
	impl, err := e.Bridge().Lookup(obj)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	si := impl.(*scriptImpl)
	count, _ := e.Loop().Run(func() (any, error) {
		return si.obj.Get("count").Export(), nil
	})
	if count != int64(1) {
		t.Errorf("script count = %v, want 1", count)
	}
}

func TestIdentityStableAcrossCrossings(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `
var Comparator = native.interface("lang.Comparator");
var cmp = new Comparator({ compare: function(a, b) { return a === b ? 0 : 1; } });
var w = new (extend(native.class("ui.Widget"), {}))();
`)
	cmp := run(t, e, "cmp").(*vm.Object)
	w := run(t, e, "w").(*vm.Object)

	got, err := e.VM().Send(cmp, "compare", w, w)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if got != int64(0) {
		t.Errorf("compare(w, w) = %v, want 0 (same script object)", got)
	}
	if again := run(t, e, "w"); again != w {
		t.Error("the same implementation should always map to the same instance")
	}
}

func TestUnimplementedFromScript(t *testing.T) {
	e := newTestEngine(t)
	got := run(t, e, `
var Printer = native.interface("io.Printer");
var p = new Printer({});
var msg = "no error";
try { native.of(p).print("x"); } catch (err) { msg = String(err); }
msg
`)
	if s, _ := got.(string); !strings.Contains(s, "unimplemented") {
		t.Errorf("print error = %q, want unimplemented", got)
	}
}

func TestValidationErrorFromScript(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.RunString(`extend(null, { interfaces: ["io.Printer", "io.Checker"] })`)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("extend error = %v, want validation error", err)
	}
}

func TestReentrantExecutor(t *testing.T) {
	e := newTestEngine(t)
	got := run(t, e, `
var ex = new (native.class("lang.Executor"))();
var ran = 0;
var task = new (native.interface("lang.Runnable"))({ run: function() { ran++; } });
ex.execute(task);
ex.execute(task);
ran
`)
	if got != int64(2) {
		t.Errorf("ran = %v, want 2", got)
	}
}

func TestCrossGoroutineDispatch(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `
var ran = 0;
var task = new (native.interface("lang.Runnable"))({ run: function() { ran++; } });
`)
	task := run(t, e, "task").(*vm.Object)
	v := e.VM()

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.Send(task, "run"); err != nil {
				t.Errorf("run: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := run(t, e, "ran"); got != int64(n) {
		t.Errorf("ran = %v, want %d", got, n)
	}
}

func TestScriptExceptionReachesNativeCaller(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `
var task = new (native.interface("lang.Runnable"))({ run: function() { throw new Error("broken task"); } });
`)
	task := run(t, e, "task").(*vm.Object)
	_, err := e.VM().Send(task, "run")
	if err == nil || !strings.Contains(err.Error(), "broken task") {
		t.Errorf("run error = %v, want broken task", err)
	}
}

func TestClassExtendMethodAndTypes(t *testing.T) {
	e := newTestEngine(t)
	got := run(t, e, `
var Button = native.class("ui.Widget").extend("app.Button", {
	setText: function(s) { this.super.setText("[" + s + "]"); },
});
var b = new Button();
native.of(b).setText("ok");
native.types().indexOf("app.Button") >= 0
`)
	if got != true {
		t.Errorf("app.Button should be listed by native.types(), got %v", got)
	}
	obj, err := e.VM().NewByName("app.Button")
	if err != nil {
		t.Fatalf("NewByName: %v", err)
	}
	e.VM().Send(obj, "setText", "x")
	if got := obj.Get("text"); got != "[x]" {
		t.Errorf("text = %v, want [x]", got)
	}
}

func TestInheritedBuiltinsFallBackToBase(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `
var Widget = native.class("ui.Widget");
var Plain = extend(Widget, { setText: function() {} });
var Named = extend(Widget, { toString: function() { return "mine"; } });
var plain = new Plain();
var named = new Named();
`)
	plain := run(t, e, "plain").(*vm.Object)

	got := run(t, e, `native.send(plain, "toString")`)
	if got != plain.String() {
		t.Errorf("toString without override = %v, want base %q", got, plain.String())
	}
	if got := run(t, e, `native.send(named, "toString")`); got != "mine" {
		t.Errorf("toString with override = %v, want mine", got)
	}
	if got := run(t, e, `String(plain) === "[object Object]"`); got != true {
		t.Errorf("String(plain) in script = %v, want [object Object]", got)
	}
}

func TestInterfaceLiteralIsImplementation(t *testing.T) {
	e := newTestEngine(t)
	run(t, e, `
var Runnable = native.interface("lang.Runnable");
var lit = { runs: 0, run: function() { this.runs++; } };
var r = new Runnable(lit);
`)
	if got := run(t, e, "r === lit"); got != true {
		t.Fatal("new Runnable(lit) should return lit itself")
	}

	obj := run(t, e, "lit").(*vm.Object)
	if _, err := e.VM().Send(obj, "run"); err != nil {
		t.Fatalf("run: %v", err)
	}
	run(t, e, `lit.run = function() { this.runs += 10; };`)
	if _, err := e.VM().Send(obj, "run"); err != nil {
		t.Fatalf("run after reassignment: %v", err)
	}
	if got := run(t, e, "lit.runs"); got != int64(11) {
		t.Errorf("lit.runs = %v, want 11", got)
	}

	_, err := e.RunString("new Runnable(lit)")
	if err == nil || !strings.Contains(err.Error(), "already implements") {
		t.Errorf("reusing a literal = %v, want already implements error", err)
	}
}

func TestReleaseUnpinsInstance(t *testing.T) {
	e := newTestEngine(t)
	pinned := func() int {
		n, err := e.Loop().Run(func() (any, error) { return len(e.pins), nil })
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return n.(int)
	}

	run(t, e, `
var W = extend(native.class("ui.Widget"), {});
var a = new W();
var b = native.create("ui.Widget");
`)
	if got := pinned(); got != 2 {
		t.Fatalf("pinned = %d, want 2", got)
	}
	run(t, e, "native.release(a); native.release(b);")
	if got := pinned(); got != 0 {
		t.Errorf("pinned after release = %d, want 0", got)
	}
	if _, err := e.RunString("native.release({})"); err == nil {
		t.Error("releasing a plain object should throw")
	}
}
