// Package bridge lets script code subclass native classes and implement
// native interfaces.
//
// Given a base class, a set of interfaces and a script implementation, the
// bridge resolves the methods that must be routable, synthesizes (once per
// shape) a native class whose virtual slots route into the bridge, correlates
// every native instance with its implementation object, and dispatches
// native virtual calls into script code. Implementations reach the base
// class's original methods through a Super handle scoped to one dispatch.
//
// The flow for one extended type:
//
//	Extend -> Resolve (TypeSpec) -> Synthesize (cached SynthesizedType)
//	ConstructorHandle.New -> synthesized constructor -> Correlator.Register -> init
//	vm.Send on the instance -> routed slot -> Router -> Executor -> Func(*Call)
//
// Correlator cleanup after a native instance is collected is best-effort:
// it happens when the runtime reports the object finalized or when the
// Reaper next sweeps, with no timing guarantee.
package bridge
