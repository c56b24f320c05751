package vm

// Constructor initializes a freshly allocated instance. Body may be nil,
// meaning the constructor only chains to the superclass's no-argument one.
type Constructor struct {
	Params []Kind
	Body   func(*Construction) error
}

// Construction is the state passed to a running constructor.
type Construction struct {
	VM     *VM
	Class  *Class // class whose constructor is running
	Object *Object
	Args   []Value

	// Data is opaque per-instantiation context supplied by the caller of
	// InstantiateWith. It is handed unchanged to every constructor in the chain.
	Data any
}

// Super runs the superclass constructor matching args.
func (c *Construction) Super(args ...Value) error {
	if c.Class.Superclass == nil {
		return nil
	}
	return c.VM.Construct(c.Class.Superclass, c.Object, c.Data, args...)
}

// Arity returns the number of declared parameters.
func (ctor *Constructor) Arity() int {
	return len(ctor.Params)
}
