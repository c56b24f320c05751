package vm

import (
	"slices"
	"strings"
)

// Signature describes one native method: its name, parameter kinds and
// return kind. Signatures sharing a name form an overload group.
type Signature struct {
	Name     string
	Params   []Kind
	Return   Kind
	Abstract bool // no implementation; must be provided by a subclass
	Final    bool // cannot be overridden
}

// Sig is shorthand for building a concrete signature.
func Sig(name string, ret Kind, params ...Kind) Signature {
	return Signature{Name: name, Params: params, Return: ret}
}

// AbstractSig is shorthand for building an abstract signature.
func AbstractSig(name string, ret Kind, params ...Kind) Signature {
	return Signature{Name: name, Params: params, Return: ret, Abstract: true}
}

// Arity returns the number of declared parameters.
func (s Signature) Arity() int {
	return len(s.Params)
}

// SameShape reports whether two signatures have the same name, arity and
// return kind.
func (s Signature) SameShape(other Signature) bool {
	return s.Name == other.Name && s.Arity() == other.Arity() && s.Return == other.Return
}

// String renders the signature as name(params) return.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
	b.WriteString(") ")
	b.WriteString(s.Return.String())
	return b.String()
}

// sortSignatures orders signatures by name, then arity.
func sortSignatures(sigs []Signature) {
	slices.SortFunc(sigs, func(a, b Signature) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return a.Arity() - b.Arity()
	})
}
