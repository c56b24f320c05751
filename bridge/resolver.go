package bridge

import (
	"slices"
	"strings"

	"github.com/chazu/graft/errors"
	"github.com/chazu/graft/vm"
)

// Resolver computes the routable method set of a base class combined with an
// interface set, failing fast on conflicting declarations. It has no side
// effects.
type Resolver struct {
	vm *vm.VM
}

// NewResolver creates a resolver reading classes from v.
func NewResolver(v *vm.VM) *Resolver {
	return &Resolver{vm: v}
}

// declaration is one signature together with where it came from.
type declaration struct {
	sig    vm.Signature
	origin string
}

type groupKey struct {
	name  string
	arity int
}

// Resolve validates base and interfaces and returns the TypeSpec for them.
//
// Declarations are grouped by name and arity. Two declarations in one group
// with different return kinds are a validation error. Two with the same
// return kind collapse into one, so implementing two interfaces that both
// declare run() yields a single routed run.
func (r *Resolver) Resolve(base *vm.Class, interfaces []*vm.Interface, name string) (*TypeSpec, error) {
	if base == nil {
		base = r.vm.ObjectClass
	}
	if base.Final {
		return nil, errors.Validation(base.Name, "", "class is final and cannot be extended")
	}
	if base.Synthetic {
		return nil, errors.Validation(base.Name, "", "class was synthesized by the bridge and cannot be extended again")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	ifaces, err := normalizeInterfaces(interfaces)
	if err != nil {
		return nil, err
	}

	var order []groupKey
	groups := make(map[groupKey]*declaration)
	add := func(d declaration) error {
		k := groupKey{d.sig.Name, d.sig.Arity()}
		have, ok := groups[k]
		if !ok {
			order = append(order, k)
			groups[k] = &d
			return nil
		}
		if have.sig.Return != d.sig.Return {
			return errors.Validation(base.Name, d.sig.Name,
				"%s declares %s but %s declares %s for the same name and arity",
				have.origin, have.sig, d.origin, d.sig)
		}
		// Same full signature: collapse. The slot stays abstract only if
		// every declaration is abstract, and final if any declaration is.
		have.sig.Abstract = have.sig.Abstract && d.sig.Abstract
		have.sig.Final = have.sig.Final || d.sig.Final
		return nil
	}

	for _, s := range r.vm.VisibleSignatures(base) {
		if err := add(declaration{sig: s, origin: base.Name}); err != nil {
			return nil, err
		}
	}
	for _, iface := range ifaces {
		for _, s := range iface.AllSignatures() {
			if err := add(declaration{sig: s, origin: iface.Name}); err != nil {
				return nil, err
			}
		}
	}

	byName := make(map[string]*OverloadGroup)
	var names []string
	for _, k := range order {
		d := groups[k]
		g, ok := byName[k.name]
		if !ok {
			g = &OverloadGroup{Name: k.name}
			byName[k.name] = g
			names = append(names, k.name)
		}
		g.Signatures = append(g.Signatures, d.sig)
	}
	slices.Sort(names)

	spec := &TypeSpec{Base: base, Interfaces: ifaces, Name: name}
	for _, n := range names {
		g := byName[n]
		if allFinal(g) {
			continue
		}
		slices.SortFunc(g.Signatures, func(a, b vm.Signature) int { return a.Arity() - b.Arity() })
		spec.Groups = append(spec.Groups, g)
	}

	spec.key, err = cacheKey(base, ifaces, name)
	if err != nil {
		return nil, errors.New(errors.KindValidation).Class(base.Name).Detail("cannot derive type key").Cause(err).Build()
	}
	return spec, nil
}

// normalizeInterfaces drops duplicates and orders the set by name.
func normalizeInterfaces(interfaces []*vm.Interface) ([]*vm.Interface, error) {
	out := make([]*vm.Interface, 0, len(interfaces))
	for i, iface := range interfaces {
		if iface == nil {
			return nil, errors.Validation("", "", "interface %d is nil", i)
		}
		if !slices.Contains(out, iface) {
			out = append(out, iface)
		}
	}
	slices.SortFunc(out, func(a, b *vm.Interface) int { return strings.Compare(a.Name, b.Name) })
	for i := 1; i < len(out); i++ {
		if out[i].Name == out[i-1].Name {
			return nil, errors.Validation(out[i].Name, "", "two distinct interfaces share this name")
		}
	}
	return out, nil
}

// validateName accepts "" or a dotted name with non-empty segments.
func validateName(name string) error {
	if name == "" {
		return nil
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" || strings.ContainsAny(seg, " \t\n$") {
			return errors.Validation(name, "", "invalid fully-qualified class name")
		}
	}
	return nil
}

func allFinal(g *OverloadGroup) bool {
	for _, s := range g.Signatures {
		if !s.Final {
			return false
		}
	}
	return true
}
