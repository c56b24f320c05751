package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/chazu/graft/vm"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bridge: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// TypeSpec is the immutable descriptor of one extended type: the base class,
// the interface set and an optional fully-qualified name, together with the
// overload groups the resolver found routable.
type TypeSpec struct {
	Base       *vm.Class
	Interfaces []*vm.Interface // deduplicated, sorted by name
	Name       string          // empty for anonymous types
	Groups     []*OverloadGroup

	key string
}

// Key returns the cache key identifying the spec's shape.
func (s *TypeSpec) Key() string {
	return s.key
}

// Group returns the overload group routed for name, or nil.
func (s *TypeSpec) Group(name string) *OverloadGroup {
	for _, g := range s.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// InterfaceNames returns the names of the spec's interfaces in order.
func (s *TypeSpec) InterfaceNames() []string {
	var names []string
	for _, iface := range s.Interfaces {
		names = append(names, iface.Name)
	}
	return names
}

// OverloadGroup is every routable signature sharing one name. The group
// becomes exactly one routed slot; which overload a call means is left to the
// implementation, which sees the actual argument count.
type OverloadGroup struct {
	Name       string
	Signatures []vm.Signature // one per arity, ascending
}

// ForArity returns the declared signature taking arity arguments.
func (g *OverloadGroup) ForArity(arity int) (vm.Signature, bool) {
	for _, s := range g.Signatures {
		if s.Arity() == arity {
			return s, true
		}
	}
	return vm.Signature{}, false
}

// Arities returns the declared arities in ascending order.
func (g *OverloadGroup) Arities() []int {
	out := make([]int, len(g.Signatures))
	for i, s := range g.Signatures {
		out[i] = s.Arity()
	}
	return out
}

// keyDescriptor is the canonical shape a cache key is derived from.
type keyDescriptor struct {
	Base       string   `cbor:"1,keyasint"`
	Interfaces []string `cbor:"2,keyasint"`
	Name       string   `cbor:"3,keyasint,omitempty"`
}

// cacheKey hashes the canonical CBOR encoding of the shape, so identical
// base and interface content maps to one key regardless of input order.
func cacheKey(base *vm.Class, interfaces []*vm.Interface, name string) (string, error) {
	d := keyDescriptor{Base: base.Name, Name: name}
	for _, iface := range interfaces {
		d.Interfaces = append(d.Interfaces, iface.Name)
	}
	slices.Sort(d.Interfaces)
	data, err := cborEncMode.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
