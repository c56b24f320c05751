package vm

import (
	"fmt"
	"math"
)

// Value is any value that can live in the native runtime: nil, bool, int64,
// float64, string or *Object.
type Value = any

// Kind is the declared kind of a parameter or return value.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
	KindAny
)

var kindNames = [...]string{
	KindVoid:   "void",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindObject: "object",
	KindAny:    "any",
}

// String implements the Stringer interface.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a kind name ("void", "int", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	switch s {
	case "boolean":
		return KindBool, nil
	case "number", "double":
		return KindFloat, nil
	case "":
		return KindAny, nil
	}
	return KindAny, fmt.Errorf("unknown kind %q", s)
}

// Zero returns the zero value for the kind.
func (k Kind) Zero() Value {
	switch k {
	case KindBool:
		return false
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindString:
		return ""
	}
	return nil
}

// Coerce converts v to the kind, reporting whether the conversion was
// lossless. Void accepts only nil; Any accepts everything.
func (k Kind) Coerce(v Value) (Value, bool) {
	switch k {
	case KindAny:
		return v, true
	case KindVoid:
		return nil, v == nil
	case KindBool:
		b, ok := v.(bool)
		return b, ok
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindObject:
		if v == nil {
			return nil, true
		}
		o, ok := v.(*Object)
		return o, ok
	case KindInt:
		switch n := v.(type) {
		case int64:
			return n, true
		case int:
			return int64(n), true
		case int32:
			return int64(n), true
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n), true
			}
		}
		return int64(0), false
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int64:
			return float64(n), true
		case int:
			return float64(n), true
		}
		return float64(0), false
	}
	return nil, false
}

// Accepts reports whether v can be passed where the kind is declared.
func (k Kind) Accepts(v Value) bool {
	_, ok := k.Coerce(v)
	return ok
}
