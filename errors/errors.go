// Package errors provides the structured error type shared by the native
// runtime, the bridge and the script engine.
//
// Errors carry a Kind (what went wrong) plus the class and method they concern:
//
//	err := errors.New(errors.KindValidation).
//		Class("a.b.Widget").
//		Method("setText").
//		Detail("return kind conflict: %s vs %s", a, b).
//		Build()
//
// Sentinels match by kind, so callers test with the standard library:
//
//	if stderrors.Is(err, errors.ErrRouting) { ... }
package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes the error
type Kind string

const (
	KindValidation    Kind = "validation"     // resolve-time signature conflicts
	KindTypeSynthesis Kind = "type_synthesis" // class definition rejected
	KindRouting       Kind = "routing"        // dispatch on an unknown instance or selector
	KindUnimplemented Kind = "unimplemented"  // implementation lacks a routed member
	KindConstruction  Kind = "construction"   // constructor or initializer failed
	KindMarshal       Kind = "marshal"        // value could not cross the boundary
)

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrTypeSynthesis = &Error{Kind: KindTypeSynthesis}
	ErrRouting       = &Error{Kind: KindRouting}
	ErrUnimplemented = &Error{Kind: KindUnimplemented}
	ErrConstruction  = &Error{Kind: KindConstruction}
	ErrMarshal       = &Error{Kind: KindMarshal}
)

// Error is the structured error type used throughout graft
type Error struct {
	Cause  error
	Kind   Kind
	Class  string
	Method string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")

	if e.Class != "" || e.Method != "" {
		b.WriteString(" at ")
		b.WriteString(e.Class)
		if e.Method != "" {
			if e.Class != "" {
				b.WriteByte('.')
			}
			b.WriteString(e.Method)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(kind Kind) *Builder {
	return &Builder{err: Error{Kind: kind}}
}

// Class sets the fully-qualified class (or interface) name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Method sets the method name
func (b *Builder) Method(name string) *Builder {
	b.err.Method = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Convenience constructors for common error patterns

// Validation creates a resolve-time validation error
func Validation(class, method, detail string, args ...any) *Error {
	return New(KindValidation).Class(class).Method(method).Detail(detail, args...).Build()
}

// TypeSynthesis creates a class definition error
func TypeSynthesis(class, detail string, args ...any) *Error {
	return New(KindTypeSynthesis).Class(class).Detail(detail, args...).Build()
}

// Routing creates a dispatch routing error
func Routing(class, method, detail string, args ...any) *Error {
	return New(KindRouting).Class(class).Method(method).Detail(detail, args...).Build()
}

// Unimplemented creates an error for an implementation missing a routed member
func Unimplemented(class, method string) *Error {
	return &Error{
		Kind:   KindUnimplemented,
		Class:  class,
		Method: method,
		Detail: fmt.Sprintf("implementation does not provide %q", method),
	}
}

// Construction wraps a constructor or initializer failure
func Construction(class string, cause error) *Error {
	return &Error{
		Kind:   KindConstruction,
		Class:  class,
		Detail: "construction aborted",
		Cause:  cause,
	}
}

// Marshal creates a boundary conversion error
func Marshal(detail string, args ...any) *Error {
	return New(KindMarshal).Detail(detail, args...).Build()
}
