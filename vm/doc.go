// Package vm implements the native object runtime that graft bridges into.
//
// This package contains:
//   - Value kinds and method signatures
//   - Classes, interfaces and constructors
//   - Selector interning and VTable-based virtual dispatch
//   - Non-virtual (super) dispatch against a class's own method table
//   - Class loading and by-name instantiation
//   - Finalization notification for native instances
package vm
